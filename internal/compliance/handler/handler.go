package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tawf-labs/amana-reserve/internal/compliance"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/httputil"
)

// Service defines the compliance reads exposed over HTTP. Verdicts are written
// only by the activity lifecycle, so there is no mutation surface here.
type Service interface {
	Status(ctx context.Context, activityID id.ActivityID) (*compliance.State, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/compliance/{activityID}", h.HandleStatus)
}

// StateResponse is the public view of one compliance verdict.
type StateResponse struct {
	ActivityID     string     `json:"activity_id"`
	IsCompliant    bool       `json:"is_compliant"`
	RequiresReview bool       `json:"requires_review"`
	Reason         string     `json:"reason,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	FlaggedAt      *time.Time `json:"flagged_at,omitempty"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	activityID, err := id.ParseActivityID(chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid activity id"))
		return
	}

	state, err := h.service.Status(r.Context(), activityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := StateResponse{
		ActivityID:     state.ActivityID.String(),
		IsCompliant:    state.IsCompliant,
		RequiresReview: state.RequiresReview,
		Reason:         state.Reason,
	}
	if !state.VerifiedAt.IsZero() {
		verifiedAt := state.VerifiedAt
		resp.VerifiedAt = &verifiedAt
	}
	if !state.FlaggedAt.IsZero() {
		flaggedAt := state.FlaggedAt
		resp.FlaggedAt = &flaggedAt
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
