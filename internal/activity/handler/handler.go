package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tawf-labs/amana-reserve/internal/activity"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/httputil"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// Service defines the activity lifecycle operations exposed over HTTP.
type Service interface {
	Propose(ctx context.Context, capitalRequired uint64) (*activity.Activity, error)
	Approve(ctx context.Context, activityID id.ActivityID) (*activity.Activity, error)
	DeployRealtime(ctx context.Context, activityID id.ActivityID, amount uint64) (*activity.Activity, error)
	Complete(ctx context.Context, activityID id.ActivityID, outcome int64) (*activity.Activity, error)
	Reject(ctx context.Context, activityID id.ActivityID) (*activity.Activity, error)
	DistributeProfits(ctx context.Context, activityID id.ActivityID) (uint64, error)
	Get(ctx context.Context, activityID id.ActivityID) (*activity.Activity, error)
	List(ctx context.Context) ([]activity.Activity, error)
}

// Handler wires activity lifecycle endpoints to the activity service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts participant-facing activity endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/activities", h.HandlePropose)
	r.Post("/activities/{activityID}/complete", h.HandleComplete)
	r.Post("/activities/{activityID}/reject", h.HandleReject)
	r.Post("/activities/{activityID}/distribute", h.HandleDistribute)
	r.Get("/activities", h.HandleList)
	r.Get("/activities/{activityID}", h.HandleGet)
}

// RegisterAdmin mounts approval and realtime-deployment endpoints behind the
// admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/activities/{activityID}/approve", h.HandleApprove)
	r.Post("/activities/{activityID}/deploy", h.HandleDeployRealtime)
}

func (h *Handler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ProposeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	proposed, err := h.service.Propose(ctx, req.CapitalRequired)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "activity proposed",
		"request_id", requestID,
		"activity_id", proposed.ID,
		"capital_required", req.CapitalRequired,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromActivity(proposed))
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

// transition handles the shared shape of body-less status transitions.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, id.ActivityID) (*activity.Activity, error)) {
	activityID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	updated, err := op(r.Context(), activityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromActivity(updated))
}

func (h *Handler) HandleDeployRealtime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activityID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DeployRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	updated, err := h.service.DeployRealtime(ctx, activityID, req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromActivity(updated))
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	activityID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	completed, err := h.service.Complete(ctx, activityID, req.Outcome)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "activity completed",
		"request_id", requestID,
		"activity_id", completed.ID,
		"outcome", req.Outcome,
	)
	httputil.WriteJSON(w, http.StatusOK, FromActivity(completed))
}

func (h *Handler) HandleDistribute(w http.ResponseWriter, r *http.Request) {
	activityID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	perParticipant, err := h.service.DistributeProfits(r.Context(), activityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DistributeResponse{PerParticipant: perParticipant})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	activityID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	found, err := h.service.Get(r.Context(), activityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromActivity(found))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]ActivityResponse, 0, len(activities))
	for i := range activities {
		out = append(out, FromActivity(&activities[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (id.ActivityID, bool) {
	activityID, err := id.ParseActivityID(chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid activity id"))
		return id.ActivityID{}, false
	}
	return activityID, true
}
