package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tawf-labs/amana-reserve/internal/hai"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/httputil"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// Service defines the score engine operations exposed over HTTP.
type Service interface {
	Initialize(ctx context.Context, admin id.Identity, initialScore uint64) (*hai.ScoreState, error)
	Track(ctx context.Context, input hai.TrackInput) (*hai.ScoreState, error)
	ApplyDelta(ctx context.Context, activityID id.ActivityID, delta int64) (*hai.ScoreState, error)
	UpdateWeights(ctx context.Context, weights hai.Weights) (*hai.ScoreState, error)
	TakeSnapshot(ctx context.Context) (*hai.Snapshot, error)
	LatestSnapshot(ctx context.Context) (*hai.Snapshot, error)
	AuthorizeUpdater(ctx context.Context, updater id.Identity) error
	RevokeUpdater(ctx context.Context, updater id.Identity) error
	SampleScore(ctx context.Context, activityID id.ActivityID, sources []byte) (*hai.SampleResult, error)
	State(ctx context.Context) (*hai.ScoreState, error)
	Metrics(ctx context.Context, activityID id.ActivityID) (*hai.ActivityMetrics, error)
}

// Handler wires score engine endpoints to the score service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read and oracle surface.
func (h *Handler) Register(r chi.Router) {
	r.Get("/hai", h.HandleState)
	r.Get("/hai/snapshots/latest", h.HandleLatestSnapshot)
	r.Get("/hai/activities/{activityID}", h.HandleActivityMetrics)
	r.Post("/hai/sample", h.HandleSample)
}

// RegisterAdmin mounts score mutation endpoints behind the admin token. Track
// and delta application stay off the public surface because they feed the
// composite score directly.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/hai/init", h.HandleInitialize)
	r.Post("/hai/track", h.HandleTrack)
	r.Post("/hai/delta", h.HandleApplyDelta)
	r.Put("/hai/weights", h.HandleUpdateWeights)
	r.Post("/hai/snapshots", h.HandleTakeSnapshot)
	r.Post("/hai/updaters", h.HandleAuthorizeUpdater)
	r.Delete("/hai/updaters/{identity}", h.HandleRevokeUpdater)
}

func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	state, err := h.service.Initialize(ctx, id.Identity(req.Admin), req.InitialScore)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromState(state))
}

func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TrackRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	input, err := req.Input()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	state, err := h.service.Track(ctx, input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "activity tracked",
		"request_id", requestID,
		"activity_id", req.ActivityID,
		"score", state.CurrentScore,
	)
	httputil.WriteJSON(w, http.StatusOK, FromState(state))
}

func (h *Handler) HandleApplyDelta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[DeltaRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	activityID, err := id.ParseActivityID(req.ActivityID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid activity id"))
		return
	}

	state, err := h.service.ApplyDelta(ctx, activityID, req.Delta)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromState(state))
}

func (h *Handler) HandleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[WeightsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	state, err := h.service.UpdateWeights(ctx, hai.Weights{
		Compliance:    req.Compliance,
		AssetBacking:  req.AssetBacking,
		EconomicValue: req.EconomicValue,
		Validator:     req.Validator,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromState(state))
}

func (h *Handler) HandleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.TakeSnapshot(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromSnapshot(snapshot))
}

func (h *Handler) HandleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.LatestSnapshot(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snapshot))
}

func (h *Handler) HandleAuthorizeUpdater(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[UpdaterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.AuthorizeUpdater(ctx, id.Identity(req.Identity)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRevokeUpdater(w http.ResponseWriter, r *http.Request) {
	identity := id.Identity(chi.URLParam(r, "identity"))
	if identity.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identity is required"))
		return
	}
	if err := h.service.RevokeUpdater(r.Context(), identity); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSample(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SampleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	activityID, err := id.ParseActivityID(req.ActivityID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid activity id"))
		return
	}

	result, err := h.service.SampleScore(ctx, activityID, req.Sources)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSampleResult(result))
}

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromState(state))
}

func (h *Handler) HandleActivityMetrics(w http.ResponseWriter, r *http.Request) {
	activityID, err := id.ParseActivityID(chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid activity id"))
		return
	}

	metrics, err := h.service.Metrics(r.Context(), activityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromActivityMetrics(metrics))
}
