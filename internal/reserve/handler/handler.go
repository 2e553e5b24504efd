package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tawf-labs/amana-reserve/internal/reserve"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/httputil"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// Service defines the reserve operations exposed over HTTP.
type Service interface {
	Initialize(ctx context.Context, admin id.Identity, minContribution, maxParticipants uint64) (*reserve.Reserve, error)
	Join(ctx context.Context, amount uint64) (*reserve.Participant, error)
	Deposit(ctx context.Context, amount uint64) (*reserve.Participant, error)
	Withdraw(ctx context.Context, amount uint64) (*reserve.Participant, error)
	Deactivate(ctx context.Context, identity id.Identity) error
	State(ctx context.Context) (*reserve.Reserve, error)
	Participant(ctx context.Context, identity id.Identity) (*reserve.Participant, error)
	Participants(ctx context.Context) ([]reserve.Participant, error)
}

// Handler wires reserve endpoints to the reserve service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts participant-facing reserve endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/reserve/join", h.HandleJoin)
	r.Post("/reserve/deposit", h.HandleDeposit)
	r.Post("/reserve/withdraw", h.HandleWithdraw)
	r.Post("/reserve/deactivate", h.HandleDeactivate)
	r.Get("/reserve", h.HandleState)
	r.Get("/reserve/participants", h.HandleParticipants)
	r.Get("/reserve/participants/{identity}", h.HandleParticipant)
}

// RegisterAdmin mounts endpoints that sit behind the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/reserve/init", h.HandleInitialize)
}

func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	state, err := h.service.Initialize(ctx, id.Identity(req.Admin), req.MinContribution, req.MaxParticipants)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromReserve(state))
}

func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	h.capitalMove(w, r, h.service.Join, http.StatusCreated, "participant joined")
}

func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.capitalMove(w, r, h.service.Deposit, http.StatusOK, "capital deposited")
}

func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.capitalMove(w, r, h.service.Withdraw, http.StatusOK, "capital withdrawn")
}

// capitalMove handles the shared decode/respond shape of join, deposit, and
// withdraw.
func (h *Handler) capitalMove(w http.ResponseWriter, r *http.Request, op func(context.Context, uint64) (*reserve.Participant, error), status int, msg string) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AmountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	participant, err := op(ctx, req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, msg,
		"request_id", requestID,
		"identity", participant.Identity,
		"amount", req.Amount,
	)
	httputil.WriteJSON(w, status, FromParticipant(participant))
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[DeactivateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	identity := id.Identity(req.Identity)
	if identity.IsZero() {
		identity = requestcontext.CallerID(ctx)
	}
	if err := h.service.Deactivate(ctx, identity); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReserve(state))
}

func (h *Handler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.service.Participants(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]ParticipantResponse, 0, len(participants))
	for i := range participants {
		out = append(out, FromParticipant(&participants[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleParticipant(w http.ResponseWriter, r *http.Request) {
	identity := id.Identity(chi.URLParam(r, "identity"))
	if identity.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identity is required"))
		return
	}

	participant, err := h.service.Participant(r.Context(), identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromParticipant(participant))
}
