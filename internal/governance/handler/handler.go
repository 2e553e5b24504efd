package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tawf-labs/amana-reserve/internal/governance"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/httputil"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// Service defines the governance operations exposed over HTTP.
type Service interface {
	Initialize(ctx context.Context, admin id.Identity, votingDelay, votingPeriod time.Duration, quorumBps uint16) (*governance.Config, error)
	CreateProposal(ctx context.Context, target id.Identity, amount uint64, affectsComplianceDomain bool) (*governance.Proposal, error)
	Vote(ctx context.Context, proposalID id.ProposalID, choice governance.VoteChoice, weight uint64) (*governance.Proposal, error)
	Review(ctx context.Context, proposalID id.ProposalID, approved bool) (*governance.Review, error)
	Execute(ctx context.Context, proposalID id.ProposalID) (*governance.Proposal, error)
	Cancel(ctx context.Context, proposalID id.ProposalID) (*governance.Proposal, error)
	AddBoardMember(ctx context.Context, identity id.Identity) error
	RemoveBoardMember(ctx context.Context, identity id.Identity) error
	Proposal(ctx context.Context, proposalID id.ProposalID) (*governance.Proposal, error)
	Proposals(ctx context.Context) ([]governance.Proposal, error)
	Reviews(ctx context.Context, proposalID id.ProposalID) ([]governance.Review, error)
	BoardMembers(ctx context.Context) ([]governance.BoardMember, error)
}

// Handler wires governance endpoints to the governance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts voter-facing governance endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/governance/proposals", h.HandleCreateProposal)
	r.Post("/governance/proposals/{proposalID}/votes", h.HandleVote)
	r.Post("/governance/proposals/{proposalID}/reviews", h.HandleReview)
	r.Post("/governance/proposals/{proposalID}/execute", h.HandleExecute)
	r.Post("/governance/proposals/{proposalID}/cancel", h.HandleCancel)
	r.Get("/governance/proposals", h.HandleListProposals)
	r.Get("/governance/proposals/{proposalID}", h.HandleGetProposal)
	r.Get("/governance/proposals/{proposalID}/reviews", h.HandleListReviews)
	r.Get("/governance/board", h.HandleListBoard)
}

// RegisterAdmin mounts setup and board management behind the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/governance/init", h.HandleInitialize)
	r.Post("/governance/board", h.HandleAddBoardMember)
	r.Delete("/governance/board/{identity}", h.HandleRemoveBoardMember)
}

func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	config, err := h.service.Initialize(ctx, id.Identity(req.Admin),
		time.Duration(req.VotingDelaySeconds)*time.Second,
		time.Duration(req.VotingPeriodSeconds)*time.Second,
		req.QuorumBps)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromConfig(config))
}

func (h *Handler) HandleCreateProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateProposalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	proposal, err := h.service.CreateProposal(ctx, id.Identity(req.Target), req.Amount, req.AffectsComplianceDomain)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "proposal created",
		"request_id", requestID,
		"proposal_id", proposal.ID,
		"affects_compliance_domain", proposal.AffectsComplianceDomain,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromProposal(proposal))
}

func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	proposalID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	proposal, err := h.service.Vote(ctx, proposalID, governance.VoteChoice(req.Choice), req.Weight)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProposal(proposal))
}

func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	proposalID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	review, err := h.service.Review(ctx, proposalID, req.Approved)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromReview(review))
}

func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Execute)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, id.ProposalID) (*governance.Proposal, error)) {
	proposalID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	proposal, err := op(r.Context(), proposalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProposal(proposal))
}

func (h *Handler) HandleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	proposal, err := h.service.Proposal(r.Context(), proposalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProposal(proposal))
}

func (h *Handler) HandleListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.service.Proposals(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]ProposalResponse, 0, len(proposals))
	for i := range proposals {
		out = append(out, FromProposal(&proposals[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	reviews, err := h.service.Reviews(r.Context(), proposalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, FromReview(&reviews[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleListBoard(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.BoardMembers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]BoardMemberResponse, 0, len(members))
	for i := range members {
		out = append(out, FromBoardMember(&members[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleAddBoardMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[BoardMemberRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.AddBoardMember(ctx, id.Identity(req.Identity)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveBoardMember(w http.ResponseWriter, r *http.Request) {
	identity := id.Identity(chi.URLParam(r, "identity"))
	if identity.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identity is required"))
		return
	}
	if err := h.service.RemoveBoardMember(r.Context(), identity); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (id.ProposalID, bool) {
	raw := chi.URLParam(r, "proposalID")
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid proposal id"))
		return 0, false
	}
	return id.ProposalID(parsed), true
}
