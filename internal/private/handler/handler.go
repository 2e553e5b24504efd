package handler

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tawf-labs/amana-reserve/internal/private"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/httputil"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// Service defines the private-deployment operations exposed over HTTP.
type Service interface {
	Initialize(ctx context.Context, admin id.Identity) (*private.State, error)
	Deploy(ctx context.Context, encryptedAmount [32]byte, activityHash id.ActivityID, attestation []byte) (*private.Activity, error)
	RecordScore(ctx context.Context, encryptedScore [32]byte, proof []byte) (*private.ScoreRecord, error)
	Commit(ctx context.Context, proof []byte) (*private.State, error)
	Reveal(ctx context.Context, activityHash id.ActivityID, authorization []byte) (*private.Activity, error)
	State(ctx context.Context) (*private.State, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/private/deployments", h.HandleDeploy)
	r.Post("/private/score", h.HandleRecordScore)
	r.Post("/private/commit", h.HandleCommit)
	r.Post("/private/reveal", h.HandleReveal)
	r.Get("/private", h.HandleState)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/private/init", h.HandleInitialize)
}

func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	state, err := h.service.Initialize(ctx, id.Identity(req.Admin))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromState(state))
}

func (h *Handler) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DeployRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	amount, err := decodeCiphertext(req.EncryptedAmount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	activityHash, err := id.ParseActivityID(req.ActivityHash)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid activity hash"))
		return
	}

	activity, err := h.service.Deploy(ctx, amount, activityHash, req.Attestation)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "private capital deployed",
		"request_id", requestID,
		"activity_hash", activity.ActivityHash,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromActivity(activity))
}

func (h *Handler) HandleRecordScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ScoreRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	score, err := decodeCiphertext(req.EncryptedScore)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.RecordScore(ctx, score, req.Proof)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ScoreResponse{
		EncryptedScore: hex.EncodeToString(record.EncryptedScore[:]),
		UpdatedAt:      record.UpdatedAt,
	})
}

func (h *Handler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CommitRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	state, err := h.service.Commit(ctx, req.Proof)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromState(state))
}

func (h *Handler) HandleReveal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RevealRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	activityHash, err := id.ParseActivityID(req.ActivityHash)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid activity hash"))
		return
	}

	activity, err := h.service.Reveal(ctx, activityHash, req.Authorization)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromActivity(activity))
}

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromState(state))
}

func decodeCiphertext(raw string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(raw)
	if err != nil || len(decoded) != len(out) {
		return out, dErrors.New(dErrors.CodeBadRequest, "ciphertext must be 32 hex-encoded bytes")
	}
	copy(out[:], decoded)
	return out, nil
}

// InitializeRequest is the body for POST /admin/private/init.
type InitializeRequest struct {
	Admin string `json:"admin"`
}

// DeployRequest is the body for POST /private/deployments. The amount is a
// hex-encoded 32-byte ciphertext; the attestation blob is base64 per
// encoding/json []byte handling.
type DeployRequest struct {
	EncryptedAmount string `json:"encrypted_amount"`
	ActivityHash    string `json:"activity_hash"`
	Attestation     []byte `json:"attestation"`
}

// ScoreRequest is the body for POST /private/score.
type ScoreRequest struct {
	EncryptedScore string `json:"encrypted_score"`
	Proof          []byte `json:"proof"`
}

// CommitRequest is the body for POST /private/commit.
type CommitRequest struct {
	Proof []byte `json:"proof"`
}

// RevealRequest is the body for POST /private/reveal.
type RevealRequest struct {
	ActivityHash  string `json:"activity_hash"`
	Authorization []byte `json:"authorization"`
}

// StateResponse is the public view of the private aggregate.
type StateResponse struct {
	Admin           string     `json:"admin"`
	ActivityCount   uint64     `json:"activity_count"`
	LastCommittedAt *time.Time `json:"last_committed_at,omitempty"`
}

func FromState(s *private.State) StateResponse {
	resp := StateResponse{Admin: string(s.Admin), ActivityCount: s.ActivityCount}
	if !s.LastCommittedAt.IsZero() {
		committedAt := s.LastCommittedAt
		resp.LastCommittedAt = &committedAt
	}
	return resp
}

// ActivityResponse is the public view of one private activity. The encrypted
// amount is returned as hex ciphertext; decryption happens off-system.
type ActivityResponse struct {
	ActivityHash    string    `json:"activity_hash"`
	EncryptedAmount string    `json:"encrypted_amount"`
	Deployer        string    `json:"deployer"`
	DeployedAt      time.Time `json:"deployed_at"`
	IsActive        bool      `json:"is_active"`
}

func FromActivity(a *private.Activity) ActivityResponse {
	return ActivityResponse{
		ActivityHash:    a.ActivityHash.String(),
		EncryptedAmount: hex.EncodeToString(a.EncryptedAmount[:]),
		Deployer:        string(a.Deployer),
		DeployedAt:      a.DeployedAt,
		IsActive:        a.IsActive,
	}
}

// ScoreResponse reports a stored enclave score ciphertext.
type ScoreResponse struct {
	EncryptedScore string    `json:"encrypted_score"`
	UpdatedAt      time.Time `json:"updated_at"`
}
