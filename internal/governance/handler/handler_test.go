package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tawf-labs/amana-reserve/internal/governance"
	"github.com/tawf-labs/amana-reserve/internal/platform/middleware"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

const (
	signingKey = "test-signing-key"
	adminToken = "secret-token"
)

// testClock pins the request time so voting windows can be stepped through
// deterministically.
type testClock struct {
	now time.Time
}

func (c *testClock) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), c.now)))
	})
}

func TestProposalLifecycleViaHandlers(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	router := newGovernanceRouter(t, clock)
	initGovernance(t, router)

	body, _ := json.Marshal(map[string]any{"target": "treasury", "amount": 10_000})
	rec := doJSON(t, router, http.MethodPost, "/governance/proposals", "alice", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating proposal, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID             uint64    `json:"id"`
		Status         string    `json:"status"`
		VotingStartsAt time.Time `json:"voting_starts_at"`
		VotingEndsAt   time.Time `json:"voting_ends_at"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode proposal response: %v", err)
	}
	if created.ID != 1 || created.Status != "pending" {
		t.Fatalf("unexpected proposal: %+v", created)
	}

	// Voting has not started yet.
	voteBody, _ := json.Marshal(map[string]any{"choice": "for", "weight": 5})
	rec = doJSON(t, router, http.MethodPost, "/governance/proposals/1/votes", "bob", voteBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 voting before the window opens, got %d: %s", rec.Code, rec.Body.String())
	}

	// Step past the delay and vote.
	clock.now = created.VotingStartsAt.Add(time.Minute)
	rec = doJSON(t, router, http.MethodPost, "/governance/proposals/1/votes", "bob", voteBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 voting, got %d: %s", rec.Code, rec.Body.String())
	}

	var voted struct {
		Status   string `json:"status"`
		ForVotes uint64 `json:"for_votes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&voted); err != nil {
		t.Fatalf("failed to decode vote response: %v", err)
	}
	if voted.Status != "active" || voted.ForVotes != 5 {
		t.Fatalf("unexpected tally after vote: %+v", voted)
	}

	// Step past the window and execute.
	clock.now = created.VotingEndsAt.Add(time.Minute)
	rec = doJSON(t, router, http.MethodPost, "/governance/proposals/1/execute", "bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 executing, got %d: %s", rec.Code, rec.Body.String())
	}

	var executed struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&executed); err != nil {
		t.Fatalf("failed to decode execute response: %v", err)
	}
	if executed.Status != "executed" {
		t.Fatalf("expected executed status, got %q", executed.Status)
	}
}

func TestBoardManagementViaHandlers(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	router := newGovernanceRouter(t, clock)
	initGovernance(t, router)

	body, _ := json.Marshal(map[string]any{"identity": "scholar-one"})
	req := httptest.NewRequest(http.MethodPost, "/admin/governance/board", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "dao-admin"))
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 adding board member, got %d: %s", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/governance/board", nil)
	listReq.Header.Set("Authorization", bearer(t, "bob"))
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing board, got %d", listRec.Code)
	}

	var members []struct {
		Identity string `json:"identity"`
	}
	if err := json.NewDecoder(listRec.Body).Decode(&members); err != nil {
		t.Fatalf("failed to decode board response: %v", err)
	}
	if len(members) != 1 || members[0].Identity != "scholar-one" {
		t.Fatalf("unexpected board roster: %+v", members)
	}
}

func TestInvalidProposalIDRejected(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	router := newGovernanceRouter(t, clock)
	initGovernance(t, router)

	req := httptest.NewRequest(http.MethodGet, "/governance/proposals/0", nil)
	req.Header.Set("Authorization", bearer(t, "bob"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for proposal id 0, got %d", rec.Code)
	}
}

func newGovernanceRouter(t *testing.T, clock *testClock) http.Handler {
	t.Helper()
	store := governance.NewInMemoryStore()
	svc := governance.NewService(store, tx.NewInMemoryRunner())
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h := New(svc, logger)
	r := chi.NewRouter()
	r.Use(clock.middleware)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(signingKey, logger))
		h.Register(r)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(adminToken, logger))
			h.RegisterAdmin(r)
		})
	})
	return r
}

func initGovernance(t *testing.T, router http.Handler) {
	t.Helper()
	body, _ := json.Marshal(map[string]any{
		"admin":                 "dao-admin",
		"voting_delay_seconds":  3600,
		"voting_period_seconds": 259200,
		"quorum_bps":            2000,
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/governance/init", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "dao-admin"))
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 initializing governance, got %d: %s", rec.Code, rec.Body.String())
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, caller id.Identity, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, caller))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, caller id.Identity) string {
	t.Helper()
	token, err := middleware.NewToken(signingKey, caller, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return "Bearer " + token
}
