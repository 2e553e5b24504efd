package httpapi

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tawf-labs/amana-reserve/internal/platform/middleware"
	"github.com/tawf-labs/amana-reserve/internal/reserve"
	reservehandler "github.com/tawf-labs/amana-reserve/internal/reserve/handler"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
	"github.com/tawf-labs/amana-reserve/pkg/testutil"
)

const (
	signingKey = "router-test-key"
	adminToken = "router-admin-token"
)

func TestRouterSurface(t *testing.T) {
	testutil.Given(t, "the assembled router", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		svc := reserve.NewService(reserve.NewInMemoryStore(), tx.NewInMemoryRunner())
		h := reservehandler.New(svc, logger)

		router := NewRouter(Config{
			Logger:        logger,
			JWTSigningKey: signingKey,
			AdminToken:    adminToken,
			Handlers:      []Registrar{h},
			AdminHandlers: []AdminRegistrar{h},
		})

		testutil.When(t, "calling GET /healthz without credentials", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should respond ok", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})

		testutil.When(t, "calling GET /metrics without credentials", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should respond ok", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})

		testutil.When(t, "calling GET /reserve without a bearer token", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/reserve", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should reject the request", func(t *testing.T) {
				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
				}
			})
		})

		testutil.When(t, "calling an admin route with a bearer token but no admin token", func(t *testing.T) {
			token, err := middleware.NewToken(signingKey, "alice", time.Hour)
			if err != nil {
				t.Fatalf("failed to mint token: %v", err)
			}
			req := httptest.NewRequest(http.MethodPost, "/admin/reserve/init", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should reject the request", func(t *testing.T) {
				if rec.Code != http.StatusForbidden {
					t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
				}
			})
		})
	})
}
