package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// RequestID assigns a correlation id to each request unless the caller
// supplied one. The id travels through requestcontext into logs and audit
// events.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
