package middleware

import (
	"net/http"
	"time"

	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request and stores
// it in the context. All window and duration checks inside a request observe
// this single timestamp, which is what makes them pure functions of "now".
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
