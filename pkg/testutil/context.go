package testutil

import (
	"context"
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// ContextAt returns a context pinned to the given time, so window checks in
// services are deterministic under test.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// ContextAs returns a context pinned to the given time carrying a caller
// identity, matching what the auth middleware would produce.
func ContextAs(caller id.Identity, t time.Time) context.Context {
	return requestcontext.WithCallerID(ContextAt(t), caller)
}
