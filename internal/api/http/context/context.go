package context

import (
	"context"

	"github.com/authgate/authgate-server/internal/model"
)

type ctxKey int

// principalKey is the context key under which the authenticated principal
// is stored for the duration of a request.
const principalKey ctxKey = 0

// Manager represents an HTTP request context manager for principal
// operations. It provides methods to set and retrieve the authenticated
// principal from a request context.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetPrincipalToContext returns a new context carrying the principal.
func (m *Manager) SetPrincipalToContext(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// GetPrincipalFromContext retrieves the principal from the request context.
// The boolean reports whether a principal was present.
func (m *Manager) GetPrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(model.Principal)
	return principal, ok
}
