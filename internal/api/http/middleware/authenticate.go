package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/model"
)

// SessionVerifier resolves the principal behind a session token.
type SessionVerifier interface {
	Verify(token string) (model.Principal, error)
}

// Authenticate validates bearer session tokens and injects the principal
// into the request context.
type Authenticate struct {
	sessions       SessionVerifier
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(sessions SessionVerifier, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{sessions: sessions, contextManager: contextManager, logger: logger}
}

// Handle parses the Authorization header, verifies the session token and
// passes the request on with the principal in context. Requests without a
// valid session token get 401.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		principal, err := m.sessions.Verify(tokenString)
		if err != nil {
			m.logger.Info("Authenticate middleware: token rejected", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "invalid authorization token")
			return
		}

		ctx := m.contextManager.SetPrincipalToContext(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a handler behind a role. It must run after Handle so a
// principal is present in context.
func (m *Authenticate) RequireRole(role model.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := m.contextManager.GetPrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}
		if principal.Role != role {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return ""
	}
	return token
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
