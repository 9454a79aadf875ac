package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/model"
)

// Session handles HTTP endpoints for session introspection.
type Session struct {
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewSession creates a new Session handler.
func NewSession(contextManager model.ContextManager, logger *logger.Logger) *Session {
	return &Session{contextManager: contextManager, logger: logger}
}

type sessionResponse struct {
	UserID uuid.UUID  `json:"userId"`
	Role   model.Role `json:"role"`
}

// Me returns the principal behind the presented session token. Reaching the
// handler at all means the token already passed verification.
func (h *Session) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{UserID: principal.UserID, Role: principal.Role})
}
