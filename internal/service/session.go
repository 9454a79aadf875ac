package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/authgate/authgate-server/internal/model"
)

// Session is the single place that mints final session tokens and the
// verifier other collaborators use as their authorization primitive.
type Session struct {
	tokens model.TokenManager
}

// NewSession creates a new Session service.
func NewSession(tokens model.TokenManager) *Session {
	return &Session{tokens: tokens}
}

// Issue mints a session token carrying the user's role.
func (s *Session) Issue(userID uuid.UUID, role model.Role) (string, error) {
	return s.tokens.IssueSession(userID, role)
}

// Verify resolves a session token to its principal. Expiry, signature and
// purpose failures all surface as ErrUnauthorized so the token structure
// cannot be probed.
func (s *Session) Verify(token string) (model.Principal, error) {
	principal, err := s.tokens.ParseSession(token)
	if err != nil {
		if errors.Is(err, model.ErrTokenExpired) || errors.Is(err, model.ErrTokenInvalid) {
			return model.Principal{}, model.ErrUnauthorized
		}
		return model.Principal{}, err
	}

	return principal, nil
}
