package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate-server/internal/model"
	"github.com/authgate/authgate-server/internal/token"
)

func TestSession_IssueAndVerify(t *testing.T) {
	s := NewSession(newTokenManager())
	u := uuid.New()

	tokenString, err := s.Issue(u, model.RoleAdmin)
	require.NoError(t, err)

	principal, err := s.Verify(tokenString)
	require.NoError(t, err)
	assert.Equal(t, u, principal.UserID)
	assert.Equal(t, model.RoleAdmin, principal.Role)
}

func TestSession_Verify_Unauthorized(t *testing.T) {
	s := NewSession(newTokenManager())

	_, err := s.Verify("garbage")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	// Challenge tokens are not sessions.
	challenge, err := newTokenManager().IssueChallenge(uuid.New(), model.PurposeTOTPChallenge, nil)
	require.NoError(t, err)
	_, err = s.Verify(challenge)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	// Expired sessions surface the same way as invalid ones.
	expired := NewSession(token.NewJWT("test-secret", "", -time.Minute, 5*time.Minute))
	tokenString, err := expired.Issue(uuid.New(), model.RoleOperator)
	require.NoError(t, err)
	_, err = s.Verify(tokenString)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}
