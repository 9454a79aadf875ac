package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/authgate-server/internal/mocks"
	"github.com/authgate/authgate-server/internal/model"
	"github.com/authgate/authgate-server/internal/testutil"
	"github.com/authgate/authgate-server/internal/token"
)

func hashPassword(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func newTokenManager() model.TokenManager {
	return token.NewJWT("test-secret", "", time.Hour, 5*time.Minute)
}

func TestAuth_PasswordLogin_Direct(t *testing.T) {
	ctx := context.Background()
	userStore := &mocks.UserStore{}
	tokens := newTokenManager()

	user := model.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         model.RoleOperator,
	}
	userStore.On("GetByEmail", mock.Anything, "user@example.com").Return(user, nil)

	a := NewAuth(userStore, tokens, "", testutil.MakeNoopLogger())

	result, err := a.PasswordLogin(ctx, "User@Example.COM ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, model.LoginAuthenticated, result.Status)
	assert.Empty(t, result.ChallengeToken)
	assert.Equal(t, user.ID, result.User.ID)

	principal, err := tokens.ParseSession(result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, model.RoleOperator, principal.Role)
}

func TestAuth_PasswordLogin_StepUpRequired(t *testing.T) {
	ctx := context.Background()
	userStore := &mocks.UserStore{}
	tokens := newTokenManager()

	secret := "JBSWY3DPEHPK3PXP"
	user := model.User{
		ID:           uuid.New(),
		Email:        "mfa@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         model.RoleAdmin,
		TOTPSecret:   &secret,
		TOTPEnabled:  true,
	}
	userStore.On("GetByEmail", mock.Anything, "mfa@example.com").Return(user, nil)

	a := NewAuth(userStore, tokens, "", testutil.MakeNoopLogger())

	result, err := a.PasswordLogin(ctx, "mfa@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, model.LoginStepUpRequired, result.Status)
	assert.Empty(t, result.SessionToken)

	// The challenge is a totp-challenge token for this user, never a session.
	_, err = tokens.ParseSession(result.ChallengeToken)
	require.Error(t, err)
	subject, _, err := tokens.ParseChallenge(result.ChallengeToken, model.PurposeTOTPChallenge)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)
}

func TestAuth_PasswordLogin_PendingSecretDoesNotGate(t *testing.T) {
	ctx := context.Background()
	userStore := &mocks.UserStore{}
	tokens := newTokenManager()

	// Enrolled but never confirmed: secret stored, enabled still false.
	secret := "JBSWY3DPEHPK3PXP"
	user := model.User{
		ID:           uuid.New(),
		Email:        "pending@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         model.RoleOperator,
		TOTPSecret:   &secret,
		TOTPEnabled:  false,
	}
	userStore.On("GetByEmail", mock.Anything, "pending@example.com").Return(user, nil)

	a := NewAuth(userStore, tokens, "", testutil.MakeNoopLogger())

	result, err := a.PasswordLogin(ctx, "pending@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, model.LoginAuthenticated, result.Status)
}

func TestAuth_PasswordLogin_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	userStore := &mocks.UserStore{}
	tokens := newTokenManager()

	user := model.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         model.RoleOperator,
	}
	userStore.On("GetByEmail", mock.Anything, "user@example.com").Return(user, nil)
	userStore.On("GetByEmail", mock.Anything, "ghost@example.com").Return(model.User{}, model.ErrNotFound)

	a := NewAuth(userStore, tokens, "", testutil.MakeNoopLogger())

	// Wrong password and unknown user produce the same error.
	_, err := a.PasswordLogin(ctx, "user@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = a.PasswordLogin(ctx, "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = a.PasswordLogin(ctx, "", "")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestAuth_PasswordLogin_IssueFailure(t *testing.T) {
	ctx := context.Background()
	userStore := &mocks.UserStore{}

	user := model.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         model.RoleOperator,
	}
	userStore.On("GetByEmail", mock.Anything, "user@example.com").Return(user, nil)

	tokens := &mocks.TokenManager{}
	tokens.On("IssueSession", user.ID, model.RoleOperator).Return("", assert.AnError)

	a := NewAuth(userStore, tokens, "", testutil.MakeNoopLogger())

	_, err := a.PasswordLogin(ctx, "user@example.com", "correct horse")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestAuth_Bootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_first_admin", func(t *testing.T) {
		userStore := &mocks.UserStore{}
		userStore.On("Count", mock.Anything).Return(int64(0), nil)
		userStore.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
			return u.Email == "admin@example.com" && u.Role == model.RoleAdmin
		})).Return(model.User{ID: uuid.New(), Email: "admin@example.com", Role: model.RoleAdmin}, nil)

		a := NewAuth(userStore, newTokenManager(), "seed-token", testutil.MakeNoopLogger())

		summary, err := a.Bootstrap(ctx, "seed-token", "Admin@Example.com", "ChangeMe123!")
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, summary.Role)
		userStore.AssertExpectations(t)
	})

	t.Run("closed_when_users_exist", func(t *testing.T) {
		userStore := &mocks.UserStore{}
		userStore.On("Count", mock.Anything).Return(int64(1), nil)

		a := NewAuth(userStore, newTokenManager(), "seed-token", testutil.MakeNoopLogger())

		_, err := a.Bootstrap(ctx, "seed-token", "admin@example.com", "ChangeMe123!")
		assert.ErrorIs(t, err, model.ErrBootstrapClosed)
	})

	t.Run("wrong_or_unconfigured_token", func(t *testing.T) {
		a := NewAuth(&mocks.UserStore{}, newTokenManager(), "seed-token", testutil.MakeNoopLogger())
		_, err := a.Bootstrap(ctx, "other", "admin@example.com", "ChangeMe123!")
		assert.ErrorIs(t, err, model.ErrBootstrapClosed)

		disabled := NewAuth(&mocks.UserStore{}, newTokenManager(), "", testutil.MakeNoopLogger())
		_, err = disabled.Bootstrap(ctx, "", "admin@example.com", "ChangeMe123!")
		assert.ErrorIs(t, err, model.ErrBootstrapClosed)
	})

	t.Run("weak_password", func(t *testing.T) {
		userStore := &mocks.UserStore{}
		userStore.On("Count", mock.Anything).Return(int64(0), nil)

		a := NewAuth(userStore, newTokenManager(), "seed-token", testutil.MakeNoopLogger())

		_, err := a.Bootstrap(ctx, "seed-token", "admin@example.com", "short")
		require.ErrorIs(t, err, model.ErrInvalidArgument)
	})
}
