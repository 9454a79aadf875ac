package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/model"
)

// dummyPasswordHash is compared against when the email is unknown so the
// unknown-user and wrong-password paths behave the same.
var dummyPasswordHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Auth verifies primary (email+password) credentials and decides whether a
// second factor is required before a session is issued. It also owns the
// one-time first-user bootstrap.
type Auth struct {
	userStore      model.UserStore
	tokens         model.TokenManager
	bootstrapToken string
	logger         *logger.Logger
}

// NewAuth creates a new Auth service.
func NewAuth(userStore model.UserStore, tokens model.TokenManager, bootstrapToken string, logger *logger.Logger) *Auth {
	return &Auth{
		userStore:      userStore,
		tokens:         tokens,
		bootstrapToken: bootstrapToken,
		logger:         logger,
	}
}

// PasswordLogin verifies email+password. When the user has TOTP enabled the
// result is a step-up challenge token instead of a session; a pending
// (unconfirmed) TOTP secret does not gate login.
func (s *Auth) PasswordLogin(ctx context.Context, email, password string) (model.LoginResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return model.LoginResult{}, model.ErrInvalidCredentials
	}

	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// Burn a hash comparison so unknown users are not
			// distinguishable by response time.
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return model.LoginResult{}, model.ErrInvalidCredentials
		}
		return model.LoginResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.logger.Info("Auth service: password mismatch", "user_id", user.ID)
		return model.LoginResult{}, model.ErrInvalidCredentials
	}

	if user.TOTPEnabled {
		challenge, err := s.tokens.IssueChallenge(user.ID, model.PurposeTOTPChallenge, nil)
		if err != nil {
			return model.LoginResult{}, fmt.Errorf("failed to issue totp challenge: %w", err)
		}

		s.logger.Info("Auth service: password accepted, step-up required", "user_id", user.ID)
		return model.LoginResult{
			Status:         model.LoginStepUpRequired,
			ChallengeToken: challenge,
		}, nil
	}

	session, err := s.tokens.IssueSession(user.ID, user.Role)
	if err != nil {
		return model.LoginResult{}, fmt.Errorf("failed to issue session: %w", err)
	}

	s.logger.Info("Auth service: login completed", "user_id", user.ID)
	return model.LoginResult{
		Status:       model.LoginAuthenticated,
		SessionToken: session,
		User:         user.Summary(),
	}, nil
}

// Bootstrap creates the very first user as an admin. It refuses once any
// user exists or when the presented token does not match the configured
// bootstrap token.
func (s *Auth) Bootstrap(ctx context.Context, token, email, password string) (model.UserSummary, error) {
	if s.bootstrapToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(s.bootstrapToken)) != 1 {
		return model.UserSummary{}, model.ErrBootstrapClosed
	}

	count, err := s.userStore.Count(ctx)
	if err != nil {
		return model.UserSummary{}, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return model.UserSummary{}, model.ErrBootstrapClosed
	}

	email = model.NormalizeEmail(email)
	if email == "" || len(password) < 8 {
		return model.UserSummary{}, fmt.Errorf("%w: email and a password of at least 8 characters are required", model.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.UserSummary{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user, err := s.userStore.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.UserSummary{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Auth service: bootstrap user created", "user_id", user.ID)
	return user.Summary(), nil
}
