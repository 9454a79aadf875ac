package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/model"
)

const (
	totpPeriod = 30
	// One time-step of clock-skew tolerance either side absorbs small
	// drift without materially weakening the code search space.
	totpSkew = 1

	qrImageSize = 200
)

// timeNow is a seam for tests exercising clock skew.
var timeNow = time.Now

// TOTP manages the enroll -> confirm -> enabled -> disabled lifecycle of the
// time-based second factor and completes step-up logins.
type TOTP struct {
	userStore model.UserStore
	tokens    model.TokenManager
	issuer    string
	logger    *logger.Logger
}

// NewTOTP creates a new TOTP service. issuer names this relying party in
// authenticator apps.
func NewTOTP(userStore model.UserStore, tokens model.TokenManager, issuer string, logger *logger.Logger) *TOTP {
	return &TOTP{
		userStore: userStore,
		tokens:    tokens,
		issuer:    issuer,
		logger:    logger,
	}
}

// Enroll generates a fresh shared secret and stores it pending confirmation.
// Calling enroll again before confirmation overwrites the pending secret.
// The secret does not gate login until Confirm succeeds.
func (s *TOTP) Enroll(ctx context.Context, userID uuid.UUID) (model.TOTPEnrollment, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return model.TOTPEnrollment{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user.TOTPEnabled {
		return model.TOTPEnrollment{}, model.ErrAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return model.TOTPEnrollment{}, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	if err := s.userStore.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return model.TOTPEnrollment{}, fmt.Errorf("failed to store totp secret: %w", err)
	}

	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return model.TOTPEnrollment{}, fmt.Errorf("failed to render enrollment image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return model.TOTPEnrollment{}, fmt.Errorf("failed to encode enrollment image: %w", err)
	}

	s.logger.Info("TOTP service: enrollment started", "user_id", user.ID)
	return model.TOTPEnrollment{
		Secret: key.Secret(),
		URI:    key.String(),
		QRCode: buf.Bytes(),
	}, nil
}

// Confirm verifies a code against the pending secret and switches TOTP on.
func (s *TOTP) Confirm(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.TOTPEnabled {
		return model.ErrAlreadyEnabled
	}
	if user.TOTPSecret == nil {
		return model.ErrNoPendingSecret
	}

	if !s.validateCode(*user.TOTPSecret, code) {
		return model.ErrInvalidCode
	}

	if err := s.userStore.EnableTOTP(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to enable totp: %w", err)
	}

	s.logger.Info("TOTP service: enabled", "user_id", user.ID)
	return nil
}

// Disable verifies a current code and clears the secret.
func (s *TOTP) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !user.TOTPEnabled || user.TOTPSecret == nil {
		return model.ErrTOTPNotEnabled
	}

	if !s.validateCode(*user.TOTPSecret, code) {
		return model.ErrInvalidCode
	}

	if err := s.userStore.ClearTOTP(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to clear totp: %w", err)
	}

	s.logger.Info("TOTP service: disabled", "user_id", user.ID)
	return nil
}

// CompleteLogin consumes a totp-challenge token and a current code and
// issues the session the primary login withheld. The user record is not
// mutated. All verification failures surface as ErrUnauthorized.
func (s *TOTP) CompleteLogin(ctx context.Context, challengeToken, code string) (model.LoginResult, error) {
	userID, _, err := s.tokens.ParseChallenge(challengeToken, model.PurposeTOTPChallenge)
	if err != nil {
		if errors.Is(err, model.ErrTokenExpired) || errors.Is(err, model.ErrTokenInvalid) {
			return model.LoginResult{}, model.ErrUnauthorized
		}
		return model.LoginResult{}, err
	}

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.LoginResult{}, model.ErrUnauthorized
		}
		return model.LoginResult{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.TOTPEnabled || user.TOTPSecret == nil {
		return model.LoginResult{}, model.ErrUnauthorized
	}

	if !s.validateCode(*user.TOTPSecret, code) {
		s.logger.Info("TOTP service: step-up code rejected", "user_id", user.ID)
		return model.LoginResult{}, model.ErrUnauthorized
	}

	session, err := s.tokens.IssueSession(user.ID, user.Role)
	if err != nil {
		return model.LoginResult{}, fmt.Errorf("failed to issue session: %w", err)
	}

	s.logger.Info("TOTP service: step-up login completed", "user_id", user.ID)
	return model.LoginResult{
		Status:       model.LoginAuthenticated,
		SessionToken: session,
		User:         user.Summary(),
	}, nil
}

func (s *TOTP) validateCode(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, timeNow(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
