package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/model"
)

const defaultPasskeyName = "Passkey"

// Passkey runs the two-phase WebAuthn registration and authentication
// ceremonies. The pending ceremony state (webauthn.SessionData) is embedded
// in the signed challenge token, so no server-side state is held between
// the options and verify phases.
type Passkey struct {
	userStore    model.UserStore
	passkeyStore model.PasskeyStore
	tokens       model.TokenManager
	webAuthn     *webauthn.WebAuthn
	logger       *logger.Logger
}

// NewPasskey creates a new Passkey service for the given relying party.
func NewPasskey(
	userStore model.UserStore,
	passkeyStore model.PasskeyStore,
	tokens model.TokenManager,
	rpID, rpName, rpOrigin string,
	logger *logger.Logger,
) (*Passkey, error) {
	webAuthn, err := webauthn.New(&webauthn.Config{
		RPDisplayName: rpName,
		RPID:          rpID,
		RPOrigins:     []string{rpOrigin},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure webauthn: %w", err)
	}

	return &Passkey{
		userStore:    userStore,
		passkeyStore: passkeyStore,
		tokens:       tokens,
		webAuthn:     webAuthn,
		logger:       logger,
	}, nil
}

// RegistrationOptions holds the first-phase output of a ceremony: the
// payload for the browser and the challenge token binding the second phase.
type RegistrationOptions struct {
	Options        *protocol.CredentialCreation `json:"options"`
	ChallengeToken string                       `json:"challengeToken"`
}

// AuthenticationOptions is the login counterpart of RegistrationOptions.
type AuthenticationOptions struct {
	Options        *protocol.CredentialAssertion `json:"options"`
	ChallengeToken string                        `json:"challengeToken"`
}

// BeginRegistration builds registration options for an authenticated user.
// Existing credentials are excluded so the same authenticator cannot be
// registered twice.
func (s *Passkey) BeginRegistration(ctx context.Context, userID uuid.UUID) (RegistrationOptions, error) {
	wu, err := s.loadWebauthnUser(ctx, userID)
	if err != nil {
		return RegistrationOptions{}, err
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(wu.creds))
	for _, cred := range wu.creds {
		exclusions = append(exclusions, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: cred.CredentialID,
		})
	}

	options, session, err := s.webAuthn.BeginRegistration(wu, webauthn.WithExclusions(exclusions))
	if err != nil {
		return RegistrationOptions{}, fmt.Errorf("failed to begin registration: %w", err)
	}

	challenge, err := s.issueCeremonyToken(userID, session)
	if err != nil {
		return RegistrationOptions{}, err
	}

	s.logger.Info("Passkey service: registration ceremony started", "user_id", userID)
	return RegistrationOptions{Options: options, ChallengeToken: challenge}, nil
}

// FinishRegistration verifies the authenticator's registration response
// against the challenge embedded in the token and appends the credential.
// The token subject must match the authenticated caller, so a challenge
// minted for one account cannot register a credential on another.
func (s *Passkey) FinishRegistration(ctx context.Context, userID uuid.UUID, challengeToken string, response []byte, name string) (model.PasskeyCredential, error) {
	subject, session, err := s.parseCeremonyToken(challengeToken)
	if err != nil {
		return model.PasskeyCredential{}, err
	}
	if subject != userID {
		return model.PasskeyCredential{}, model.ErrUnauthorized
	}

	wu, err := s.loadWebauthnUser(ctx, userID)
	if err != nil {
		return model.PasskeyCredential{}, err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return model.PasskeyCredential{}, model.ErrCeremonyFailed
	}

	cred, err := s.webAuthn.CreateCredential(wu, session, parsed)
	if err != nil {
		s.logger.Info("Passkey service: registration verification failed", "user_id", userID)
		return model.PasskeyCredential{}, model.ErrCeremonyFailed
	}

	if name == "" {
		name = defaultPasskeyName
	}

	now := time.Now()
	saved, err := s.passkeyStore.Create(ctx, model.PasskeyCredential{
		ID:              uuid.New(),
		UserID:          userID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		Transports:      transportStrings(cred.Transport),
		SignCount:       cred.Authenticator.SignCount,
		DeviceType:      deviceType(cred),
		BackedUp:        cred.Flags.BackupState,
		Name:            name,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return model.PasskeyCredential{}, fmt.Errorf("failed to store passkey: %w", err)
	}

	s.logger.Info("Passkey service: credential registered", "user_id", userID, "passkey_id", saved.ID)
	return saved, nil
}

// BeginAuthentication builds login options listing the user's registered
// credentials. Users without passkeys get ErrNoCredentials.
func (s *Passkey) BeginAuthentication(ctx context.Context, email string) (AuthenticationOptions, error) {
	email = model.NormalizeEmail(email)

	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return AuthenticationOptions{}, model.ErrNoCredentials
		}
		return AuthenticationOptions{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	wu, err := s.loadWebauthnUser(ctx, user.ID)
	if err != nil {
		return AuthenticationOptions{}, err
	}
	if len(wu.creds) == 0 {
		return AuthenticationOptions{}, model.ErrNoCredentials
	}

	options, session, err := s.webAuthn.BeginLogin(wu)
	if err != nil {
		return AuthenticationOptions{}, fmt.Errorf("failed to begin authentication: %w", err)
	}

	challenge, err := s.issueCeremonyToken(user.ID, session)
	if err != nil {
		return AuthenticationOptions{}, err
	}

	s.logger.Info("Passkey service: authentication ceremony started", "user_id", user.ID)
	return AuthenticationOptions{Options: options, ChallengeToken: challenge}, nil
}

// FinishAuthentication verifies the assertion, enforces signature-counter
// monotonicity and issues a session. A non-increasing counter is a replay
// signal: the attempt is rejected and stored state stays unchanged.
func (s *Passkey) FinishAuthentication(ctx context.Context, challengeToken string, response []byte) (model.LoginResult, error) {
	subject, session, err := s.parseCeremonyToken(challengeToken)
	if err != nil {
		return model.LoginResult{}, err
	}

	user, err := s.userStore.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.LoginResult{}, model.ErrUnauthorized
		}
		return model.LoginResult{}, fmt.Errorf("failed to get user: %w", err)
	}

	wu, err := s.loadWebauthnUser(ctx, user.ID)
	if err != nil {
		return model.LoginResult{}, err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return model.LoginResult{}, model.ErrCeremonyFailed
	}

	stored, err := s.passkeyStore.GetByCredentialID(ctx, user.ID, parsed.RawID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.LoginResult{}, model.ErrCredentialNotRecognized
		}
		return model.LoginResult{}, fmt.Errorf("failed to get passkey: %w", err)
	}

	validated, err := s.webAuthn.ValidateLogin(wu, session, parsed)
	if err != nil {
		s.logger.Info("Passkey service: assertion verification failed", "user_id", user.ID)
		return model.LoginResult{}, model.ErrCeremonyFailed
	}
	if validated.Authenticator.CloneWarning {
		s.logger.Warn("Passkey service: replay detected", "user_id", user.ID, "passkey_id", stored.ID)
		return model.LoginResult{}, model.ErrReplayDetected
	}

	if err := s.recordSignCount(ctx, stored, validated.Authenticator.SignCount); err != nil {
		if errors.Is(err, model.ErrReplayDetected) {
			s.logger.Warn("Passkey service: replay detected", "user_id", user.ID, "passkey_id", stored.ID)
		}
		return model.LoginResult{}, err
	}

	sessionToken, err := s.tokens.IssueSession(user.ID, user.Role)
	if err != nil {
		return model.LoginResult{}, fmt.Errorf("failed to issue session: %w", err)
	}

	s.logger.Info("Passkey service: authentication completed", "user_id", user.ID, "passkey_id", stored.ID)
	return model.LoginResult{
		Status:       model.LoginAuthenticated,
		SessionToken: sessionToken,
		User:         user.Summary(),
	}, nil
}

// List returns the user's registered passkeys.
func (s *Passkey) List(ctx context.Context, userID uuid.UUID) ([]model.PasskeyCredential, error) {
	creds, err := s.passkeyStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list passkeys: %w", err)
	}

	return creds, nil
}

// Delete removes one of the caller's passkeys. Credentials owned by other
// users report ErrNotFound.
func (s *Passkey) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.passkeyStore.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("Passkey service: credential removed", "user_id", userID, "passkey_id", id)
	return nil
}

// recordSignCount persists the counter the authenticator reported.
// Authenticators that do not implement a counter always report zero; for
// those the stored value stays zero and nothing is written. Everything else
// must strictly increase.
func (s *Passkey) recordSignCount(ctx context.Context, stored model.PasskeyCredential, newCount uint32) error {
	if newCount == 0 && stored.SignCount == 0 {
		return nil
	}
	if newCount <= stored.SignCount {
		return model.ErrReplayDetected
	}

	return s.passkeyStore.BumpSignCount(ctx, stored.ID, newCount)
}

func (s *Passkey) issueCeremonyToken(userID uuid.UUID, session *webauthn.SessionData) (string, error) {
	ceremony, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ceremony state: %w", err)
	}

	challenge, err := s.tokens.IssueChallenge(userID, model.PurposePasskeyChallenge, ceremony)
	if err != nil {
		return "", fmt.Errorf("failed to issue challenge token: %w", err)
	}

	return challenge, nil
}

func (s *Passkey) parseCeremonyToken(challengeToken string) (uuid.UUID, webauthn.SessionData, error) {
	subject, ceremony, err := s.tokens.ParseChallenge(challengeToken, model.PurposePasskeyChallenge)
	if err != nil {
		if errors.Is(err, model.ErrTokenExpired) || errors.Is(err, model.ErrTokenInvalid) {
			return uuid.Nil, webauthn.SessionData{}, model.ErrUnauthorized
		}
		return uuid.Nil, webauthn.SessionData{}, err
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(ceremony, &session); err != nil {
		return uuid.Nil, webauthn.SessionData{}, model.ErrUnauthorized
	}

	return subject, session, nil
}

func (s *Passkey) loadWebauthnUser(ctx context.Context, userID uuid.UUID) (*webauthnUser, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	creds, err := s.passkeyStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list passkeys: %w", err)
	}

	return &webauthnUser{user: user, creds: creds}, nil
}

// webauthnUser adapts a stored user and its credentials to the webauthn.User
// interface.
type webauthnUser struct {
	user  model.User
	creds []model.PasskeyCredential
}

func (u *webauthnUser) WebAuthnID() []byte { return u.user.ID[:] }

func (u *webauthnUser) WebAuthnName() string { return u.user.Email }

func (u *webauthnUser) WebAuthnDisplayName() string { return u.user.Email }

func (u *webauthnUser) WebAuthnIcon() string { return "" }

func (u *webauthnUser) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, 0, len(u.creds))
	for _, c := range u.creds {
		creds = append(creds, webauthn.Credential{
			ID:              c.CredentialID,
			PublicKey:       c.PublicKey,
			AttestationType: c.AttestationType,
			Transport:       transportValues(c.Transports),
			Flags: webauthn.CredentialFlags{
				BackupEligible: c.BackedUp,
				BackupState:    c.BackedUp,
			},
			Authenticator: webauthn.Authenticator{
				SignCount: c.SignCount,
			},
		})
	}
	return creds
}

func transportStrings(transports []protocol.AuthenticatorTransport) []string {
	out := make([]string, 0, len(transports))
	for _, t := range transports {
		out = append(out, string(t))
	}
	return out
}

func transportValues(transports []string) []protocol.AuthenticatorTransport {
	out := make([]protocol.AuthenticatorTransport, 0, len(transports))
	for _, t := range transports {
		out = append(out, protocol.AuthenticatorTransport(t))
	}
	return out
}

func deviceType(cred *webauthn.Credential) string {
	if cred.Authenticator.Attachment != "" {
		return string(cred.Authenticator.Attachment)
	}
	return string(protocol.CrossPlatform)
}
