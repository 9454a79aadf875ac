package model

import "errors"

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when creating a user with an email that
	// already exists.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidCredentials covers both unknown email and wrong password
	// so the response class does not leak account existence.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized covers missing, malformed, expired or
	// wrong-purpose tokens. Expiry and signature failures are never
	// distinguished to the client.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the session is valid but the role is not
	// sufficient.
	ErrForbidden = errors.New("forbidden")

	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")

	ErrInvalidCode     = errors.New("invalid totp code")
	ErrAlreadyEnabled  = errors.New("totp already enabled")
	ErrNoPendingSecret = errors.New("no pending totp secret")
	ErrTOTPNotEnabled  = errors.New("totp not enabled")

	// ErrCeremonyFailed means cryptographic verification of a WebAuthn
	// response failed.
	ErrCeremonyFailed = errors.New("webauthn ceremony failed")

	// ErrReplayDetected means the authenticator reported a non-increasing
	// signature counter. Distinguished from ErrCeremonyFailed for audit.
	ErrReplayDetected = errors.New("signature counter replay detected")

	ErrCredentialNotRecognized = errors.New("credential not recognized")
	ErrNoCredentials           = errors.New("no passkey credentials registered")

	// ErrBootstrapClosed is returned once any user exists or the
	// bootstrap token does not match.
	ErrBootstrapClosed = errors.New("bootstrap closed")

	// ErrInvalidArgument is wrapped with a client-safe detail message.
	ErrInvalidArgument = errors.New("invalid argument")
)
