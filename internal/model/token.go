package model

import "github.com/google/uuid"

// Purpose discriminates what a signed token may be used for. A challenge
// token can never be presented where a session token is expected and vice
// versa; separation is by claim, not by key.
type Purpose string

const (
	PurposeSession          Purpose = "session"
	PurposeTOTPChallenge    Purpose = "totp-challenge"
	PurposePasskeyChallenge Purpose = "passkey-challenge"
)

// TokenManager signs and verifies purpose-tagged bearer tokens.
type TokenManager interface {
	IssueSession(userID uuid.UUID, role Role) (string, error)
	// IssueChallenge mints a short-lived step-up token. The optional
	// ceremony payload carries pending ceremony state (e.g. a WebAuthn
	// challenge) so no server-side challenge store is needed.
	IssueChallenge(userID uuid.UUID, purpose Purpose, ceremony []byte) (string, error)
	ParseSession(token string) (Principal, error)
	ParseChallenge(token string, purpose Purpose) (userID uuid.UUID, ceremony []byte, err error)
}

// Principal is the identity carried by a verified session token.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}
