package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PasskeyStore defines persistence operations for registered WebAuthn
// credentials.
type PasskeyStore interface {
	Create(ctx context.Context, cred PasskeyCredential) (PasskeyCredential, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]PasskeyCredential, error)
	GetByCredentialID(ctx context.Context, userID uuid.UUID, credentialID []byte) (PasskeyCredential, error)
	// BumpSignCount sets the stored signature counter to newCount only if
	// newCount is strictly greater than the stored value. The conditional
	// update is atomic so concurrent assertions on the same credential
	// cannot both pass; a failed condition returns ErrReplayDetected.
	BumpSignCount(ctx context.Context, id uuid.UUID, newCount uint32) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// PasskeyCredential is one registered WebAuthn authenticator.
// SignCount only ever increases across successful authentications; a
// non-increasing counter on verification is a replay signal.
type PasskeyCredential struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	CredentialID    []byte
	PublicKey       []byte
	AttestationType string
	Transports      []string
	SignCount       uint32
	DeviceType      string
	BackedUp        bool
	Name            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Summary returns the client-facing view of the credential, with no key
// material.
func (c PasskeyCredential) Summary() PasskeySummary {
	return PasskeySummary{
		ID:         c.ID,
		Name:       c.Name,
		DeviceType: c.DeviceType,
		BackedUp:   c.BackedUp,
		CreatedAt:  c.CreatedAt,
	}
}

// PasskeySummary is the representation of a passkey exposed to clients.
type PasskeySummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	DeviceType string    `json:"deviceType"`
	BackedUp   bool      `json:"backedUp"`
	CreatedAt  time.Time `json:"createdAt"`
}
