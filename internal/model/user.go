package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization claim carried by session tokens.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator
}

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Count(ctx context.Context) (int64, error)
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, id uuid.UUID) error
	ClearTOTP(ctx context.Context, id uuid.UUID) error
}

// User represents a stored user with authentication material.
// TOTPSecret is nil until enrollment begins and is cleared again on disable;
// TOTPEnabled is the authoritative switch for whether login requires step-up.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash []byte
	Role         Role
	TOTPSecret   *string
	TOTPEnabled  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary returns the client-facing view of the user, with no credential
// material.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Role: u.Role}
}

// UserSummary is the representation of a user exposed to clients.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// NormalizeEmail lowercases and trims an email address so lookups are
// case-insensitive against the stored normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
