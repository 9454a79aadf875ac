package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/authgate/authgate-server/internal/model"
)

var _ model.PasskeyStore = (*PasskeyRepository)(nil)

type PasskeyRepository struct {
	db *Connection
}

func NewPasskeyRepository(db *Connection) *PasskeyRepository {
	return &PasskeyRepository{
		db: db,
	}
}

func (r *PasskeyRepository) Create(ctx context.Context, cred model.PasskeyCredential) (model.PasskeyCredential, error) {
	query := `INSERT INTO passkeys (id, user_id, credential_id, public_key, attestation_type, transports,
				sign_count, device_type, backed_up, name, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  RETURNING id, user_id, credential_id, public_key, attestation_type, transports,
				sign_count, device_type, backed_up, name, created_at, updated_at`

	var saved model.PasskeyCredential
	err := r.db.QueryRow(ctx, query,
		cred.ID, cred.UserID, cred.CredentialID, cred.PublicKey, cred.AttestationType, cred.Transports,
		cred.SignCount, cred.DeviceType, cred.BackedUp, cred.Name, cred.CreatedAt, cred.UpdatedAt,
	).Scan(
		&saved.ID, &saved.UserID, &saved.CredentialID, &saved.PublicKey, &saved.AttestationType, &saved.Transports,
		&saved.SignCount, &saved.DeviceType, &saved.BackedUp, &saved.Name, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.PasskeyCredential{}, fmt.Errorf("failed to create passkey: %w", err)
	}

	return saved, nil
}

func (r *PasskeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PasskeyCredential, error) {
	query := `SELECT id, user_id, credential_id, public_key, attestation_type, transports,
				sign_count, device_type, backed_up, name, created_at, updated_at
			  FROM passkeys WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list passkeys: %w", err)
	}
	defer rows.Close()

	creds := make([]model.PasskeyCredential, 0)
	for rows.Next() {
		var cred model.PasskeyCredential
		if err := rows.Scan(
			&cred.ID, &cred.UserID, &cred.CredentialID, &cred.PublicKey, &cred.AttestationType, &cred.Transports,
			&cred.SignCount, &cred.DeviceType, &cred.BackedUp, &cred.Name, &cred.CreatedAt, &cred.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan passkey: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read passkeys: %w", err)
	}

	return creds, nil
}

func (r *PasskeyRepository) GetByCredentialID(ctx context.Context, userID uuid.UUID, credentialID []byte) (model.PasskeyCredential, error) {
	query := `SELECT id, user_id, credential_id, public_key, attestation_type, transports,
				sign_count, device_type, backed_up, name, created_at, updated_at
			  FROM passkeys WHERE user_id = $1 AND credential_id = $2`

	var cred model.PasskeyCredential
	err := r.db.QueryRow(ctx, query, userID, credentialID).Scan(
		&cred.ID, &cred.UserID, &cred.CredentialID, &cred.PublicKey, &cred.AttestationType, &cred.Transports,
		&cred.SignCount, &cred.DeviceType, &cred.BackedUp, &cred.Name, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PasskeyCredential{}, model.ErrNotFound
		}
		return model.PasskeyCredential{}, fmt.Errorf("failed to get passkey by credential id: %w", err)
	}

	return cred, nil
}

// BumpSignCount advances the signature counter with a conditional update so
// two concurrent assertions on the same credential cannot both pass. The
// caller is expected to hold a row it just read, so an unmatched condition
// means the counter did not strictly increase.
func (r *PasskeyRepository) BumpSignCount(ctx context.Context, id uuid.UUID, newCount uint32) error {
	query := `UPDATE passkeys SET sign_count = $2, updated_at = now()
			  WHERE id = $1 AND sign_count < $2`

	tag, err := r.db.Exec(ctx, query, id, int64(newCount))
	if err != nil {
		return fmt.Errorf("failed to update sign count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrReplayDetected
	}

	return nil
}

func (r *PasskeyRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	// Scoped by user_id: deleting another user's credential reports not
	// found rather than succeeding.
	query := `DELETE FROM passkeys WHERE id = $1 AND user_id = $2`

	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete passkey: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}
