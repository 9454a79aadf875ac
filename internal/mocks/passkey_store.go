package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/authgate/authgate-server/internal/model"
)

// PasskeyStore is a testify mock for model.PasskeyStore.
type PasskeyStore struct {
	mock.Mock
}

func (m *PasskeyStore) Create(ctx context.Context, cred model.PasskeyCredential) (model.PasskeyCredential, error) {
	args := m.Called(ctx, cred)
	return args.Get(0).(model.PasskeyCredential), args.Error(1)
}

func (m *PasskeyStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PasskeyCredential, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.PasskeyCredential), args.Error(1)
}

func (m *PasskeyStore) GetByCredentialID(ctx context.Context, userID uuid.UUID, credentialID []byte) (model.PasskeyCredential, error) {
	args := m.Called(ctx, userID, credentialID)
	return args.Get(0).(model.PasskeyCredential), args.Error(1)
}

func (m *PasskeyStore) BumpSignCount(ctx context.Context, id uuid.UUID, newCount uint32) error {
	args := m.Called(ctx, id, newCount)
	return args.Error(0)
}

func (m *PasskeyStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}
