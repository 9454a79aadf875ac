package mocks

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/authgate/authgate-server/internal/model"
)

// TokenManager is a testify mock for model.TokenManager.
type TokenManager struct {
	mock.Mock
}

func (m *TokenManager) IssueSession(userID uuid.UUID, role model.Role) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

func (m *TokenManager) IssueChallenge(userID uuid.UUID, purpose model.Purpose, ceremony []byte) (string, error) {
	args := m.Called(userID, purpose, ceremony)
	return args.String(0), args.Error(1)
}

func (m *TokenManager) ParseSession(token string) (model.Principal, error) {
	args := m.Called(token)
	return args.Get(0).(model.Principal), args.Error(1)
}

func (m *TokenManager) ParseChallenge(token string, purpose model.Purpose) (uuid.UUID, []byte, error) {
	args := m.Called(token, purpose)
	var ceremony []byte
	if args.Get(1) != nil {
		ceremony = args.Get(1).([]byte)
	}
	return args.Get(0).(uuid.UUID), ceremony, args.Error(2)
}
