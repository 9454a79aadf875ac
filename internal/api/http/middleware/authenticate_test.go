package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apicontext "github.com/authgate/authgate-server/internal/api/http/context"
	"github.com/authgate/authgate-server/internal/model"
	"github.com/authgate/authgate-server/internal/testutil"
)

type verifierStub struct {
	principal model.Principal
	err       error
}

func (v verifierStub) Verify(string) (model.Principal, error) {
	return v.principal, v.err
}

func TestAuthenticate_Handle(t *testing.T) {
	t.Parallel()

	principal := model.Principal{UserID: uuid.New(), Role: model.RoleOperator}

	tests := []struct {
		name       string
		authHeader string
		verifyErr  error
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "missing authorization header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "header without bearer scheme",
			authHeader: "Token abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer invalid",
			verifyErr:  model.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid token",
			authHeader: "Bearer token",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cm := apicontext.NewManager()
			m := NewAuthenticate(verifierStub{principal: principal, err: tt.verifyErr}, cm, testutil.MakeNoopLogger())

			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				got, ok := cm.GetPrincipalFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, principal, got)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/passkeys", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			m.Handle(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantNext, nextCalled)
			if !tt.wantNext {
				assert.JSONEq(t, `{"error":"`+errMessage(tt.verifyErr)+`"}`, rec.Body.String())
			}
		})
	}
}

func errMessage(verifyErr error) string {
	if verifyErr != nil {
		return "invalid authorization token"
	}
	return "missing authorization token"
}

func TestAuthenticate_RequireRole(t *testing.T) {
	t.Parallel()

	cm := apicontext.NewManager()
	m := NewAuthenticate(verifierStub{}, cm, testutil.MakeNoopLogger())

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("matching role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := cm.SetPrincipalToContext(req.Context(), model.Principal{UserID: uuid.New(), Role: model.RoleAdmin})
		rec := httptest.NewRecorder()

		m.RequireRole(model.RoleAdmin, next).ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("insufficient role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := cm.SetPrincipalToContext(req.Context(), model.Principal{UserID: uuid.New(), Role: model.RoleOperator})
		rec := httptest.NewRecorder()

		m.RequireRole(model.RoleAdmin, next).ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		m.RequireRole(model.RoleAdmin, next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
