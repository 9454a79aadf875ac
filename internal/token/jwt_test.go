package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate-server/internal/model"
)

func TestJWT_Session_Roundtrip(t *testing.T) {
	j := NewJWT("secret", "", time.Hour, 5*time.Minute)
	u := uuid.New()

	tokenString, err := j.IssueSession(u, model.RoleAdmin)
	require.NoError(t, err)

	principal, err := j.ParseSession(tokenString)
	require.NoError(t, err)
	require.Equal(t, u, principal.UserID)
	require.Equal(t, model.RoleAdmin, principal.Role)
}

func TestJWT_Challenge_Roundtrip(t *testing.T) {
	j := NewJWT("secret", "", time.Hour, 5*time.Minute)
	u := uuid.New()
	ceremony := []byte(`{"challenge":"abc"}`)

	tokenString, err := j.IssueChallenge(u, model.PurposePasskeyChallenge, ceremony)
	require.NoError(t, err)

	gotUser, gotCeremony, err := j.ParseChallenge(tokenString, model.PurposePasskeyChallenge)
	require.NoError(t, err)
	require.Equal(t, u, gotUser)
	require.JSONEq(t, string(ceremony), string(gotCeremony))
}

func TestJWT_PurposeIsolation(t *testing.T) {
	j := NewJWT("secret", "", time.Hour, 5*time.Minute)
	u := uuid.New()

	session, err := j.IssueSession(u, model.RoleOperator)
	require.NoError(t, err)
	totpChallenge, err := j.IssueChallenge(u, model.PurposeTOTPChallenge, nil)
	require.NoError(t, err)
	passkeyChallenge, err := j.IssueChallenge(u, model.PurposePasskeyChallenge, nil)
	require.NoError(t, err)

	_, _, err = j.ParseChallenge(session, model.PurposeTOTPChallenge)
	require.ErrorIs(t, err, model.ErrTokenInvalid)

	_, err = j.ParseSession(totpChallenge)
	require.ErrorIs(t, err, model.ErrTokenInvalid)

	_, _, err = j.ParseChallenge(totpChallenge, model.PurposePasskeyChallenge)
	require.ErrorIs(t, err, model.ErrTokenInvalid)

	_, _, err = j.ParseChallenge(passkeyChallenge, model.PurposeTOTPChallenge)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestJWT_IssueChallenge_RejectsSessionPurpose(t *testing.T) {
	j := NewJWT("secret", "", time.Hour, 5*time.Minute)

	_, err := j.IssueChallenge(uuid.New(), model.PurposeSession, nil)
	require.Error(t, err)
}

func TestJWT_Expiry(t *testing.T) {
	j := &JWT{secret: []byte("secret"), sessionTTL: -time.Minute, challengeTTL: -time.Minute}
	u := uuid.New()

	session, err := j.IssueSession(u, model.RoleAdmin)
	require.NoError(t, err)
	_, err = j.ParseSession(session)
	require.ErrorIs(t, err, model.ErrTokenExpired)

	challenge, err := j.IssueChallenge(u, model.PurposeTOTPChallenge, nil)
	require.NoError(t, err)
	_, _, err = j.ParseChallenge(challenge, model.PurposeTOTPChallenge)
	require.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestJWT_WrongSecret(t *testing.T) {
	issuer := NewJWT("secret-a", "", time.Hour, 5*time.Minute)
	verifier := NewJWT("secret-b", "", time.Hour, 5*time.Minute)

	tokenString, err := issuer.IssueSession(uuid.New(), model.RoleAdmin)
	require.NoError(t, err)

	_, err = verifier.ParseSession(tokenString)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestJWT_Malformed(t *testing.T) {
	j := NewJWT("secret", "", time.Hour, 5*time.Minute)

	_, err := j.ParseSession("not-a-token")
	require.ErrorIs(t, err, model.ErrTokenInvalid)

	_, _, err = j.ParseChallenge("", model.PurposeTOTPChallenge)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestJWT_RotationGrace(t *testing.T) {
	old := NewJWT("old-secret", "", time.Hour, 5*time.Minute)
	rotated := NewJWT("new-secret", "old-secret", time.Hour, 5*time.Minute)

	tokenString, err := old.IssueSession(uuid.New(), model.RoleOperator)
	require.NoError(t, err)

	// Old-key tokens stay valid through the grace period.
	_, err = rotated.ParseSession(tokenString)
	require.NoError(t, err)

	// A key outside the current pair is still rejected.
	other, err := NewJWT("third-secret", "", time.Hour, 5*time.Minute).IssueSession(uuid.New(), model.RoleAdmin)
	require.NoError(t, err)
	_, err = rotated.ParseSession(other)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestJWT_RoleValidation(t *testing.T) {
	j := &JWT{secret: []byte("secret"), sessionTTL: time.Hour, challengeTTL: 5 * time.Minute}

	tokenString, err := j.sign(Claims{
		RegisteredClaims: j.registered(uuid.New(), time.Hour),
		Purpose:          string(model.PurposeSession),
		Role:             "superuser",
	})
	require.NoError(t, err)

	_, err = j.ParseSession(tokenString)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}
