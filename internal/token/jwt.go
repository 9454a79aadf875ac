package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/authgate/authgate-server/internal/model"
)

// Claims represents JWT claims with a purpose discriminator and
// purpose-specific payload. Role is set on session tokens; Ceremony carries
// opaque pending-ceremony state on challenge tokens.
type Claims struct {
	jwt.RegisteredClaims
	Purpose  string          `json:"purpose"`
	Role     string          `json:"role,omitempty"`
	Ceremony json.RawMessage `json:"ceremony,omitempty"`
}

// JWT implements TokenManager backed by symmetric HMAC. All purposes share
// one signing secret; separation is enforced by the purpose claim. A
// previous secret, when configured, is accepted for verification only, so
// key rotation does not immediately invalidate outstanding tokens.
type JWT struct {
	secret         []byte
	previousSecret []byte
	sessionTTL     time.Duration
	challengeTTL   time.Duration
}

// NewJWT creates a new JWT token manager. previousSecret may be empty.
func NewJWT(secret, previousSecret string, sessionTTL, challengeTTL time.Duration) model.TokenManager {
	return &JWT{
		secret:         []byte(secret),
		previousSecret: []byte(previousSecret),
		sessionTTL:     sessionTTL,
		challengeTTL:   challengeTTL,
	}
}

// IssueSession creates a session token carrying the user's role.
func (j *JWT) IssueSession(userID uuid.UUID, role model.Role) (string, error) {
	return j.sign(Claims{
		RegisteredClaims: j.registered(userID, j.sessionTTL),
		Purpose:          string(model.PurposeSession),
		Role:             string(role),
	})
}

// IssueChallenge creates a short-lived step-up challenge token.
func (j *JWT) IssueChallenge(userID uuid.UUID, purpose model.Purpose, ceremony []byte) (string, error) {
	if purpose != model.PurposeTOTPChallenge && purpose != model.PurposePasskeyChallenge {
		return "", fmt.Errorf("purpose %q is not a challenge purpose", purpose)
	}
	return j.sign(Claims{
		RegisteredClaims: j.registered(userID, j.challengeTTL),
		Purpose:          string(purpose),
		Ceremony:         ceremony,
	})
}

// ParseSession validates a session token and extracts the principal.
// Tokens of any other purpose are rejected as invalid.
func (j *JWT) ParseSession(tokenString string) (model.Principal, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return model.Principal{}, err
	}
	if claims.Purpose != string(model.PurposeSession) {
		return model.Principal{}, model.ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Principal{}, model.ErrTokenInvalid
	}

	role := model.Role(claims.Role)
	if !role.Valid() {
		return model.Principal{}, model.ErrTokenInvalid
	}

	return model.Principal{UserID: userID, Role: role}, nil
}

// ParseChallenge validates a challenge token of the expected purpose and
// returns its subject and embedded ceremony payload.
func (j *JWT) ParseChallenge(tokenString string, purpose model.Purpose) (uuid.UUID, []byte, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if claims.Purpose != string(purpose) || claims.Purpose == string(model.PurposeSession) {
		return uuid.Nil, nil, model.ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, model.ErrTokenInvalid
	}

	return userID, claims.Ceremony, nil
}

func (j *JWT) registered(userID uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (j *JWT) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (j *JWT) parse(tokenString string) (*Claims, error) {
	claims, err := j.parseWithKey(tokenString, j.secret)
	if err != nil && len(j.previousSecret) > 0 && errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		claims, err = j.parseWithKey(tokenString, j.previousSecret)
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrTokenExpired
		}
		return nil, model.ErrTokenInvalid
	}

	return claims, nil
}

func (j *JWT) parseWithKey(tokenString string, key []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, model.ErrTokenInvalid
	}

	return claims, nil
}
