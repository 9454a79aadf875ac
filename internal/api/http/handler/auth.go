package handler

import (
	"context"
	"net/http"

	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/model"
)

// AuthService defines primary login and first-user bootstrap operations.
type AuthService interface {
	PasswordLogin(ctx context.Context, email, password string) (model.LoginResult, error)
	Bootstrap(ctx context.Context, token, email, password string) (model.UserSummary, error)
}

// StepUpService completes a pending TOTP login challenge.
type StepUpService interface {
	CompleteLogin(ctx context.Context, challengeToken, code string) (model.LoginResult, error)
}

// Auth handles HTTP endpoints for authentication.
type Auth struct {
	authService   AuthService
	stepUpService StepUpService
	logger        *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, stepUpService StepUpService, logger *logger.Logger) *Auth {
	return &Auth{
		authService:   authService,
		stepUpService: stepUpService,
		logger:        logger,
	}
}

// loginResponse is the tagged login outcome sent to clients. Exactly one of
// sessionToken and challengeToken is present depending on status.
type loginResponse struct {
	Status         model.LoginStatus  `json:"status"`
	SessionToken   string             `json:"sessionToken,omitempty"`
	ChallengeToken string             `json:"challengeToken,omitempty"`
	User           *model.UserSummary `json:"user,omitempty"`
}

func newLoginResponse(result model.LoginResult) loginResponse {
	resp := loginResponse{
		Status:         result.Status,
		SessionToken:   result.SessionToken,
		ChallengeToken: result.ChallengeToken,
	}
	if result.Status == model.LoginAuthenticated {
		user := result.User
		resp.User = &user
	}
	return resp
}

// Login verifies email+password and returns either a session or a step-up
// challenge.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	h.logger.Debug("Auth handler: processing login request")

	result, err := h.authService.PasswordLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("Auth handler: login failed", "error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: login completed", "status", result.Status)
	respondJSON(w, http.StatusOK, newLoginResponse(result))
}

// CompleteTOTPLogin finishes a step-up login with a TOTP code.
func (h *Auth) CompleteTOTPLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChallengeToken string `json:"challengeToken"`
		Code           string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	h.logger.Debug("Auth handler: processing step-up completion request")

	result, err := h.stepUpService.CompleteLogin(r.Context(), req.ChallengeToken, req.Code)
	if err != nil {
		h.logger.Info("Auth handler: step-up completion failed", "error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: step-up completed", "user_id", result.User.ID)
	respondJSON(w, http.StatusOK, newLoginResponse(result))
}

// Bootstrap creates the first admin user.
func (h *Auth) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	h.logger.Debug("Auth handler: processing bootstrap request")

	user, err := h.authService.Bootstrap(r.Context(), req.Token, req.Email, req.Password)
	if err != nil {
		h.logger.Info("Auth handler: bootstrap failed", "error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: bootstrap completed", "user_id", user.ID)
	respondJSON(w, http.StatusCreated, user)
}
