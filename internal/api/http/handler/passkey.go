package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/model"
	"github.com/authgate/authgate-server/internal/service"
)

// PasskeyService defines WebAuthn ceremony and credential management
// operations.
type PasskeyService interface {
	BeginRegistration(ctx context.Context, userID uuid.UUID) (service.RegistrationOptions, error)
	FinishRegistration(ctx context.Context, userID uuid.UUID, challengeToken string, response []byte, name string) (model.PasskeyCredential, error)
	BeginAuthentication(ctx context.Context, email string) (service.AuthenticationOptions, error)
	FinishAuthentication(ctx context.Context, challengeToken string, response []byte) (model.LoginResult, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.PasskeyCredential, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Passkey handles HTTP endpoints for WebAuthn ceremonies and passkey
// management.
type Passkey struct {
	passkeyService PasskeyService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewPasskey creates a new Passkey handler.
func NewPasskey(passkeyService PasskeyService, contextManager model.ContextManager, logger *logger.Logger) *Passkey {
	return &Passkey{
		passkeyService: passkeyService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// RegistrationOptions starts a registration ceremony for the caller.
func (h *Passkey) RegistrationOptions(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthorized)
		return
	}

	opts, err := h.passkeyService.BeginRegistration(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Info("Passkey handler: registration options failed", "user_id", principal.UserID, "error", err.Error())
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, opts)
}

// RegistrationVerify finishes a registration ceremony and stores the new
// credential.
func (h *Passkey) RegistrationVerify(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthorized)
		return
	}

	var req struct {
		ChallengeToken string          `json:"challengeToken"`
		Name           string          `json:"name"`
		Response       json.RawMessage `json:"response"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	cred, err := h.passkeyService.FinishRegistration(r.Context(), principal.UserID, req.ChallengeToken, req.Response, req.Name)
	if err != nil {
		h.logger.Info("Passkey handler: registration verify failed", "user_id", principal.UserID, "error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Passkey handler: credential registered", "user_id", principal.UserID, "passkey_id", cred.ID)
	respondJSON(w, http.StatusCreated, cred.Summary())
}

// AuthenticationOptions starts a login ceremony for the given email.
func (h *Passkey) AuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	opts, err := h.passkeyService.BeginAuthentication(r.Context(), req.Email)
	if err != nil {
		h.logger.Info("Passkey handler: authentication options failed", "error", err.Error())
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, opts)
}

// AuthenticationVerify finishes a login ceremony and returns a session.
func (h *Passkey) AuthenticationVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChallengeToken string          `json:"challengeToken"`
		Response       json.RawMessage `json:"response"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.passkeyService.FinishAuthentication(r.Context(), req.ChallengeToken, req.Response)
	if err != nil {
		h.logger.Info("Passkey handler: authentication verify failed", "error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Passkey handler: authentication completed", "user_id", result.User.ID)
	respondJSON(w, http.StatusOK, newLoginResponse(result))
}

// List returns the caller's registered passkeys.
func (h *Passkey) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthorized)
		return
	}

	creds, err := h.passkeyService.List(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Info("Passkey handler: list failed", "user_id", principal.UserID, "error", err.Error())
		handleError(w, err)
		return
	}

	summaries := make([]model.PasskeySummary, 0, len(creds))
	for _, cred := range creds {
		summaries = append(summaries, cred.Summary())
	}

	respondJSON(w, http.StatusOK, summaries)
}

// Delete removes one of the caller's passkeys.
func (h *Passkey) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed passkey id"})
		return
	}

	if err := h.passkeyService.Delete(r.Context(), principal.UserID, id); err != nil {
		h.logger.Info("Passkey handler: delete failed", "user_id", principal.UserID, "error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Passkey handler: credential removed", "user_id", principal.UserID, "passkey_id", id)
	w.WriteHeader(http.StatusNoContent)
}
