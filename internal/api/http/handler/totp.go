package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/model"
)

// TOTPService defines TOTP lifecycle operations for an authenticated user.
type TOTPService interface {
	Enroll(ctx context.Context, userID uuid.UUID) (model.TOTPEnrollment, error)
	Confirm(ctx context.Context, userID uuid.UUID, code string) error
	Disable(ctx context.Context, userID uuid.UUID, code string) error
}

// TOTP handles HTTP endpoints for TOTP enrollment and removal.
type TOTP struct {
	totpService    TOTPService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewTOTP creates a new TOTP handler.
func NewTOTP(totpService TOTPService, contextManager model.ContextManager, logger *logger.Logger) *TOTP {
	return &TOTP{
		totpService:    totpService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Enroll generates a pending TOTP secret for the caller and returns the
// provisioning material.
func (h *TOTP) Enroll(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthorized)
		return
	}

	enrollment, err := h.totpService.Enroll(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Info("TOTP handler: enrollment failed", "user_id", principal.UserID, "error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("TOTP handler: enrollment started", "user_id", principal.UserID)
	respondJSON(w, http.StatusOK, enrollment)
}

// Confirm activates the pending secret after the caller proves possession
// with a valid code.
func (h *TOTP) Confirm(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthorized)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.totpService.Confirm(r.Context(), principal.UserID, req.Code); err != nil {
		h.logger.Info("TOTP handler: confirmation failed", "user_id", principal.UserID, "error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("TOTP handler: enrollment confirmed", "user_id", principal.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// Disable turns TOTP off for the caller after a valid current code.
func (h *TOTP) Disable(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthorized)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.totpService.Disable(r.Context(), principal.UserID, req.Code); err != nil {
		h.logger.Info("TOTP handler: disable failed", "user_id", principal.UserID, "error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("TOTP handler: disabled", "user_id", principal.UserID)
	w.WriteHeader(http.StatusNoContent)
}
