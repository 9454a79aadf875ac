package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/authgate/authgate-server/internal/model"
)

// errorResponse is the body sent with every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// handleError maps domain errors to HTTP statuses. Sentinel errors carry
// client-safe messages; anything unrecognized becomes a generic 500 so
// internal details never leak.
func handleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, model.ErrInvalidCredentials),
		errors.Is(err, model.ErrUnauthorized),
		errors.Is(err, model.ErrTokenInvalid),
		errors.Is(err, model.ErrTokenExpired):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, model.ErrForbidden),
		errors.Is(err, model.ErrBootstrapClosed):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrNoCredentials),
		errors.Is(err, model.ErrCredentialNotRecognized):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, model.ErrInvalidCode),
		errors.Is(err, model.ErrCeremonyFailed),
		errors.Is(err, model.ErrInvalidArgument):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, model.ErrAlreadyEnabled),
		errors.Is(err, model.ErrNoPendingSecret),
		errors.Is(err, model.ErrTOTPNotEnabled),
		errors.Is(err, model.ErrReplayDetected),
		errors.Is(err, model.ErrEmailTaken):
		status = http.StatusConflict
		message = err.Error()
	}

	respondJSON(w, status, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a request body into dst. A false return means the
// request was already answered with 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}
