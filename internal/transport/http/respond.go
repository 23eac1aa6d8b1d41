package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"msgcore/internal/domain"
	"msgcore/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the domain error taxonomy onto HTTP statuses. A blocked
// user gets 403 no matter what they attempted.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBlocked), errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSession), errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrValidationFailed),
		errors.Is(err, service.ErrEmptyCredential),
		errors.Is(err, service.ErrEmptyFingerprint),
		errors.Is(err, service.ErrPasswordLength),
		errors.Is(err, service.ErrEmptyPassword):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUsernameTaken):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPersistence):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
