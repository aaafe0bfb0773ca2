package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/filedash/filedash/internal/authn"
	"github.com/filedash/filedash/internal/fsservice"
	"github.com/filedash/filedash/internal/pathsafe"
	"github.com/filedash/filedash/internal/store"
)

// apiError is the body shape of every non-2xx JSON response.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}

// writeError maps a domain error to an HTTP status and error code. It never
// leaks the underlying error text or a stack trace for anything classified
// as internal.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pathsafe.ErrInvalidPath), errors.Is(err, pathsafe.ErrOutsideRoot):
		writeErrorCode(w, http.StatusBadRequest, "invalid_path", "the supplied path is invalid")
	case errors.Is(err, pathsafe.ErrNotFound), errors.Is(err, fsservice.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "file_not_found", "the requested file or directory does not exist")
	case errors.Is(err, pathsafe.ErrNotADirectory), errors.Is(err, fsservice.ErrNotADirectory):
		writeErrorCode(w, http.StatusBadRequest, "invalid_path", "path is not a directory")
	case errors.Is(err, pathsafe.ErrNotAFile), errors.Is(err, fsservice.ErrNotAFile):
		writeErrorCode(w, http.StatusBadRequest, "invalid_path", "path is not a file")
	case errors.Is(err, fsservice.ErrAlreadyExists):
		writeErrorCode(w, http.StatusConflict, "file_exists", "a file or directory already exists at that path")
	case errors.Is(err, fsservice.ErrInvalidArgs):
		writeErrorCode(w, http.StatusBadRequest, "validation_failed", "request arguments are invalid")
	case errors.Is(err, store.ErrUserNotFound):
		writeErrorCode(w, http.StatusNotFound, "file_not_found", "resource not found")
	case errors.Is(err, store.ErrEmailTaken):
		writeErrorCode(w, http.StatusConflict, "validation_failed", "email is already registered")
	case errors.Is(err, authn.ErrMalformed), errors.Is(err, authn.ErrSignatureInvalid):
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "invalid token")
	case errors.Is(err, authn.ErrExpired):
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "token has expired")
	case errors.Is(err, authn.ErrRevoked):
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "token has been revoked")
	default:
		writeErrorCode(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}
