package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gcms/internal/auth"
	"gcms/internal/samgov"
	"gcms/pkg/domain"
)

const maxBody = 1 << 20

// errInvalid marks a request the boundary rejects.
var errInvalid = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalid, fmt.Sprintf(format, args...))
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		return invalid("decode body: %v", err)
	}
	return nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errInvalid), errors.Is(err, samgov.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateID), errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, errors.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusOf(err), err.Error())
}
