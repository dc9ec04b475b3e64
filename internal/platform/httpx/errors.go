package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by handlers that have no richer domain error.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
)

// Machine-readable error codes surfaced in problem responses.
const (
	CodeNotFound      = "not_found"
	CodeDuplicate     = "duplicate"
	CodeValidation    = "validation_failed"
	CodeInvalidRegime = "invalid_regime"
	CodeInvalidAmount = "invalid_amount"
	CodeStorage       = "storage_error"
)

// RespondError maps generic errors to RFC7807 responses. Handlers with
// domain-specific kinds (regime, amount, storage) map those explicitly and
// fall back here for the rest. Storage details are never leaked.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, CodeNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, CodeDuplicate, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, CodeValidation, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, CodeStorage, "Internal Error", "")
	}
}
