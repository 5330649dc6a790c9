package book

import (
	"errors"
	"fmt"
	"net/http"

	"bookshelf/internal/identity"
	"bookshelf/internal/validation"
)

var (
	ErrNotFound             = errors.New("book not found")
	ErrUpdateTargetNotFound = fmt.Errorf("%w: no active book matches owner and title", ErrNotFound)
	ErrDuplicateBook        = errors.New("book already exists")
	ErrAmbiguousResult      = errors.New("more than one book matched")
	ErrMissingParameter     = errors.New("missing required parameter")
	ErrMetadataUnavailable  = errors.New("book metadata unavailable")
	ErrForbidden            = errors.New("forbidden")
	ErrStoreUnavailable     = errors.New("book store unavailable")
)

// Status is the transport outcome of an error.
type Status struct {
	HTTP    int
	Code    string
	Message string
	Details []validation.Violation
}

// StatusFor maps any error returned by Service to its response. Unknown errors map to a
// generic 500 that carries no detail.
func StatusFor(err error) Status {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return Status{HTTP: http.StatusBadRequest, Code: "VALIDATION_FAILED", Message: "Validation failed", Details: verr.Violations}
	case errors.Is(err, ErrDuplicateBook):
		return Status{HTTP: http.StatusBadRequest, Code: "DUPLICATE_BOOK", Message: "Book already exists"}
	case errors.Is(err, ErrUpdateTargetNotFound):
		return Status{HTTP: http.StatusBadRequest, Code: "NOT_FOUND", Message: "Book not found"}
	case errors.Is(err, ErrNotFound):
		return Status{HTTP: http.StatusNotFound, Code: "NOT_FOUND", Message: "Book not found"}
	case errors.Is(err, ErrAmbiguousResult):
		return Status{HTTP: http.StatusBadRequest, Code: "AMBIGUOUS_RESULT", Message: "More than one book matched"}
	case errors.Is(err, ErrMissingParameter):
		return Status{HTTP: http.StatusBadRequest, Code: "MISSING_PARAMETER", Message: err.Error()}
	case errors.Is(err, ErrMetadataUnavailable):
		return Status{HTTP: http.StatusBadRequest, Code: "METADATA_UNAVAILABLE", Message: "Book metadata unavailable"}
	case errors.Is(err, identity.ErrAuthenticationFailed):
		return Status{HTTP: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Authentication failed"}
	case errors.Is(err, ErrForbidden):
		return Status{HTTP: http.StatusForbidden, Code: "FORBIDDEN", Message: "Forbidden"}
	case errors.Is(err, ErrStoreUnavailable):
		return Status{HTTP: http.StatusServiceUnavailable, Code: "STORE_UNAVAILABLE", Message: "Service temporarily unavailable"}
	default:
		return Status{HTTP: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "Internal server error"}
	}
}
