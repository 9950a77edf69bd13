package session

import (
	"errors"
	"fmt"
	"net/http"
)

// Session errors. ErrBusy and the missing-input errors are validation
// failures: no remote call was attempted.
var (
	ErrValidation    = errors.New("validation failed")
	ErrBusy          = fmt.Errorf("%w: stage already in progress", ErrValidation)
	ErrNoFile        = fmt.Errorf("%w: no file provided", ErrValidation)
	ErrNoImage       = fmt.Errorf("%w: no current image", ErrValidation)
	ErrStaleResponse = errors.New("response no longer matches the session")
)

// MapHTTPStatus maps session errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrBusy) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrStaleResponse) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
