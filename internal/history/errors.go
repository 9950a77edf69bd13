package history

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/lineage/pkg/database"
)

var (
	ErrNotFound    = errors.New("analysis not found")
	ErrDuplicate   = errors.New("analysis already recorded")
	ErrInvalid     = errors.New("invalid analysis")
	ErrUnavailable = errors.New("history is not configured")
)

// MapHTTPStatus maps history errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable), errors.Is(err, database.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
