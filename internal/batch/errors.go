package batch

import (
	"errors"
	"net/http"
)

var (
	ErrBusy       = errors.New("batch is already running")
	ErrNotFound   = errors.New("queue item not found")
	ErrOutOfRange = errors.New("queue index out of range")
	ErrNoImages   = errors.New("no image files provided")
)

// MapHTTPStatus maps batch errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOutOfRange), errors.Is(err, ErrNoImages):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
