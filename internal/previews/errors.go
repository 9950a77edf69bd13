package previews

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("preview not found")
	ErrNotImage       = errors.New("file is not an image")
	ErrUnknownBackend = errors.New("unknown preview backend")
)

// MapHTTPStatus maps preview errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrNotImage) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}
