package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/previews"
	"github.com/JaimeStill/lineage/internal/session"
)

var ErrNoGraph = fmt.Errorf("%w: no provenance graph", session.ErrValidation)

// MapHTTPStatus maps pipeline, session, and remote errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	var remote *forensics.RemoteError
	switch {
	case errors.Is(err, previews.ErrNotImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, session.ErrValidation), errors.Is(err, session.ErrStaleResponse):
		return session.MapHTTPStatus(err)
	case errors.As(err, &remote):
		return forensics.MapHTTPStatus(err)
	default:
		return http.StatusInternalServerError
	}
}
