package forensics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnauthorized indicates the service rejected the bearer credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the service does not know the requested image.
	ErrNotFound = errors.New("image not found")
	// ErrRejected indicates the service answered with any other error status.
	ErrRejected = errors.New("request rejected")
	// ErrInvalidResponse indicates a success response that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response")
)

// RemoteError describes a failed call to the forensics service. Detail is the
// service's human-readable explanation when it provided one.
type RemoteError struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call failed because a deadline elapsed.
func (e *RemoteError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Message returns the text shown to the user for a failed stage: the
// service's detail verbatim when present, otherwise fallback.
func Message(err error, fallback string) string {
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Detail != "" {
		return remote.Detail
	}
	return fallback
}

// MapHTTPStatus maps forensics errors to the status the dashboard API returns.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		if remote.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func statusError(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrRejected
	}
}

// Validate rejects an upload the service accepted without assigning an image
// id. The error is a RemoteError wrapping ErrInvalidResponse.
func (u *Upload) Validate() error {
	if u == nil || u.ImageID == "" {
		return &RemoteError{
			Op:  "upload",
			Err: fmt.Errorf("%w: missing image_id", ErrInvalidResponse),
		}
	}
	return nil
}
