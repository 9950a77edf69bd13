package forensics

import (
	"net/http"
	"strings"
)

// MediaType returns the declared content type, falling back to sniffing the
// bytes when the declaration is missing or generic.
func (f File) MediaType() string {
	ct := strings.TrimSpace(f.ContentType)
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(f.Data)
}

// IsImage reports whether the file is an image the service will accept.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.MediaType(), "image/")
}

// Normalize returns a copy with ContentType resolved by MediaType.
func (f File) Normalize() File {
	f.ContentType = f.MediaType()
	return f
}
