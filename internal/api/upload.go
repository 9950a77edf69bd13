package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/pkg/formatting"
)

var errTooLarge = errors.New("upload too large")

// readFiles parses a multipart body capped at limit bytes and returns the
// files under field. A missing field yields no files and no error.
func readFiles(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]forensics.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %s", errTooLarge, formatting.FormatBytes(limit, 0))
		}
		return nil, fmt.Errorf("parse form: %w", err)
	}

	headers := r.MultipartForm.File[field]
	files := make([]forensics.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) (forensics.File, error) {
	src, err := fh.Open()
	if err != nil {
		return forensics.File{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return forensics.File{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	return forensics.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func uploadStatus(err error) int {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
