package forensics_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/lineage/internal/forensics"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newClient(t *testing.T, h http.Handler, opts ...forensics.Option) forensics.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := &forensics.Config{BaseURL: srv.URL, Timeout: "5s", Token: "secret"}
	c, err := forensics.New(cfg, slog.Default(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestUploadSendsMultipartWithBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/images/upload", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want Bearer secret", got)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, _ := io.ReadAll(file)
		if header.Filename != "cat.png" {
			t.Errorf("filename = %q, want cat.png", header.Filename)
		}
		if header.Header.Get("Content-Type") != "image/png" {
			t.Errorf("part content type = %q", header.Header.Get("Content-Type"))
		}

		json.NewEncoder(w).Encode(forensics.Upload{
			ImageID:  "img-1",
			Filename: header.Filename,
			FileSize: int64(len(data)),
			Width:    64,
			Height:   32,
			Format:   "PNG",
			PHash:    "p",
			DHash:    "d",
			AHash:    "a",
		})
	})

	c := newClient(t, mux)
	up, err := c.Upload(context.Background(), forensics.File{
		Name:        "cat.png",
		ContentType: "image/png",
		Data:        pngHeader,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if up.ImageID != "img-1" || up.Width != 64 || up.Height != 32 {
		t.Errorf("unexpected upload: %+v", up)
	}
	if up.FileSize != int64(len(pngHeader)) {
		t.Errorf("file size = %d, want %d", up.FileSize, len(pngHeader))
	}
}

func TestUploadWithoutImageID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/images/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(forensics.Upload{Filename: "cat.png", Format: "PNG"})
	})

	c := newClient(t, mux)
	_, err := c.Upload(context.Background(), forensics.File{
		Name:        "cat.png",
		ContentType: "image/png",
		Data:        pngHeader,
	})

	var remote *forensics.RemoteError
	if !errors.As(err, &remote) || !errors.Is(err, forensics.ErrInvalidResponse) {
		t.Fatalf("err = %v, want RemoteError wrapping ErrInvalidResponse", err)
	}
	if got := forensics.Message(err, "Upload failed"); got != "Upload failed" {
		t.Errorf("message = %q, want fallback", got)
	}
}

func TestAnalyzeDecodesScoreBundle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/images/analyze/{id}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"image_id": "`+r.PathValue("id")+`",
			"deepfake_score": {"overall_score": 0.82, "ela_score": 0.4, "is_deepfake": true, "confidence_label": "High"},
			"ela_map": [[0.1, 0.2], [0.3, 0.4]],
			"metadata": {"image_id": "img-1", "has_exif": false, "suspicious_flags": ["no exif"]},
			"manipulation_regions": [{"x": 1, "y": 2, "width": 3, "height": 4, "confidence": 0.9, "type": "splicing"}]
		}`)
	})

	c := newClient(t, mux)
	res, err := c.Analyze(context.Background(), "img-1")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if res.ImageID != "img-1" {
		t.Errorf("image id = %q", res.ImageID)
	}
	if !res.DeepfakeScore.IsDeepfake || res.DeepfakeScore.OverallScore != 0.82 {
		t.Errorf("unexpected score: %+v", res.DeepfakeScore)
	}
	if len(res.ELAMap) != 2 || res.ELAMap[1][1] != 0.4 {
		t.Errorf("unexpected ela map: %v", res.ELAMap)
	}
	if len(res.ManipulationRegions) != 1 || res.ManipulationRegions[0].Type != "splicing" {
		t.Errorf("unexpected regions: %+v", res.ManipulationRegions)
	}
}

func TestErrorDetailSurfaced(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail": "Complete provenance graph and social spread analysis first."}`)
	})

	c := newClient(t, mux)
	_, err := c.GenerateReport(context.Background(), "img-1")

	var remote *forensics.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if remote.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", remote.StatusCode)
	}
	if !errors.Is(err, forensics.ErrRejected) {
		t.Errorf("error should wrap ErrRejected")
	}

	want := "Complete provenance graph and social spread analysis first."
	if got := forensics.Message(err, "Report generation failed"); got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestMessageFallback(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain error", errors.New("boom"), "Upload failed"},
		{"remote without detail", &forensics.RemoteError{Op: "upload", StatusCode: 500, Err: forensics.ErrRejected}, "Upload failed"},
		{"remote with detail", &forensics.RemoteError{Op: "upload", Detail: "File must be an image"}, "File must be an image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := forensics.Message(tt.err, "Upload failed"); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStructuredDetailIgnored(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/images/analyze/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail": [{"loc": ["body"], "msg": "field required"}]}`)
	})

	c := newClient(t, mux)
	_, err := c.Analyze(context.Background(), "img-1")
	if got := forensics.Message(err, "Analysis failed"); got != "Analysis failed" {
		t.Errorf("Message() = %q, want fallback", got)
	}
}

func TestUnauthorizedInvokesHook(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/social/spread/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail": "Could not validate credentials"}`)
	})

	var calls atomic.Int32
	c := newClient(t, mux, forensics.WithUnauthorizedHook(func() { calls.Add(1) }))

	_, err := c.SimulateSpread(context.Background(), "img-1")
	if !errors.Is(err, forensics.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if calls.Load() != 1 {
		t.Errorf("hook calls = %d, want 1", calls.Load())
	}
	if got := forensics.MapHTTPStatus(err); got != http.StatusUnauthorized {
		t.Errorf("MapHTTPStatus() = %d, want 401", got)
	}
}

func TestNotFoundMapsStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/provenance/graph/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail": "Image not found"}`)
	})

	c := newClient(t, mux)
	_, err := c.BuildGraph(context.Background(), "missing")
	if !errors.Is(err, forensics.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if got := forensics.MapHTTPStatus(err); got != http.StatusNotFound {
		t.Errorf("MapHTTPStatus() = %d, want 404", got)
	}
}

func TestInvalidResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reports/dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	})

	c := newClient(t, mux)
	_, err := c.DashboardStats(context.Background())
	if !errors.Is(err, forensics.ErrInvalidResponse) {
		t.Fatalf("error = %v, want ErrInvalidResponse", err)
	}
	if got := forensics.MapHTTPStatus(err); got != http.StatusBadGateway {
		t.Errorf("MapHTTPStatus() = %d, want 502", got)
	}
}

func TestTimeoutIsRemoteError(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/images/analyze/{id}", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	c := newClient(t, mux)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Analyze(ctx, "img-1")

	var remote *forensics.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if !remote.Timeout() {
		t.Errorf("Timeout() = false, want true for %v", remote.Err)
	}
	if got := forensics.MapHTTPStatus(err); got != http.StatusGatewayTimeout {
		t.Errorf("MapHTTPStatus() = %d, want 504", got)
	}
}

func TestFileMediaType(t *testing.T) {
	tests := []struct {
		name    string
		file    forensics.File
		want    string
		isImage bool
	}{
		{"declared", forensics.File{ContentType: "image/jpeg"}, "image/jpeg", true},
		{"sniffed png", forensics.File{Data: pngHeader}, "image/png", true},
		{"generic declared is sniffed", forensics.File{ContentType: "application/octet-stream", Data: pngHeader}, "image/png", true},
		{"text", forensics.File{Data: []byte("hello world")}, "text/plain; charset=utf-8", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.file.MediaType(); got != tt.want {
				t.Errorf("MediaType() = %q, want %q", got, tt.want)
			}
			if got := tt.file.IsImage(); got != tt.isImage {
				t.Errorf("IsImage() = %v, want %v", got, tt.isImage)
			}
		})
	}
}
