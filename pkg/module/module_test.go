package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/lineage/pkg/module"
)

func echoPath(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.URL.Path))
}

func TestNewInvalidPrefixPanics(t *testing.T) {
	for _, prefix := range []string{"", "api", "/api/v1"} {
		t.Run(prefix, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("New(%q) did not panic", prefix)
				}
			}()
			module.New(prefix, http.NewServeMux())
		})
	}
}

func TestRouter(t *testing.T) {
	api := http.NewServeMux()
	api.HandleFunc("GET /session", echoPath)
	api.HandleFunc("GET /", echoPath)

	var wrapped bool
	m := module.New("/api", api)
	m.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped = true
			next.ServeHTTP(w, r)
		})
	})

	router := module.NewRouter()
	router.Mount(m)
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("native"))
	})

	tests := []struct {
		path        string
		wantBody    string
		wantWrapped bool
	}{
		{"/api/session", "/session", true},
		{"/api/session/", "/session", true},
		{"/api", "/", true},
		{"/healthz", "native", false},
		{"/apix/session", "404 page not found\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			wrapped = false
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if wrapped != tt.wantWrapped {
				t.Errorf("middleware ran = %v, want %v", wrapped, tt.wantWrapped)
			}
		})
	}
}
