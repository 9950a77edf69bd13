package module

import (
	"net/http"
	"strings"
)

// Router sends each request to the module owning its first path segment and
// everything else to a native ServeMux.
type Router struct {
	modules map[string]http.Handler
	native  *http.ServeMux
}

// NewRouter creates a Router with no modules.
func NewRouter() *Router {
	return &Router{
		modules: make(map[string]http.Handler),
		native:  http.NewServeMux(),
	}
}

// Handle registers handler on the native mux.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.native.Handle(pattern, handler)
}

// HandleFunc registers fn on the native mux.
func (r *Router) HandleFunc(pattern string, fn http.HandlerFunc) {
	r.native.HandleFunc(pattern, fn)
}

// Mount routes m's prefix to m. The module's middleware stack is fixed at
// this point.
func (r *Router) Mount(m *Module) {
	r.modules[m.prefix] = strip(m.prefix, m.Handler())
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
		req.URL.Path = path
	}

	segment, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if h, ok := r.modules["/"+segment]; ok {
		h.ServeHTTP(w, req)
		return
	}

	r.native.ServeHTTP(w, req)
}
