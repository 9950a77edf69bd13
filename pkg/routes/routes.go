// Package routes registers grouped handlers on a ServeMux using Go 1.22
// method patterns.
package routes

import (
	"net/http"

	"github.com/JaimeStill/lineage/pkg/openapi"
)

// Route binds a method and a pattern, relative to its group, to a handler.
// OpenAPI, when set, documents the route.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}

// Group nests routes under a shared prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux.
func Register(mux *http.ServeMux, groups ...Group) {
	walk("", groups, func(path string, r Route) {
		mux.HandleFunc(r.Method+" "+path, r.Handler)
	})
}

// Describe adds every documented route in groups to spec.
func Describe(spec *openapi.Spec, groups ...Group) {
	walk("", groups, func(path string, r Route) {
		if r.OpenAPI == nil {
			return
		}
		if path == "" {
			path = "/"
		}
		spec.AddOperation(r.Method, path, r.OpenAPI)
	})
}

// Patterns returns the full "METHOD /path" pattern of every route in groups,
// in registration order.
func Patterns(groups ...Group) []string {
	var out []string
	walk("", groups, func(path string, r Route) {
		out = append(out, r.Method+" "+path)
	})
	return out
}

func walk(parent string, groups []Group, fn func(path string, r Route)) {
	for _, g := range groups {
		prefix := parent + g.Prefix
		for _, r := range g.Routes {
			fn(prefix+r.Pattern, r)
		}
		walk(prefix, g.Children, fn)
	}
}
