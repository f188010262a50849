// Package hxfaceschi serves an hxfaces Registry from a chi router.
//
//	r := chi.NewRouter()
//	r.Use(middleware.Logger)
//	reg := hxfaceschi.Mount(r, "/")
//	reg.Mount("/", std)
//
// chi does not strip the route prefix, so lifecycles are mounted on the
// full request path.
package hxfaceschi

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pthm/hxfaces"
)

// Mount creates a registry and routes every method below path to it.
func Mount(r chi.Router, path string, opts ...hxfaces.RegistryOption) *hxfaces.Registry {
	reg := hxfaces.NewRegistry(opts...)
	Handle(r, path, reg)
	return reg
}

// Handle routes every method below path to an existing registry, such as
// one built by hxfaces.NewRegistryFromConfig.
func Handle(r chi.Router, path string, reg *hxfaces.Registry) {
	route := "/" + strings.Trim(path, "/")
	if route == "/" {
		r.Handle("/*", reg)
		return
	}
	r.Handle(route, reg)
	r.Handle(route+"/*", reg)
}
