// Package hxfacesecho provides Echo framework integration for hxfaces.
//
// Mount the front controller on an Echo instance or group:
//
//	e := echo.New()
//	reg := hxfacesecho.Mount(e)
//	reg.Mount("/", std)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	reg := hxfacesecho.MountGroup(g)
//	reg.Mount("/app", std)
//
// Echo does not strip the group prefix, so lifecycles are mounted on the
// full request path.
package hxfacesecho

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/hxfaces"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	path    string
	regOpts []hxfaces.RegistryOption
}

// WithPath sets the route prefix the registry is served under.
// Defaults to "/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithRegistryOptions passes options to the created registry.
func WithRegistryOptions(opts ...hxfaces.RegistryOption) Option {
	return func(o *options) {
		o.regOpts = append(o.regOpts, opts...)
	}
}

// Mount creates a registry and serves it on an Echo instance.
//
//	e := echo.New()
//	reg := hxfacesecho.Mount(e, hxfacesecho.WithPath("/faces/"))
func Mount(e *echo.Echo, opts ...Option) *hxfaces.Registry {
	o := newOptions(opts)
	reg := hxfaces.NewRegistry(o.regOpts...)
	routes(e.Any, o.route(), reg)
	return reg
}

// MountGroup creates a registry and serves it on an Echo group.
// Requests share the group's middleware (auth, logging, etc.).
func MountGroup(g *echo.Group, opts ...Option) *hxfaces.Registry {
	o := newOptions(opts)
	reg := hxfaces.NewRegistry(o.regOpts...)
	routes(g.Any, o.route(), reg)
	return reg
}

// Handle serves an existing registry, such as one built by
// hxfaces.NewRegistryFromConfig. WithRegistryOptions is ignored.
func Handle(e *echo.Echo, reg *hxfaces.Registry, opts ...Option) {
	routes(e.Any, newOptions(opts).route(), reg)
}

type anyFunc func(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) []*echo.Route

func routes(add anyFunc, route string, reg *hxfaces.Registry) {
	h := echo.WrapHandler(reg)
	add(route+"*", h)
	if route != "/" {
		add(strings.TrimSuffix(route, "/"), h)
	}
}

func newOptions(opts []Option) *options {
	o := &options{path: "/"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) route() string {
	route := "/" + strings.Trim(o.path, "/")
	if route != "/" {
		route += "/"
	}
	return route
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxfacesecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return component.Render(c.Request().Context(), c.Response())
}
