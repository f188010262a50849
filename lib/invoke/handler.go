// Package invoke binds request values to handler parameters and calls the
// handler matched for a request.
//
// Handlers are plain typed closures registered once at startup, usually from
// code produced by the hxfaces generator. There is no reflective method lookup
// at request time: a Handler lists its parameters in declaration order and the
// Binder produces one value per parameter before Call runs.
package invoke

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/pthm/hxfaces/lib/mapping"
)

// Match is a path resolved to a handler.
type Match = mapping.Match[*Handler]

// Param describes where one handler argument comes from. At most one of
// Header, Path and Query is normally set; when none is, the value is resolved
// from Beans by Type.
type Param struct {
	Name   string
	Header string
	Path   string
	Query  string
	Type   reflect.Type
}

// Header binds a request header.
func Header(name string) Param { return Param{Name: name, Header: name} }

// PathGroup binds a named capture group of the handler's regex mapping.
func PathGroup(name string) Param { return Param{Name: name, Path: name} }

// Query binds a query parameter.
func Query(name string) Param { return Param{Name: name, Query: name} }

// Inject binds the managed object registered for T.
func Inject[T any]() Param {
	t := TypeOf[T]()
	return Param{Name: t.String(), Type: t}
}

// Handler is a registered request target.
type Handler struct {
	// Name identifies the handler in logs and errors, e.g. "Orders.Show".
	Name string
	// Mapping is the pattern the handler is dispatched on.
	Mapping string
	// Produces is the response content type the handler's result is
	// serialized as. Empty means negotiate from the request.
	Produces string
	// Bean is the type of the instance Call receives. Nil means Call gets a
	// nil receiver.
	Bean   reflect.Type
	Params []Param
	Call   func(ctx context.Context, bean any, args Args) (any, error)
}

// Method builds a Handler whose receiver is the managed object of type B.
func Method[B any](name, pattern string, params []Param, fn func(ctx context.Context, bean B, args Args) (any, error)) *Handler {
	return &Handler{
		Name:    name,
		Mapping: pattern,
		Bean:    TypeOf[B](),
		Params:  params,
		Call: func(ctx context.Context, bean any, args Args) (any, error) {
			b, ok := bean.(B)
			if !ok {
				return nil, fmt.Errorf("invoke: %s: bean is %T, want %v", name, bean, TypeOf[B]())
			}
			return fn(ctx, b, args)
		},
	}
}

// Func builds a Handler with no receiver.
func Func(name, pattern string, params []Param, fn func(ctx context.Context, args Args) (any, error)) *Handler {
	return &Handler{
		Name:    name,
		Mapping: pattern,
		Params:  params,
		Call: func(ctx context.Context, _ any, args Args) (any, error) {
			return fn(ctx, args)
		},
	}
}

// WithProduces sets the response content type and returns h.
func (h *Handler) WithProduces(contentType string) *Handler {
	h.Produces = contentType
	return h
}

// Build registers handlers in order into a matcher keyed by their mappings.
func Build(handlers ...*Handler) (*mapping.Matcher[*Handler], error) {
	m := mapping.NewMatcher[*Handler]()
	for _, h := range handlers {
		if err := m.Add(h.Mapping, h); err != nil {
			return nil, fmt.Errorf("invoke: handler %s: %w", h.Name, err)
		}
	}
	return m, nil
}

// Args are the produced parameter values, in declaration order.
type Args []any

// String returns argument i as a string. Missing header and query values
// are the empty string.
func (a Args) String(i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	s, _ := a[i].(string)
	return s
}

// Int parses argument i as a base-10 integer.
func (a Args) Int(i int) (int, error) {
	return strconv.Atoi(a.String(i))
}

// Arg returns argument i as T.
func Arg[T any](a Args, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(a) {
		return zero, fmt.Errorf("invoke: argument %d out of range", i)
	}
	v, ok := a[i].(T)
	if !ok {
		return zero, fmt.Errorf("invoke: argument %d is %T, want %v", i, a[i], TypeOf[T]())
	}
	return v, nil
}
