package hxfaces

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/a-h/templ"

	"github.com/pthm/hxfaces/lib/invoke"
	"github.com/pthm/hxfaces/lib/mapping"
)

// ActionLifecycle dispatches a request straight to a mapped handler and
// renders what it returns. There is no component tree to restore.
//
// A handler result renders as follows:
//
//	nil              204 No Content
//	string           the view with that id, through the Standard lifecycle
//	templ.Component  the component as text/html
//	Result           per the builder (view, markup, redirect, headers)
type ActionLifecycle struct {
	matcher *mapping.Matcher[*invoke.Handler]
	invoker *invoke.Invoker
	views   *Standard
}

// ActionOption configures an ActionLifecycle.
type ActionOption func(*ActionLifecycle)

// WithViews lets handlers answer with a view id rendered by std.
func WithViews(std *Standard) ActionOption {
	return func(a *ActionLifecycle) { a.views = std }
}

// NewActionLifecycle returns a lifecycle serving the handlers in matcher.
func NewActionLifecycle(matcher *mapping.Matcher[*invoke.Handler], inv *invoke.Invoker, opts ...ActionOption) *ActionLifecycle {
	a := &ActionLifecycle{matcher: matcher, invoker: inv}
	for _, opt := range opts {
		opt(a)
	}
	provideRequestContext(inv)
	return a
}

func (a *ActionLifecycle) lifecycle() {}

// Execute resolves and invokes the handler mapped to the path info.
func (a *ActionLifecycle) Execute(rc *RequestContext) error {
	_, err := invokeMapped(rc, a.matcher, a.invoker)
	return err
}

// Render writes the handler's result.
func (a *ActionLifecycle) Render(rc *RequestContext) error {
	if rc.ResponseComplete() {
		return nil
	}
	res, _ := rc.Result()
	switch v := res.(type) {
	case nil:
		return noContent(rc)
	case string:
		return a.renderView(rc, v)
	case templ.Component:
		return a.renderMarkup(rc, http.StatusOK, v)
	case Result:
		return a.renderResult(rc, v)
	case *Result:
		if v == nil {
			return noContent(rc)
		}
		return a.renderResult(rc, *v)
	}
	return &LifecycleError{Phase: RenderResponse, Err: fmt.Errorf("%w: %T", ErrUnsupported, res)}
}

func (a *ActionLifecycle) renderResult(rc *RequestContext, r Result) error {
	for _, m := range r.messages {
		rc.AddMessage(m)
	}
	for k, v := range r.headers {
		rc.Response.Header().Set(k, v)
	}
	switch {
	case r.redirect != "":
		return Redirect(rc, r.redirect)
	case r.view != "":
		return a.renderView(rc, r.view)
	case r.markup != nil:
		status := r.status
		if status == 0 {
			status = http.StatusOK
		}
		return a.renderMarkup(rc, status, r.markup)
	}
	if r.status != 0 && r.status != http.StatusNoContent {
		rc.Response.WriteHeader(r.status)
		rc.ResponseCompleted()
		return nil
	}
	return noContent(rc)
}

func (a *ActionLifecycle) renderView(rc *RequestContext, viewID string) error {
	if a.views == nil {
		return &LifecycleError{Phase: RenderResponse, Err: fmt.Errorf("%w: view result %q without views", ErrUnsupported, viewID)}
	}
	rc.ViewID = viewID
	rc.viewRoot = nil
	return a.views.Render(rc)
}

func (a *ActionLifecycle) renderMarkup(rc *RequestContext, status int, c templ.Component) error {
	rc.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
	rc.Response.WriteHeader(status)
	defer rc.ResponseCompleted()
	if err := c.Render(rc.Context(), rc.Response); err != nil {
		return &LifecycleError{Phase: RenderResponse, Err: err}
	}
	return nil
}

// invokeMapped is the execute step shared by the Action and REST
// lifecycles. An unmapped path gets a 404, completes the response and marks
// rc FAILED.
func invokeMapped(rc *RequestContext, matcher *mapping.Matcher[*invoke.Handler], inv *invoke.Invoker) (*invoke.Handler, error) {
	rc.phase = InvokeApplication
	m, ok := matcher.Match(rc.PathInfo)
	if !ok {
		rc.Logger().Debug("no handler mapped", "path_info", rc.PathInfo)
		rc.state = StateFailed
		return nil, notFound(rc)
	}
	res, err := inv.Execute(rc.Context(), rc.Request, m)
	if err != nil {
		return m.Handler, &LifecycleError{Phase: InvokeApplication, Err: err}
	}
	rc.handler = m.Handler
	if isNil(res) {
		res = nil
	}
	rc.setResult(res)
	return m.Handler, nil
}

// isNil reports whether v is nil or a typed nil such as a (*T)(nil) returned
// through an any.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func notFound(rc *RequestContext) error {
	defer rc.ResponseCompleted()
	h := rc.Response.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	rc.Response.WriteHeader(http.StatusNotFound)
	if _, err := io.WriteString(rc.Response, http.StatusText(http.StatusNotFound)+"\n"); err != nil {
		return &LifecycleError{Phase: rc.phase, Err: fmt.Errorf("writing not found response: %w", err)}
	}
	return nil
}

func noContent(rc *RequestContext) error {
	rc.Response.WriteHeader(http.StatusNoContent)
	rc.ResponseCompleted()
	return nil
}

// provideRequestContext lets handlers inject the running *RequestContext
// with invoke.Inject[*RequestContext]().
func provideRequestContext(inv *invoke.Invoker) {
	if inv.Beans == nil || inv.Beans.Has(invoke.TypeOf[*RequestContext]()) {
		return
	}
	invoke.Provide(inv.Beans, func(ctx context.Context) (*RequestContext, error) {
		rc, ok := FromContext(ctx)
		if !ok {
			return nil, fmt.Errorf("%w: no request context", invoke.ErrNoProvider)
		}
		return rc, nil
	})
}
