package hxfaces

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/a-h/templ"

	"github.com/pthm/hxfaces/lib/partial"
)

// ViewRoot is the root of a view's component tree.
//
// Layout wraps the rendered head and body into the full page. When nil a
// minimal HTML document is produced. Head may be nil.
type ViewRoot struct {
	ViewID     string
	Components []UIComponent
	Head       func(rc *RequestContext) templ.Component
	Layout     func(rc *RequestContext, head, body templ.Component) templ.Component
}

// ClientID returns the reserved view root id.
func (v *ViewRoot) ClientID() string        { return partial.ViewRootID }
func (v *ViewRoot) Children() []UIComponent { return v.Components }

// Render produces the full page.
func (v *ViewRoot) Render(rc *RequestContext) templ.Component {
	head, body := v.RenderHead(rc), v.RenderBody(rc)
	if v.Layout != nil {
		return v.Layout(rc, head, body)
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!DOCTYPE html>\n<html><head>"); err != nil {
			return err
		}
		if err := head.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</head><body>"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

// RenderHead renders the document head content.
func (v *ViewRoot) RenderHead(rc *RequestContext) templ.Component {
	if v.Head == nil {
		return templ.NopComponent
	}
	return v.Head(rc)
}

// RenderBody renders the components of the view.
func (v *ViewRoot) RenderBody(rc *RequestContext) templ.Component {
	return renderAll(rc, v.Components)
}

// Find returns the component with clientID, or nil.
func (v *ViewRoot) Find(clientID string) UIComponent {
	var found UIComponent
	v.Visit(func(c UIComponent, _ []string) bool {
		if c.ClientID() == clientID {
			found = c
			return false
		}
		return true
	})
	return found
}

// Visit walks the tree depth first in document order, passing each
// component with the client ids of its ancestors. Returning false stops the
// walk.
func (v *ViewRoot) Visit(fn func(c UIComponent, ancestors []string) bool) {
	var walk func(kids []UIComponent, ancestors []string) bool
	walk = func(kids []UIComponent, ancestors []string) bool {
		for _, c := range kids {
			if !fn(c, ancestors) {
				return false
			}
			if len(c.Children()) > 0 && !walk(c.Children(), append(ancestors, c.ClientID())) {
				return false
			}
		}
		return true
	}
	walk(v.Components, nil)
}

// ViewFactory builds a fresh component tree for a view id.
type ViewFactory interface {
	CreateView(rc *RequestContext, viewID string) (*ViewRoot, error)
}

// Views is a ViewFactory backed by a map of view id to constructor.
//
//	views := hxfaces.Views{
//	    "/login": func(rc *hxfaces.RequestContext) *hxfaces.ViewRoot { ... },
//	}
type Views map[string]func(rc *RequestContext) *ViewRoot

func (vs Views) CreateView(rc *RequestContext, viewID string) (*ViewRoot, error) {
	build, ok := vs[viewID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, viewID)
	}
	v := build(rc)
	if v.ViewID == "" {
		v.ViewID = viewID
	}
	return v, nil
}

// ViewIDFromPath derives a view id from request path info. Empty paths map
// to "/index".
func ViewIDFromPath(pathInfo string) string {
	p := path.Clean("/" + strings.TrimSpace(pathInfo))
	if p == "/" {
		return "/index"
	}
	return p
}
