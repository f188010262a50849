package hxfaces

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/a-h/templ"

	"github.com/pthm/hxfaces/lib/partial"
)

// Dispatcher writes the RENDER_RESPONSE output of a standard request: a
// full HTML page, or a partial-response document for ajax requests.
type Dispatcher struct {
	Logger *slog.Logger
}

// Dispatch renders rc's view.
func (d *Dispatcher) Dispatch(rc *RequestContext) error {
	view := rc.ViewRoot()
	if view == nil {
		return fmt.Errorf("%w: %s", ErrViewNotFound, rc.ViewID)
	}
	if rc.Partial().IsAjax() {
		return d.partial(rc, view)
	}
	rc.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
	cw := &commitWriter{w: rc.Response}
	err := view.Render(rc).Render(rc.Context(), cw)
	if err != nil && cw.committed {
		// The page is already streaming; an error page can no longer replace it.
		rc.ResponseCompleted()
	}
	return err
}

// commitWriter records whether anything was written, which commits the
// response status.
type commitWriter struct {
	w         io.Writer
	committed bool
}

func (c *commitWriter) Write(p []byte) (int, error) {
	c.committed = true
	return c.w.Write(p)
}

func (d *Dispatcher) partial(rc *RequestContext, view *ViewRoot) error {
	pc := rc.Partial()
	h := rc.Response.Header()
	h.Set("Content-Type", partial.ContentType)
	h.Set("Cache-Control", "no-cache")

	pw := partial.NewWriter(rc.Response)
	rc.partialWriter = pw
	if err := pw.StartDocument(""); err != nil {
		return err
	}
	if pc.redirect != "" {
		if err := pw.Redirect(pc.redirect); err != nil {
			return err
		}
		rc.ResponseCompleted()
		return pw.EndDocument()
	}

	ctx := rc.Context()
	if pc.IsRenderAll() {
		if err := region(pw, pw.StartUpdate, pw.EndUpdate, partial.ViewRootID, func(w io.Writer) error {
			return view.Render(rc).Render(ctx, w)
		}); err != nil {
			return err
		}
	}
	for _, c := range pc.changes {
		if pc.IsRenderAll() && c.Kind == ChangeUpdate {
			continue
		}
		if err := d.change(ctx, rc, pw, view, c); err != nil {
			return err
		}
	}

	if tok := rc.ViewStateToken(); tok != "" {
		if err := region(pw, pw.StartUpdate, pw.EndUpdate, partial.ViewStateID, func(w io.Writer) error {
			_, err := io.WriteString(w, tok)
			return err
		}); err != nil {
			return err
		}
	}

	if len(pc.extension) > 0 || len(pc.extAttrs) > 0 {
		if err := pw.StartExtension(pc.extAttrs); err != nil {
			return err
		}
		for _, body := range pc.extension {
			if err := body(pw); err != nil {
				return err
			}
		}
		if err := pw.EndExtension(); err != nil {
			return err
		}
	}
	return pw.EndDocument()
}

func (d *Dispatcher) change(ctx context.Context, rc *RequestContext, pw *partial.Writer, view *ViewRoot, c Change) error {
	switch c.Kind {
	case ChangeUpdate:
		markup := d.target(rc, view, c.TargetID)
		if markup == nil {
			return nil
		}
		return region(pw, pw.StartUpdate, pw.EndUpdate, c.TargetID, func(w io.Writer) error {
			return markup.Render(ctx, w)
		})
	case ChangeInsertBefore, ChangeInsertAfter:
		start := pw.StartInsertAfter
		if c.Kind == ChangeInsertBefore {
			start = pw.StartInsertBefore
		}
		return region(pw, start, pw.EndInsert, c.TargetID, func(w io.Writer) error {
			return c.Markup.Render(ctx, w)
		})
	case ChangeDelete:
		return pw.Delete(c.TargetID)
	case ChangeAttributes:
		return pw.UpdateAttributes(c.TargetID, c.Attrs)
	case ChangeEval:
		if err := pw.StartEval(); err != nil {
			return err
		}
		if _, err := pw.WriteString(c.Script); err != nil {
			return err
		}
		return pw.EndEval()
	}
	return fmt.Errorf("%w: change kind %s", ErrUnsupported, c.Kind)
}

// target returns the markup for an update of id, or nil when the view has
// no such component.
func (d *Dispatcher) target(rc *RequestContext, view *ViewRoot, id string) templ.Component {
	switch id {
	case partial.ViewRootID:
		return view.Render(rc)
	case partial.ViewHeadID:
		return view.RenderHead(rc)
	case partial.ViewBodyID:
		return view.RenderBody(rc)
	}
	if c := view.Find(id); c != nil {
		return c.Render(rc)
	}
	d.logger().Warn("render target not found", "view_id", view.ViewID, "client_id", id)
	return nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func region(pw *partial.Writer, start func(string) error, end func() error, id string, body func(io.Writer) error) error {
	if err := start(id); err != nil {
		return err
	}
	if err := body(pw); err != nil {
		return err
	}
	return end()
}
