package hxfaces

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Panel groups child components inside a <div> carrying the panel's id.
// Markup, when set, replaces the default rendering; it receives the rendered
// children.
type Panel struct {
	ID     string
	Kids   []UIComponent
	Markup func(rc *RequestContext, children templ.Component) templ.Component
}

func (p *Panel) ClientID() string        { return p.ID }
func (p *Panel) Children() []UIComponent { return p.Kids }

func (p *Panel) Render(rc *RequestContext) templ.Component {
	body := renderAll(rc, p.Kids)
	if p.Markup != nil {
		return p.Markup(rc, body)
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div id="%s">`, templ.EscapeString(p.ID)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// Text renders a value inside a <span>.
type Text struct {
	ID    string
	Value func(rc *RequestContext) string
}

func (t *Text) ClientID() string        { return t.ID }
func (t *Text) Children() []UIComponent { return nil }

func (t *Text) Render(rc *RequestContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var v string
		if t.Value != nil {
			v = t.Value(rc)
		}
		_, err := fmt.Fprintf(w, `<span id="%s">%s</span>`, templ.EscapeString(t.ID), templ.EscapeString(v))
		return err
	})
}

// Input is a text field. It decodes the request parameter named by its id,
// validates it and, once valid, hands it to Update.
//
// The local value survives postbacks through SaveState. When validation
// fails the submitted text is rendered back so the user can correct it.
type Input struct {
	ID       string
	Label    string
	Value    string
	Required bool

	Validators []func(string) error
	Update     func(string) error

	submitted    string
	hasSubmitted bool
	invalid      bool
}

func (in *Input) ClientID() string        { return in.ID }
func (in *Input) Children() []UIComponent { return nil }

// Submitted returns the raw value decoded from the request.
func (in *Input) Submitted() (string, bool) { return in.submitted, in.hasSubmitted }

// Invalid reports whether the last validation failed.
func (in *Input) Invalid() bool { return in.invalid }

func (in *Input) Decode(rc *RequestContext) error {
	if !rc.HasParam(in.ID) {
		return nil
	}
	in.submitted = rc.Param(in.ID)
	in.hasSubmitted = true
	return nil
}

func (in *Input) Validate(rc *RequestContext) error {
	if !in.hasSubmitted {
		return nil
	}
	in.invalid = true
	if in.Required && strings.TrimSpace(in.submitted) == "" {
		return &ValidationError{Summary: in.label() + ": a value is required"}
	}
	for _, v := range in.Validators {
		if err := v(in.submitted); err != nil {
			return err
		}
	}
	in.invalid = false
	in.Value = in.submitted
	return nil
}

func (in *Input) UpdateModel(rc *RequestContext) error {
	if !in.hasSubmitted || in.invalid || in.Update == nil {
		return nil
	}
	return in.Update(in.Value)
}

func (in *Input) SaveState() map[string]any {
	return map[string]any{"value": in.Value}
}

func (in *Input) RestoreState(state map[string]any) error {
	v, ok := state["value"]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("input %s: value has type %T", in.ID, v)
	}
	in.Value = s
	return nil
}

func (in *Input) Render(rc *RequestContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		value := in.Value
		if in.invalid {
			value = in.submitted
		}
		id := templ.EscapeString(in.ID)
		_, err := fmt.Fprintf(w, `<input type="text" id="%s" name="%s" value="%s">`, id, id, templ.EscapeString(value))
		return err
	})
}

func (in *Input) label() string {
	if in.Label != "" {
		return in.Label
	}
	return in.ID
}

// Button submits its form and fires OnAction during INVOKE_APPLICATION. It
// is activated when the request carries its id as a parameter or names it
// as the ajax source.
type Button struct {
	ID       string
	Label    string
	OnAction func(rc *RequestContext) (string, error)
}

func (b *Button) ClientID() string        { return b.ID }
func (b *Button) Children() []UIComponent { return nil }

func (b *Button) Decode(rc *RequestContext) error {
	if rc.HasParam(b.ID) || rc.Param(ParamSource) == b.ID {
		rc.QueueAction(b)
	}
	return nil
}

func (b *Button) Action(rc *RequestContext) (string, error) {
	if b.OnAction == nil {
		return "", nil
	}
	return b.OnAction(rc)
}

func (b *Button) Render(rc *RequestContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		id := templ.EscapeString(b.ID)
		label := templ.EscapeString(b.Label)
		_, err := fmt.Fprintf(w, `<button type="submit" id="%s" name="%s" value="%s">%s</button>`, id, id, label, label)
		return err
	})
}

func renderAll(rc *RequestContext, kids []UIComponent) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, k := range kids {
			if err := k.Render(rc).Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// Form posts its children back to the current view. It carries the view
// state field so the submission is processed as a postback.
type Form struct {
	ID   string
	Kids []UIComponent
}

func (f *Form) ClientID() string        { return f.ID }
func (f *Form) Children() []UIComponent { return f.Kids }

func (f *Form) Render(rc *RequestContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<form id="%s" method="post" action="%s">`,
			templ.EscapeString(f.ID), templ.EscapeString(rc.URL(rc.ViewID))); err != nil {
			return err
		}
		if err := renderAll(rc, f.Kids).Render(ctx, w); err != nil {
			return err
		}
		if err := ViewStateField(rc).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</form>`)
		return err
	})
}
