package hxfaces

import "github.com/a-h/templ"

// Result is returned from action handlers to control rendering and side
// effects.
//
// Result is a fluent builder: handlers state what should happen and the
// ActionLifecycle applies it after the handler returns, so handlers never
// write to the ResponseWriter themselves.
//
//	// Render a view with a message
//	return hxfaces.View("/orders").Message(hxfaces.SeverityInfo, "Saved"), nil
//
//	// Render a fragment
//	return hxfaces.Markup(orderRow(o)).Status(http.StatusCreated), nil
//
//	// Redirect after a post
//	return hxfaces.RedirectTo("/orders"), nil
type Result struct {
	view     string
	markup   templ.Component
	redirect string
	messages []Message
	headers  map[string]string
	status   int
}

// View renders the view with viewID.
func View(viewID string) Result {
	return Result{view: viewID}
}

// Markup renders c as text/html.
func Markup(c templ.Component) Result {
	return Result{markup: c}
}

// RedirectTo redirects the client to url. Ajax requests receive a
// partial-response redirect, others 303 See Other.
func RedirectTo(url string) Result {
	return Result{redirect: url}
}

// NoContent answers 204 No Content.
func NoContent() Result {
	return Result{}
}

// Message queues a global message for the rendered view.
func (r Result) Message(severity Severity, summary string) Result {
	r.messages = append(r.messages, Message{Severity: severity, Summary: summary})
	return r
}

// Header sets a response header.
func (r Result) Header(key, value string) Result {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

// Status sets the HTTP status used with Markup, or alone for an empty
// response. Views and redirects ignore it.
func (r Result) Status(code int) Result {
	r.status = code
	return r
}

// GetView returns the view id to render.
func (r Result) GetView() string { return r.view }

// GetMarkup returns the component to render.
func (r Result) GetMarkup() templ.Component { return r.markup }

// GetRedirect returns the redirect URL.
func (r Result) GetRedirect() string { return r.redirect }

// GetMessages returns the queued messages.
func (r Result) GetMessages() []Message { return r.messages }

// GetHeaders returns the response headers.
func (r Result) GetHeaders() map[string]string { return r.headers }

// GetStatus returns the HTTP status code (0 means not set).
func (r Result) GetStatus() int { return r.status }
