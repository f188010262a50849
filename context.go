package hxfaces

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pthm/hxfaces/lib/invoke"
	"github.com/pthm/hxfaces/lib/partial"
)

// LifecycleState tracks a request through Run.
type LifecycleState int

const (
	StateCreated LifecycleState = iota
	StateExecuted
	StateRendered
	StateFailed
)

func (s LifecycleState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateExecuted:
		return "EXECUTED"
	case StateRendered:
		return "RENDERED"
	case StateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// RequestContext carries all per-request lifecycle state. It is created by
// the front controller for one request, passed explicitly to every phase,
// listener, component and writer, and never shared between requests.
type RequestContext struct {
	Request  *http.Request
	Response http.ResponseWriter

	// PathInfo is the request path below the lifecycle's mount prefix.
	PathInfo string
	// Prefix is the mount prefix the request was dispatched on.
	Prefix string
	// ViewID names the view being processed. RESTORE_VIEW derives it from
	// PathInfo when empty.
	ViewID string

	ctx              context.Context
	logger           *slog.Logger
	production       bool
	responseComplete bool
	renderResponse   bool
	phase            PhaseID
	state            LifecycleState

	faults   *FaultHandler
	messages []Message
	actions  []ActionSource

	viewRoot       *ViewRoot
	viewStateToken string
	partialCtx     *PartialContext
	partialWriter  *partial.Writer

	handler   *invoke.Handler
	result    any
	hasResult bool
}

// ContextOption configures a RequestContext.
type ContextOption func(*RequestContext)

// WithContextLogger sets the logger used for this request.
func WithContextLogger(l *slog.Logger) ContextOption {
	return func(rc *RequestContext) { rc.logger = l }
}

// WithProduction marks the request as running in the production stage.
func WithProduction(production bool) ContextOption {
	return func(rc *RequestContext) { rc.production = production }
}

// WithAjaxErrors makes faults on ajax requests render as partial-response
// error documents instead of propagating.
func WithAjaxErrors(enabled bool) ContextOption {
	return func(rc *RequestContext) {
		if enabled && rc.Partial().IsAjax() {
			rc.faults.partial = rc
		} else {
			rc.faults.partial = nil
		}
	}
}

// WithPathInfo overrides the path info, which defaults to the URL path.
func WithPathInfo(prefix, pathInfo string) ContextOption {
	return func(rc *RequestContext) {
		rc.Prefix = prefix
		rc.PathInfo = pathInfo
	}
}

// NewRequestContext creates the context for one request.
func NewRequestContext(w http.ResponseWriter, r *http.Request, opts ...ContextOption) *RequestContext {
	rc := &RequestContext{
		Request:  r,
		Response: w,
		PathInfo: r.URL.Path,
		ctx:      r.Context(),
		logger:   slog.Default(),
	}
	rc.faults = newFaultHandler(rc.logger)
	for _, opt := range opts {
		opt(rc)
	}
	rc.faults.logger = rc.logger
	return rc
}

// Context returns the context for the current phase. It carries the phase
// span while a phase runs.
func (rc *RequestContext) Context() context.Context { return rc.ctx }

// Logger returns the request logger.
func (rc *RequestContext) Logger() *slog.Logger { return rc.logger }

// Production reports whether the application runs in the production stage.
func (rc *RequestContext) Production() bool { return rc.production }

// ResponseComplete reports whether the response has been fully produced.
// Once set, no further phases run and nothing more is written.
func (rc *RequestContext) ResponseComplete() bool { return rc.responseComplete }

// ResponseCompleted marks the response complete. It cannot be unset.
func (rc *RequestContext) ResponseCompleted() { rc.responseComplete = true }

// RenderResponse reports whether processing should skip to RENDER_RESPONSE.
func (rc *RequestContext) RenderResponse() bool { return rc.renderResponse }

// SkipToRender skips the remaining execute phases. It cannot be unset.
func (rc *RequestContext) SkipToRender() { rc.renderResponse = true }

// Phase returns the phase currently running.
func (rc *RequestContext) Phase() PhaseID { return rc.phase }

// State returns the lifecycle state.
func (rc *RequestContext) State() LifecycleState { return rc.state }

// Faults returns the request's fault handler.
func (rc *RequestContext) Faults() *FaultHandler { return rc.faults }

// QueueFault records a fault against the current phase.
func (rc *RequestContext) QueueFault(clientID string, err error) {
	rc.faults.Queue(FaultRecord{Phase: rc.phase, ClientID: clientID, Err: err})
}

// AddMessage queues a message. An empty clientID makes it global.
func (rc *RequestContext) AddMessage(m Message) {
	rc.messages = append(rc.messages, m)
}

// Messages returns messages for clientID, or every message when clientID is
// empty.
func (rc *RequestContext) Messages(clientID string) []Message {
	if clientID == "" {
		return rc.messages
	}
	var out []Message
	for _, m := range rc.messages {
		if m.ClientID == clientID {
			out = append(out, m)
		}
	}
	return out
}

// MaximumSeverity returns the highest queued message severity and whether
// any message is queued.
func (rc *RequestContext) MaximumSeverity() (Severity, bool) {
	if len(rc.messages) == 0 {
		return SeverityInfo, false
	}
	highest := SeverityInfo
	for _, m := range rc.messages {
		if m.Severity > highest {
			highest = m.Severity
		}
	}
	return highest, true
}

// ValidationFailed reports whether an ERROR or FATAL message is queued.
func (rc *RequestContext) ValidationFailed() bool {
	s, ok := rc.MaximumSeverity()
	return ok && s >= SeverityError
}

// QueueAction schedules src to fire during INVOKE_APPLICATION.
func (rc *RequestContext) QueueAction(src ActionSource) {
	rc.actions = append(rc.actions, src)
}

// ViewRoot returns the current component tree, or nil.
func (rc *RequestContext) ViewRoot() *ViewRoot { return rc.viewRoot }

// SetViewRoot replaces the component tree.
func (rc *RequestContext) SetViewRoot(v *ViewRoot) {
	rc.viewRoot = v
	if v != nil {
		rc.ViewID = v.ViewID
	}
}

// ViewStateToken returns the saved state token for the view being
// rendered. Templates embed it in forms as the ViewStateParam field.
func (rc *RequestContext) ViewStateToken() string { return rc.viewStateToken }

// Partial returns the request's partial processing context.
func (rc *RequestContext) Partial() *PartialContext {
	if rc.partialCtx == nil {
		rc.partialCtx = newPartialContext(rc.Request)
	}
	return rc.partialCtx
}

// Param returns a request parameter from the query string or form body.
func (rc *RequestContext) Param(name string) string {
	return rc.Request.FormValue(name)
}

// HasParam reports whether the request carries the named parameter.
func (rc *RequestContext) HasParam(name string) bool {
	if rc.Request.Form == nil {
		_ = rc.Request.ParseMultipartForm(32 << 20)
	}
	_, ok := rc.Request.Form[name]
	return ok
}

// IsPostback reports whether the request submits a previously rendered view.
func (rc *RequestContext) IsPostback() bool {
	return rc.HasParam(ViewStateParam)
}

// URL returns the external URL for a view id under the mount prefix.
func (rc *RequestContext) URL(viewID string) string {
	prefix := rc.Prefix
	if prefix == "/" {
		prefix = ""
	}
	return prefix + viewID
}

// Result returns the value produced by an Action or REST handler.
func (rc *RequestContext) Result() (any, bool) { return rc.result, rc.hasResult }

// Handler returns the handler an Action or REST request was mapped to.
func (rc *RequestContext) Handler() *invoke.Handler { return rc.handler }

func (rc *RequestContext) setResult(v any) {
	rc.result = v
	rc.hasResult = true
}
