package hxfaces

import (
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pthm/hxfaces/lib/encoding"
	"github.com/pthm/hxfaces/lib/telemetry"
)

// Standard is the six-phase lifecycle for component views.
//
// Execute runs RESTORE_VIEW through INVOKE_APPLICATION, checking before each
// phase whether processing should skip to rendering or the response is
// already complete. Render runs RENDER_RESPONSE unless the response is
// complete. Every phase notifies the registered listeners, runs its body
// unless skipped, and then lets the fault handler decide whether queued
// faults end the request.
type Standard struct {
	Listeners Listeners

	views      ViewFactory
	nav        *NavigationHandler
	state      *StateManager
	flash      *Flash
	dispatcher *Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// StandardOption configures a Standard lifecycle.
type StandardOption func(*Standard)

// WithLogger sets the lifecycle logger.
func WithLogger(l *slog.Logger) StandardOption {
	return func(s *Standard) { s.logger = l }
}

// WithNavigation sets the navigation rules.
func WithNavigation(n *NavigationHandler) StandardOption {
	return func(s *Standard) { s.nav = n }
}

// WithStateManager sets how view state is saved between requests.
func WithStateManager(m *StateManager) StandardOption {
	return func(s *Standard) { s.state = m }
}

// WithFlash keeps messages across navigation redirects.
func WithFlash(f *Flash) StandardOption {
	return func(s *Standard) { s.flash = f }
}

// WithTracer replaces the tracer used for phase spans.
func WithTracer(t trace.Tracer) StandardOption {
	return func(s *Standard) { s.tracer = t }
}

// WithListeners registers phase listeners.
func WithListeners(ls ...PhaseListener) StandardOption {
	return func(s *Standard) { s.Listeners.Add(ls...) }
}

// NewStandard returns a standard lifecycle building views with views.
//
// Without WithStateManager, state is kept on the client and signed with a
// key generated at startup, so tokens do not survive a restart.
func NewStandard(views ViewFactory, opts ...StandardOption) (*Standard, error) {
	s := &Standard{
		views:  views,
		nav:    &NavigationHandler{},
		logger: slog.Default(),
		tracer: telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.state == nil {
		key, err := encoding.RandomKey()
		if err != nil {
			return nil, err
		}
		codec, err := encoding.NewCodec(key, encoding.Signed)
		if err != nil {
			return nil, err
		}
		s.state = NewClientStateManager(codec)
	}
	s.dispatcher = &Dispatcher{Logger: s.logger}
	return s, nil
}

func (s *Standard) lifecycle() {}

// Execute runs the execute phases.
func (s *Standard) Execute(rc *RequestContext) error {
	for _, phase := range executePhases {
		if rc.RenderResponse() || rc.ResponseComplete() {
			break
		}
		if err := s.doPhase(rc, phase); err != nil {
			return err
		}
	}
	return nil
}

// Render runs RENDER_RESPONSE.
func (s *Standard) Render(rc *RequestContext) error {
	if rc.ResponseComplete() {
		return nil
	}
	return s.doPhase(rc, RenderResponse)
}

func (s *Standard) doPhase(rc *RequestContext, phase PhaseID) error {
	ctx, span := s.tracer.Start(rc.ctx, "hxfaces."+phase.String(),
		trace.WithAttributes(
			attribute.String("hxfaces.phase", phase.String()),
			attribute.String("hxfaces.view_id", rc.ViewID),
			attribute.Bool("hxfaces.ajax", rc.Partial().IsAjax()),
		))
	parent := rc.ctx
	rc.ctx = ctx
	defer func() {
		rc.ctx = parent
		span.End()
	}()

	rc.phase = phase
	listeners := s.Listeners.For(phase)
	ev := PhaseEvent{Phase: phase, Context: rc}

	ran := 0
	for _, l := range listeners {
		if err := safeCall(func() error { return l.BeforePhase(ev) }); err != nil {
			rc.faults.Queue(FaultRecord{Phase: phase, Err: err, InBeforePhase: true})
			break
		}
		ran++
	}

	if !shouldSkip(rc, phase) {
		if err := safeCall(func() error { return s.body(rc, phase) }); err != nil {
			rc.QueueFault("", err)
		}
	}

	for i := ran - 1; i >= 0; i-- {
		l := listeners[i]
		if err := safeCall(func() error { return l.AfterPhase(ev) }); err != nil {
			rc.faults.Queue(FaultRecord{Phase: phase, Err: err, InAfterPhase: true})
			break
		}
	}

	err := rc.faults.Handle()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func shouldSkip(rc *RequestContext, phase PhaseID) bool {
	return rc.ResponseComplete() || (rc.RenderResponse() && phase != RenderResponse)
}

func (s *Standard) body(rc *RequestContext, phase PhaseID) error {
	switch phase {
	case RestoreView:
		return s.restoreView(rc)
	case ApplyRequestValues:
		s.visitExecute(rc, func(c UIComponent) error {
			if d, ok := c.(Decoder); ok {
				return d.Decode(rc)
			}
			return nil
		})
	case ProcessValidations:
		s.visitExecute(rc, func(c UIComponent) error {
			if v, ok := c.(Validator); ok {
				return v.Validate(rc)
			}
			return nil
		})
		if rc.ValidationFailed() {
			rc.SkipToRender()
		}
	case UpdateModelValues:
		s.visitExecute(rc, func(c UIComponent) error {
			if m, ok := c.(ModelUpdater); ok {
				return m.UpdateModel(rc)
			}
			return nil
		})
		if rc.ValidationFailed() {
			rc.SkipToRender()
		}
	case InvokeApplication:
		return s.invokeApplication(rc)
	case RenderResponse:
		return s.renderResponse(rc)
	}
	return nil
}

func (s *Standard) restoreView(rc *RequestContext) error {
	if rc.ViewID == "" {
		rc.ViewID = ViewIDFromPath(rc.PathInfo)
	}
	if s.flash != nil {
		if err := s.flash.Restore(rc); err != nil {
			rc.Logger().Warn("restoring flash messages failed", "err", err)
		}
	}
	view, err := s.views.CreateView(rc, rc.ViewID)
	if err != nil {
		return err
	}
	rc.SetViewRoot(view)

	if !rc.IsPostback() {
		rc.Logger().Debug("initial request, skipping to render", "view_id", rc.ViewID)
		rc.SkipToRender()
		return nil
	}
	return s.state.Restore(rc, view)
}

// visitExecute applies fn to every component taking part in execution.
// A *ValidationError becomes an ERROR message for the component; any other
// error is queued as a fault carrying its client id.
func (s *Standard) visitExecute(rc *RequestContext, fn func(c UIComponent) error) {
	view := rc.ViewRoot()
	if view == nil {
		return
	}
	pc := rc.Partial()
	view.Visit(func(c UIComponent, ancestors []string) bool {
		if !pc.executes(c.ClientID(), ancestors) {
			return true
		}
		err := safeCall(func() error { return fn(c) })
		if err == nil {
			return true
		}
		var ve *ValidationError
		if errors.As(err, &ve) {
			rc.AddMessage(Message{Severity: SeverityError, ClientID: c.ClientID(), Summary: ve.Summary, Detail: ve.Detail})
		} else {
			rc.QueueFault(c.ClientID(), err)
		}
		return true
	})
}

func (s *Standard) invokeApplication(rc *RequestContext) error {
	actions := rc.actions
	rc.actions = nil
	for _, a := range actions {
		outcome, err := a.Action(rc)
		if err != nil {
			rc.QueueFault(a.ClientID(), err)
			return nil
		}
		if err := s.navigate(rc, outcome); err != nil {
			return err
		}
		if rc.ResponseComplete() {
			return nil
		}
	}
	return nil
}

func (s *Standard) renderResponse(rc *RequestContext) error {
	if rc.ViewRoot() == nil {
		if rc.ViewID == "" {
			rc.ViewID = ViewIDFromPath(rc.PathInfo)
		}
		view, err := s.views.CreateView(rc, rc.ViewID)
		if err != nil {
			return err
		}
		rc.SetViewRoot(view)
	}
	if _, err := s.state.Save(rc); err != nil {
		return err
	}
	return s.dispatcher.Dispatch(rc)
}

// safeCall turns a panic in fn into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
