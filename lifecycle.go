package hxfaces

import "context"

// Lifecycle processes one request in two steps. It is implemented by
// *Standard, *ActionLifecycle and *RestLifecycle only.
type Lifecycle interface {
	Execute(rc *RequestContext) error
	Render(rc *RequestContext) error
	lifecycle()
}

// Run drives rc through lc: CREATED, then EXECUTED, then RENDERED. An error
// from either step leaves rc FAILED and is returned. A lifecycle that
// answers the request itself during Execute, such as a 404 for an unmapped
// path, also leaves rc FAILED and is not rendered.
func Run(lc Lifecycle, rc *RequestContext) error {
	rc.state = StateCreated
	rc.ctx = context.WithValue(rc.ctx, rcKey{}, rc)

	if err := lc.Execute(rc); err != nil {
		rc.state = StateFailed
		return err
	}
	if rc.state == StateFailed {
		return nil
	}
	rc.state = StateExecuted

	if err := lc.Render(rc); err != nil {
		rc.state = StateFailed
		return err
	}
	rc.state = StateRendered
	return nil
}

type rcKey struct{}

// FromContext returns the RequestContext a lifecycle is running with.
// Handlers invoked by the Action and REST lifecycles receive a context
// carrying it.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(rcKey{}).(*RequestContext)
	return rc, ok
}
