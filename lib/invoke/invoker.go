package invoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Invoker calls matched handlers.
type Invoker struct {
	Beans  *Beans
	Binder *Binder
}

// NewInvoker returns an Invoker resolving receivers and injected parameters
// from beans.
func NewInvoker(beans *Beans) *Invoker {
	return &Invoker{Beans: beans, Binder: &Binder{Beans: beans}}
}

// Execute resolves the handler's receiver, binds its parameters in
// declaration order and calls it. Any failure, including a panic in the
// handler, is returned as *InvocationError.
func (inv *Invoker) Execute(ctx context.Context, r *http.Request, m Match) (result any, err error) {
	h := m.Handler
	if h == nil || h.Call == nil {
		return nil, &InvocationError{Handler: m.Pattern.String(), Err: errors.New("handler has no call target")}
	}

	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				err = &InvocationError{Handler: h.Name, Err: fmt.Errorf("panic: %w", e)}
				return
			}
			err = &InvocationError{Handler: h.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	var bean any
	if h.Bean != nil {
		if inv.Beans == nil {
			return nil, &InvocationError{Handler: h.Name, Err: ErrNoProvider}
		}
		bean, err = inv.Beans.Resolve(ctx, h.Bean)
		if err != nil {
			return nil, &InvocationError{Handler: h.Name, Err: err}
		}
	}

	args := make(Args, len(h.Params))
	for i, p := range h.Params {
		v, err := inv.Binder.Produce(ctx, r, m, p)
		if err != nil {
			return nil, &InvocationError{Handler: h.Name, Err: err}
		}
		args[i] = v
	}

	result, err = h.Call(ctx, bean, args)
	if err != nil {
		return nil, &InvocationError{Handler: h.Name, Err: err}
	}
	return result, nil
}
