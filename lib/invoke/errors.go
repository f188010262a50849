package invoke

import (
	"errors"
	"fmt"
)

// ErrNoProvider is returned when no managed object is registered for a type.
var ErrNoProvider = errors.New("invoke: no provider registered")

// BindingError reports a parameter that could not be produced.
type BindingError struct {
	Param    string
	Pattern  string
	PathInfo string
	Err      error
}

func (e *BindingError) Error() string {
	msg := fmt.Sprintf("invoke: cannot bind %q", e.Param)
	if e.Pattern != "" {
		msg += fmt.Sprintf(" from pattern %q against %q", e.Pattern, e.PathInfo)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BindingError) Unwrap() error { return e.Err }

// InvocationError wraps every failure raised while producing arguments for,
// or calling, a handler.
type InvocationError struct {
	Handler string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke: %s: %v", e.Handler, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
