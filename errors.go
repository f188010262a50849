package hxfaces

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for lifecycle processing.
var (
	// ErrAbortProcessing stops the current event chain without failing the
	// request. Faults caused by it are logged and never rethrown.
	ErrAbortProcessing = errors.New("hxfaces: abort processing")
	ErrViewNotFound    = errors.New("hxfaces: view not found")
	ErrViewExpired     = errors.New("hxfaces: view state expired or invalid")
	ErrNoMapping       = errors.New("hxfaces: no mapping matches request path")
	ErrUnsupported     = errors.New("hxfaces: unsupported result")
)

// IsNotFound reports whether err should produce a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrViewNotFound) || errors.Is(err, ErrNoMapping)
}

// IsAbort reports whether err is an abort-processing signal.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAbortProcessing)
}

// IsViewExpired reports whether err came from state that could not be
// restored.
func IsViewExpired(err error) bool {
	return errors.Is(err, ErrViewExpired)
}

// LifecycleError is the framework-level failure rethrown by the fault
// handler, or raised when a short-circuit response could not be written. Err
// is the root cause of the fault.
type LifecycleError struct {
	Phase         PhaseID
	ClientID      string
	InBeforePhase bool
	InAfterPhase  bool
	Err           error
}

func (e *LifecycleError) Error() string {
	where := e.Phase.String()
	switch {
	case e.InBeforePhase:
		where += " (before phase)"
	case e.InAfterPhase:
		where += " (after phase)"
	}
	if e.ClientID != "" {
		where += " [" + e.ClientID + "]"
	}
	return fmt.Sprintf("hxfaces: %s: %v", where, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// StatusCode is the HTTP status the failure should be reported with.
func (e *LifecycleError) StatusCode() int {
	if IsNotFound(e.Err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// rootCause strips LifecycleError wrappers so a rethrown fault never wraps
// another framework error.
func rootCause(err error) error {
	for {
		le, ok := err.(*LifecycleError)
		if !ok || le.Err == nil {
			return err
		}
		err = le.Err
	}
}

// StatusCode maps any error escaping a lifecycle to an HTTP status.
func StatusCode(err error) int {
	var le *LifecycleError
	if errors.As(err, &le) {
		return le.StatusCode()
	}
	if IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
