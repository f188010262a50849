package hxfaces

import (
	"fmt"
	"log/slog"

	"github.com/pthm/hxfaces/lib/partial"
)

// ProductionErrorMessage replaces fault details in ajax error responses when
// the application runs in the production stage.
const ProductionErrorMessage = "See your server log for more information"

// FaultRecord is one queued processing fault.
type FaultRecord struct {
	Severity      Severity
	ClientID      string
	Summary       string
	Detail        string
	Phase         PhaseID
	Err           error
	InBeforePhase bool
	InAfterPhase  bool
}

// Abort reports whether the fault only signals abort-processing.
func (f FaultRecord) Abort() bool { return IsAbort(f.Err) }

// FaultHandler holds the faults queued during a request and decides, at each
// phase boundary, which of them end normal processing.
//
// Handle moves faults from the queue to the handled set one at a time, in
// queue order. Abort faults are logged and skipped. The first other fault is
// returned as a *LifecycleError; faults after it stay queued for the next
// call.
//
// For ajax requests the handler can instead answer with a partial-response
// error document: every queued fault is drained, the first non-abort fault is
// written to the client, the response is marked complete and Handle returns
// nil.
type FaultHandler struct {
	queued  []FaultRecord
	handled []FaultRecord
	logger  *slog.Logger

	// partial is set for ajax requests with ajax error rendering enabled.
	partial *RequestContext
}

func newFaultHandler(logger *slog.Logger) *FaultHandler {
	return &FaultHandler{logger: logger}
}

// Queue appends a fault. A zero Severity is raised to ERROR when Err is set.
func (h *FaultHandler) Queue(f FaultRecord) {
	if f.Err != nil && f.Severity < SeverityError {
		f.Severity = SeverityError
	}
	if f.Summary == "" && f.Err != nil {
		f.Summary = f.Err.Error()
	}
	h.queued = append(h.queued, f)
}

// Queued returns the faults not yet handled.
func (h *FaultHandler) Queued() []FaultRecord { return h.queued }

// Handled returns the faults already handled, in handling order.
func (h *FaultHandler) Handled() []FaultRecord { return h.handled }

// Handle processes the queue.
func (h *FaultHandler) Handle() error {
	if h.partial != nil {
		h.handlePartial()
		return nil
	}
	for len(h.queued) > 0 {
		f := h.next()
		if f.Abort() {
			h.logAbort(f)
			continue
		}
		err := wrapFault(f)
		h.logger.Error("lifecycle fault", faultAttrs(f)...)
		return err
	}
	return nil
}

func (h *FaultHandler) next() FaultRecord {
	f := h.queued[0]
	h.queued[0] = FaultRecord{}
	h.queued = h.queued[1:]
	h.handled = append(h.handled, f)
	return f
}

func (h *FaultHandler) handlePartial() {
	rc := h.partial
	for len(h.queued) > 0 {
		f := h.next()
		if f.Abort() {
			h.logAbort(f)
			continue
		}
		err := wrapFault(f)
		h.logger.Error("lifecycle fault", faultAttrs(f)...)
		if rc.ResponseComplete() {
			continue
		}
		if werr := writePartialError(rc, err); werr != nil {
			h.logger.Error("writing partial error response failed", "err", werr)
		}
		rc.ResponseCompleted()
	}
}

func (h *FaultHandler) logAbort(f FaultRecord) {
	h.logger.Warn("event processing aborted", faultAttrs(f)...)
}

func faultAttrs(f FaultRecord) []any {
	attrs := []any{"phase", f.Phase.String(), "err", f.Err}
	if f.ClientID != "" {
		attrs = append(attrs, "client_id", f.ClientID)
	}
	switch {
	case f.InBeforePhase:
		attrs = append(attrs, "listener", "before")
	case f.InAfterPhase:
		attrs = append(attrs, "listener", "after")
	}
	return attrs
}

func wrapFault(f FaultRecord) *LifecycleError {
	return &LifecycleError{
		Phase:         f.Phase,
		ClientID:      f.ClientID,
		InBeforePhase: f.InBeforePhase,
		InAfterPhase:  f.InAfterPhase,
		Err:           rootCause(f.Err),
	}
}

func writePartialError(rc *RequestContext, le *LifecycleError) error {
	msg := ProductionErrorMessage
	if !rc.Production() && le.Err != nil {
		msg = le.Err.Error()
	}

	// Reuse the dispatcher's writer when rendering failed half way so the
	// error element closes the document already on the wire.
	pw := rc.partialWriter
	if pw == nil || !pw.Open() {
		h := rc.Response.Header()
		h.Set("Content-Type", partial.ContentType)
		h.Set("Cache-Control", "no-cache")
		pw = partial.NewWriter(rc.Response)
		if err := pw.StartDocument(""); err != nil {
			return err
		}
	}
	if err := pw.StartError(fmt.Sprintf("%T", le.Err)); err != nil {
		return err
	}
	if _, err := pw.WriteString(msg); err != nil {
		return err
	}
	if err := pw.EndError(); err != nil {
		return err
	}
	return pw.EndDocument()
}
