package hxfaces

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/a-h/templ"
)

// Severity orders messages and faults.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Message is a user-facing notice, usually from conversion or validation.
// ClientID is empty for global messages.
type Message struct {
	Severity Severity
	ClientID string
	Summary  string
	Detail   string
}

// ValidationError is returned by Decoder, Validator or ModelUpdater
// implementations to report bad input. The lifecycle turns it into an ERROR
// message for the component instead of a fault.
type ValidationError struct {
	Summary string
	Detail  string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return e.Summary + ": " + e.Detail
	}
	return e.Summary
}

// Invalid is shorthand for &ValidationError{Summary: summary}.
func Invalid(summary string) error {
	return &ValidationError{Summary: summary}
}

// Messages renders queued messages as a list, optionally only those for one
// client id.
//
// Place it in a view template the way a form error summary would go:
//
//	@hxfaces.Messages(rc, "")         // every message
//	@hxfaces.Messages(rc, "form:name") // one field
//
// Each item carries a severity class ("msg-error", "msg-info", ...).
func Messages(rc *RequestContext, clientID string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		msgs := rc.Messages(clientID)
		if len(msgs) == 0 {
			return nil
		}
		sorted := append([]Message(nil), msgs...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Severity > sorted[j].Severity })

		if _, err := io.WriteString(w, `<ul class="messages">`); err != nil {
			return err
		}
		for _, m := range sorted {
			text := m.Summary
			if m.Detail != "" {
				text += ": " + m.Detail
			}
			if _, err := fmt.Fprintf(w, `<li class="msg-%s">%s</li>`,
				templ.EscapeString(lowerSeverity(m.Severity)), templ.EscapeString(text)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

func lowerSeverity(s Severity) string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return "info"
}
