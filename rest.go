package hxfaces

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/pthm/hxfaces/lib/invoke"
	"github.com/pthm/hxfaces/lib/mapping"
)

// BodyWriter serializes a REST handler result.
type BodyWriter interface {
	// ContentType is the full Content-Type header value written.
	ContentType() string
	Write(w io.Writer, v any) error
}

// JSONWriter writes results as JSON.
type JSONWriter struct{}

func (JSONWriter) ContentType() string { return "application/json" }

func (JSONWriter) Write(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// TextWriter writes results with fmt formatting. Byte slices and strings
// are written as is.
type TextWriter struct{}

func (TextWriter) ContentType() string { return "text/plain; charset=utf-8" }

func (TextWriter) Write(w io.Writer, v any) error {
	var err error
	switch b := v.(type) {
	case []byte:
		_, err = w.Write(b)
	case string:
		_, err = io.WriteString(w, b)
	default:
		_, err = fmt.Fprint(w, v)
	}
	return err
}

// Writers selects a BodyWriter by media type, falling back to Default.
type Writers struct {
	list    []BodyWriter
	Default BodyWriter
}

// NewWriters returns the JSON writer plus ws, with TextWriter as the
// fallback.
func NewWriters(ws ...BodyWriter) *Writers {
	return &Writers{list: append([]BodyWriter{JSONWriter{}}, ws...), Default: TextWriter{}}
}

// Add registers w ahead of the existing writers.
func (ws *Writers) Add(w BodyWriter) {
	ws.list = append([]BodyWriter{w}, ws.list...)
}

// Select returns the writer for contentType, which may be a single media
// type or an Accept header list. The first listed type a writer produces
// wins; anything else gets the default writer.
func (ws *Writers) Select(contentType string) BodyWriter {
	for _, part := range strings.Split(contentType, ",") {
		want, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		for _, w := range ws.list {
			if have, _, _ := mime.ParseMediaType(w.ContentType()); have == want {
				return w
			}
		}
	}
	return ws.Default
}

// RestLifecycle serves handlers whose results are serialized rather than
// rendered. The writer is chosen by the handler's Produces type or, when it
// is empty, the request's Accept header.
type RestLifecycle struct {
	matcher *mapping.Matcher[*invoke.Handler]
	invoker *invoke.Invoker
	writers *Writers
}

// NewRestLifecycle returns a lifecycle serving the handlers in matcher. A
// nil writers uses NewWriters().
func NewRestLifecycle(matcher *mapping.Matcher[*invoke.Handler], inv *invoke.Invoker, writers *Writers) *RestLifecycle {
	if writers == nil {
		writers = NewWriters()
	}
	provideRequestContext(inv)
	return &RestLifecycle{matcher: matcher, invoker: inv, writers: writers}
}

func (l *RestLifecycle) lifecycle() {}

// Execute resolves and invokes the handler mapped to the path info.
func (l *RestLifecycle) Execute(rc *RequestContext) error {
	_, err := invokeMapped(rc, l.matcher, l.invoker)
	return err
}

// Render serializes the handler's result. An absent result answers 204.
func (l *RestLifecycle) Render(rc *RequestContext) error {
	if rc.ResponseComplete() {
		return nil
	}
	rc.phase = RenderResponse
	res, ok := rc.Result()
	if !ok || res == nil {
		return noContent(rc)
	}

	accept := rc.Request.Header.Get("Accept")
	if h := rc.Handler(); h != nil && h.Produces != "" {
		accept = h.Produces
	}
	w := l.writers.Select(accept)
	rc.Response.Header().Set("Content-Type", w.ContentType())
	rc.Response.WriteHeader(http.StatusOK)
	defer rc.ResponseCompleted()
	if err := w.Write(rc.Response, res); err != nil {
		return &LifecycleError{Phase: RenderResponse, Err: fmt.Errorf("writing %s response: %w", w.ContentType(), err)}
	}
	return nil
}
