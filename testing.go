package hxfaces

import (
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

// TestResult holds the outcome of running a lifecycle in a test.
//
// Provides convenience methods for asserting on the body, headers, status
// code, messages and, for ajax requests, the parsed partial response.
type TestResult struct {
	Body       string
	StatusCode int
	Headers    http.Header
	Context    *RequestContext
	Err        error

	// Partial is set when the response is a partial-response document.
	Partial *PartialDocument
}

// TestOption adjusts the request or context of TestRequest.
type TestOption func(*testRequest)

type testRequest struct {
	req      *http.Request
	prefix   string
	ctxOpts  []ContextOption
	ajaxErrs bool
}

// TestHeader sets a request header.
func TestHeader(key, value string) TestOption {
	return func(t *testRequest) { t.req.Header.Set(key, value) }
}

// TestPrefix sets the mount prefix the request is dispatched on. The path
// info is the target path below it.
func TestPrefix(prefix string) TestOption {
	return func(t *testRequest) { t.prefix = normalizePrefix(prefix) }
}

// TestContextOptions passes options to NewRequestContext.
func TestContextOptions(opts ...ContextOption) TestOption {
	return func(t *testRequest) { t.ctxOpts = append(t.ctxOpts, opts...) }
}

// TestAjaxErrors enables partial-response error documents for ajax requests.
func TestAjaxErrors() TestOption {
	return func(t *testRequest) { t.ajaxErrs = true }
}

// TestRequest runs lc for one request and records the response.
//
// Use this for integration tests of views and handlers without a server:
//
//	res := hxfaces.TestRequest(std, http.MethodGet, "/login", nil)
//	if !res.BodyContains(`id="login:name"`) {
//	    t.Fatal("missing field")
//	}
func TestRequest(lc Lifecycle, method, target string, form url.Values, opts ...TestOption) *TestResult {
	var body io.Reader = http.NoBody
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	tr := &testRequest{req: req, prefix: "/"}
	for _, opt := range opts {
		opt(tr)
	}
	info, ok := stripPrefix(req.URL.Path, tr.prefix)
	if !ok {
		info = req.URL.Path
	}

	rec := httptest.NewRecorder()
	ctxOpts := append([]ContextOption{
		WithContextLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPathInfo(tr.prefix, info),
		WithAjaxErrors(tr.ajaxErrs),
	}, tr.ctxOpts...)
	rc := NewRequestContext(rec, tr.req, ctxOpts...)
	err := Run(lc, rc)

	res := &TestResult{
		Body:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
		Context:    rc,
		Err:        err,
	}
	if strings.HasPrefix(res.Headers.Get("Content-Type"), "text/xml") {
		if doc, perr := ParsePartial(res.Body); perr == nil {
			res.Partial = doc
		}
	}
	return res
}

// TestGet runs an initial GET request.
func TestGet(lc Lifecycle, target string, opts ...TestOption) *TestResult {
	return TestRequest(lc, http.MethodGet, target, nil, opts...)
}

// TestPost runs a form post.
func TestPost(lc Lifecycle, target string, form url.Values, opts ...TestOption) *TestResult {
	return TestRequest(lc, http.MethodPost, target, form, opts...)
}

// TestAjax runs an ajax post with ajax error documents enabled.
func TestAjax(lc Lifecycle, target string, form url.Values, opts ...TestOption) *TestResult {
	opts = append([]TestOption{TestHeader(HeaderFacesRequest, FacesRequestAjax), TestAjaxErrors()}, opts...)
	return TestRequest(lc, http.MethodPost, target, form, opts...)
}

// BodyContains checks if the body contains a substring.
func (r *TestResult) BodyContains(substr string) bool {
	return strings.Contains(r.Body, substr)
}

// BodyContainsAll checks if the body contains all the given substrings.
func (r *TestResult) BodyContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.Body, s) {
			return false
		}
	}
	return true
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is set with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// HasMessage checks if a message with summary was queued.
func (r *TestResult) HasMessage(severity Severity, summary string) bool {
	for _, m := range r.Context.Messages("") {
		if m.Severity == severity && m.Summary == summary {
			return true
		}
	}
	return false
}

// RedirectedTo checks for a 303 redirect or a partial-response redirect to
// url.
func (r *TestResult) RedirectedTo(url string) bool {
	if r.Partial != nil && r.Partial.Redirect != nil {
		return r.Partial.Redirect.URL == url
	}
	return r.StatusCode == http.StatusSeeOther && r.Headers.Get("Location") == url
}

// PartialDocument is a parsed partial-response document.
type PartialDocument struct {
	XMLName  xml.Name        `xml:"partial-response"`
	ID       string          `xml:"id,attr"`
	Changes  *PartialChanges `xml:"changes"`
	Redirect *struct {
		URL string `xml:"url,attr"`
	} `xml:"redirect"`
	Error *struct {
		Name    string `xml:"error-name"`
		Message string `xml:"error-message"`
	} `xml:"error"`
}

// PartialChanges holds the changes in document order.
type PartialChanges struct {
	Items []PartialItem `xml:",any"`
}

// PartialItem is one element of <changes>. Content is the CDATA body of
// update, insert and eval elements, or the inner XML of an extension.
type PartialItem struct {
	XMLName xml.Name
	ID      string       `xml:"id,attr"`
	Attrs   []xml.Attr   `xml:",any,attr"`
	Content string       `xml:",chardata"`
	Inner   []PartialAny `xml:",any"`
}

// PartialAny captures nested elements of insert, attributes and extension.
type PartialAny struct {
	XMLName xml.Name
	ID      string     `xml:"id,attr"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",innerxml"`
}

// ParsePartial parses a partial-response document.
func ParsePartial(body string) (*PartialDocument, error) {
	var doc PartialDocument
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Kinds returns the element names of the changes in order.
func (d *PartialDocument) Kinds() []string {
	if d.Changes == nil {
		return nil
	}
	out := make([]string, len(d.Changes.Items))
	for i, it := range d.Changes.Items {
		out[i] = it.XMLName.Local
	}
	return out
}

// Updates returns the ids of the update elements in order.
func (d *PartialDocument) Updates() []string {
	var ids []string
	if d.Changes == nil {
		return nil
	}
	for _, it := range d.Changes.Items {
		if it.XMLName.Local == "update" {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Update returns the body of the update for id.
func (d *PartialDocument) Update(id string) (string, bool) {
	if d.Changes == nil {
		return "", false
	}
	for _, it := range d.Changes.Items {
		if it.XMLName.Local == "update" && it.ID == id {
			return it.Content, true
		}
	}
	return "", false
}
