package hxfaces

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/pthm/hxfaces/lib/partial"
)

type greetModel struct {
	name    string
	greeted int
	outcome string
	err     error
}

func greetViews(m *greetModel) Views {
	return Views{
		"/greet": func(rc *RequestContext) *ViewRoot {
			return &ViewRoot{Components: []UIComponent{
				&Panel{ID: "msgs", Markup: func(rc *RequestContext, _ templ.Component) templ.Component {
					return Messages(rc, "")
				}},
				&Form{ID: "form", Kids: []UIComponent{
					&Input{ID: "form:name", Label: "Name", Required: true, Update: func(v string) error {
						m.name = v
						return nil
					}},
					&Button{ID: "form:go", Label: "Go", OnAction: func(rc *RequestContext) (string, error) {
						m.greeted++
						return m.outcome, m.err
					}},
				}},
				&Text{ID: "out", Value: func(*RequestContext) string { return "Hello " + m.name }},
			}}
		},
		"/done": func(rc *RequestContext) *ViewRoot {
			return &ViewRoot{Components: []UIComponent{
				&Text{ID: "done", Value: func(*RequestContext) string { return "Done " + m.name }},
			}}
		},
	}
}

func newGreetLifecycle(t *testing.T, m *greetModel, opts ...StandardOption) *Standard {
	t.Helper()
	std, err := NewStandard(greetViews(m), opts...)
	if err != nil {
		t.Fatalf("NewStandard() error = %v", err)
	}
	return std
}

// postback renders /greet once and returns form values carrying its state.
func postback(t *testing.T, std *Standard, values map[string]string) url.Values {
	t.Helper()
	res := TestGet(std, "/greet")
	if res.Err != nil {
		t.Fatalf("initial request failed: %v", res.Err)
	}
	form := url.Values{ViewStateParam: {res.Context.ViewStateToken()}}
	for k, v := range values {
		form.Set(k, v)
	}
	return form
}

func phaseRecorder(log *[]string, name string, phase PhaseID) *ListenerFuncs {
	return &ListenerFuncs{
		Phase: phase,
		Before: func(e PhaseEvent) error {
			*log = append(*log, name+":before:"+e.Phase.String())
			return nil
		},
		After: func(e PhaseEvent) error {
			*log = append(*log, name+":after:"+e.Phase.String())
			return nil
		},
	}
}

func TestStandardInitialRequestSkipsToRender(t *testing.T) {
	var log []string
	m := &greetModel{}
	std := newGreetLifecycle(t, m, WithListeners(phaseRecorder(&log, "l", AnyPhase)))

	res := TestGet(std, "/greet")
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	want := []string{
		"l:before:RESTORE_VIEW", "l:after:RESTORE_VIEW",
		"l:before:RENDER_RESPONSE", "l:after:RENDER_RESPONSE",
	}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("phases = %v, want %v", log, want)
	}
	if !res.IsOK() || !res.HasHeader("Content-Type", "text/html; charset=utf-8") {
		t.Errorf("status %d, content type %q", res.StatusCode, res.Headers.Get("Content-Type"))
	}
	if !res.BodyContainsAll(`<form id="form"`, `id="form:name"`, `name="jakarta.faces.ViewState"`, "Hello ") {
		t.Errorf("unexpected body: %s", res.Body)
	}
	if res.Context.State() != StateRendered {
		t.Errorf("state = %v, want RENDERED", res.Context.State())
	}
}

func TestStandardPostbackRunsAllPhases(t *testing.T) {
	var log []string
	m := &greetModel{}
	std := newGreetLifecycle(t, m)
	form := postback(t, std, map[string]string{"form:name": "Ada", "form:go": "Go"})
	std.Listeners.Add(&ListenerFuncs{Phase: AnyPhase, Before: func(e PhaseEvent) error {
		log = append(log, e.Phase.String())
		return nil
	}})

	res := TestPost(std, "/greet", form)
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	want := []string{"RESTORE_VIEW", "APPLY_REQUEST_VALUES", "PROCESS_VALIDATIONS", "UPDATE_MODEL_VALUES", "INVOKE_APPLICATION", "RENDER_RESPONSE"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("phases = %v, want %v", log, want)
	}
	if m.name != "Ada" || m.greeted != 1 {
		t.Errorf("model = %+v, want name Ada greeted once", m)
	}
	if !res.BodyContainsAll(`value="Ada"`, "Hello Ada") {
		t.Errorf("unexpected body: %s", res.Body)
	}
}

type skipOnDecode struct{ id string }

func (s *skipOnDecode) ClientID() string                       { return s.id }
func (s *skipOnDecode) Children() []UIComponent                { return nil }
func (s *skipOnDecode) Render(*RequestContext) templ.Component { return templ.NopComponent }
func (s *skipOnDecode) Decode(rc *RequestContext) error {
	rc.SkipToRender()
	return nil
}

func TestStandardRenderResponseShortCircuit(t *testing.T) {
	var phases []string
	renders := 0
	views := Views{"/skip": func(rc *RequestContext) *ViewRoot {
		return &ViewRoot{Components: []UIComponent{&skipOnDecode{id: "s"}}}
	}}
	std, err := NewStandard(views,
		WithListeners(
			&ListenerFuncs{Phase: AnyPhase, Before: func(e PhaseEvent) error {
				phases = append(phases, e.Phase.String())
				return nil
			}},
			&ListenerFuncs{Phase: RenderResponse, After: func(PhaseEvent) error {
				renders++
				return nil
			}},
		))
	if err != nil {
		t.Fatal(err)
	}

	first := TestGet(std, "/skip")
	phases, renders = nil, 0
	res := TestPost(std, "/skip", url.Values{ViewStateParam: {first.Context.ViewStateToken()}})
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}

	want := []string{"RESTORE_VIEW", "APPLY_REQUEST_VALUES", "RENDER_RESPONSE"}
	if !reflect.DeepEqual(phases, want) {
		t.Errorf("phases = %v, want %v", phases, want)
	}
	if renders != 1 {
		t.Errorf("RENDER_RESPONSE ran %d times, want 1", renders)
	}
}

func TestStandardListenerOrder(t *testing.T) {
	var log []string
	m := &greetModel{}
	std := newGreetLifecycle(t, m, WithListeners(
		phaseRecorder(&log, "a", RestoreView),
		phaseRecorder(&log, "b", AnyPhase),
		phaseRecorder(&log, "c", RestoreView),
		phaseRecorder(&log, "render-only", RenderResponse),
	))

	if res := TestGet(std, "/greet"); res.Err != nil {
		t.Fatal(res.Err)
	}
	want := []string{
		"a:before:RESTORE_VIEW", "b:before:RESTORE_VIEW", "c:before:RESTORE_VIEW",
		"c:after:RESTORE_VIEW", "b:after:RESTORE_VIEW", "a:after:RESTORE_VIEW",
		"b:before:RENDER_RESPONSE", "render-only:before:RENDER_RESPONSE",
		"render-only:after:RENDER_RESPONSE", "b:after:RENDER_RESPONSE",
	}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("listener calls =\n%v\nwant\n%v", log, want)
	}
}

func TestStandardBeforePhaseFailure(t *testing.T) {
	var log []string
	boom := errors.New("listener failed")
	failing := &ListenerFuncs{
		Phase: RestoreView,
		Before: func(PhaseEvent) error {
			log = append(log, "b:before")
			return boom
		},
		After: func(PhaseEvent) error {
			log = append(log, "b:after")
			return nil
		},
	}
	m := &greetModel{}
	std := newGreetLifecycle(t, m, WithListeners(
		phaseRecorder(&log, "a", RestoreView),
		failing,
		phaseRecorder(&log, "c", RestoreView),
	))

	res := TestGet(std, "/greet")
	var le *LifecycleError
	if !errors.As(res.Err, &le) {
		t.Fatalf("Run() error = %v, want *LifecycleError", res.Err)
	}
	if !le.InBeforePhase || le.Phase != RestoreView || !errors.Is(le, boom) {
		t.Errorf("error = %+v", le)
	}
	want := []string{"a:before:RESTORE_VIEW", "b:before", "a:after:RESTORE_VIEW"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("listener calls = %v, want %v", log, want)
	}
	if res.Context.ViewRoot() == nil {
		t.Error("phase body should still run after a before-phase failure")
	}
	if res.Context.State() != StateFailed {
		t.Errorf("state = %v, want FAILED", res.Context.State())
	}
}

func TestStandardAfterPhaseFailure(t *testing.T) {
	var log []string
	m := &greetModel{}
	std := newGreetLifecycle(t, m, WithListeners(
		phaseRecorder(&log, "a", RestoreView),
		&ListenerFuncs{Phase: RestoreView, After: func(PhaseEvent) error {
			log = append(log, "b:after")
			return errors.New("after failed")
		}},
	))

	res := TestGet(std, "/greet")
	var le *LifecycleError
	if !errors.As(res.Err, &le) || !le.InAfterPhase {
		t.Fatalf("Run() error = %v, want after-phase *LifecycleError", res.Err)
	}
	want := []string{"a:before:RESTORE_VIEW", "b:after"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("listener calls = %v, want %v", log, want)
	}
}

func TestStandardAbortFaultIsNotFatal(t *testing.T) {
	m := &greetModel{}
	std := newGreetLifecycle(t, m, WithListeners(&ListenerFuncs{
		Phase:  RestoreView,
		Before: func(PhaseEvent) error { return ErrAbortProcessing },
	}))

	res := TestGet(std, "/greet")
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	if got := len(res.Context.Faults().Handled()); got != 1 {
		t.Errorf("handled faults = %d, want 1", got)
	}
	if !res.IsOK() {
		t.Errorf("status = %d", res.StatusCode)
	}
}

func TestStandardUnknownView(t *testing.T) {
	std := newGreetLifecycle(t, &greetModel{})
	res := TestGet(std, "/missing")
	if !IsNotFound(res.Err) || StatusCode(res.Err) != http.StatusNotFound {
		t.Errorf("Run() error = %v, want view not found", res.Err)
	}
}

func TestStandardValidationFailure(t *testing.T) {
	m := &greetModel{}
	std := newGreetLifecycle(t, m)
	form := postback(t, std, map[string]string{"form:name": "  ", "form:go": "Go"})

	res := TestPost(std, "/greet", form)
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	if m.greeted != 0 || m.name != "" {
		t.Errorf("model changed after failed validation: %+v", m)
	}
	if !res.HasMessage(SeverityError, "Name: a value is required") {
		t.Errorf("messages = %v", res.Context.Messages(""))
	}
	if msgs := res.Context.Messages("form:name"); len(msgs) != 1 {
		t.Errorf("messages for form:name = %v", msgs)
	}
	if !res.BodyContains(`<li class="msg-error">Name: a value is required</li>`) {
		t.Errorf("body missing message: %s", res.Body)
	}
}

func TestStandardViewExpired(t *testing.T) {
	std := newGreetLifecycle(t, &greetModel{})
	res := TestPost(std, "/greet", url.Values{ViewStateParam: {"forged"}, "form:name": {"x"}})
	if !IsViewExpired(res.Err) {
		t.Errorf("Run() error = %v, want view expired", res.Err)
	}
}

func TestStandardActionPanicBecomesFault(t *testing.T) {
	views := Views{"/p": func(rc *RequestContext) *ViewRoot {
		return &ViewRoot{Components: []UIComponent{&Button{ID: "b", OnAction: func(*RequestContext) (string, error) {
			panic("kaboom")
		}}}}
	}}
	std, err := NewStandard(views)
	if err != nil {
		t.Fatal(err)
	}
	first := TestGet(std, "/p")
	res := TestPost(std, "/p", url.Values{ViewStateParam: {first.Context.ViewStateToken()}, "b": {""}})
	if res.Err == nil || !strings.Contains(res.Err.Error(), "kaboom") {
		t.Errorf("Run() error = %v, want panic fault", res.Err)
	}
}

func TestStandardAjaxPartialRender(t *testing.T) {
	m := &greetModel{}
	std := newGreetLifecycle(t, m)
	form := postback(t, std, map[string]string{
		"form:name":  "Ada",
		"form:go":    "Go",
		ParamExecute: "form",
		ParamRender:  "out",
	})

	res := TestAjax(std, "/greet", form)
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	if !res.HasHeader("Content-Type", partial.ContentType) || !res.HasHeader("Cache-Control", "no-cache") {
		t.Errorf("headers = %v", res.Headers)
	}
	if res.Partial == nil {
		t.Fatalf("response is not a partial document: %s", res.Body)
	}
	want := []string{"out", partial.ViewStateID}
	if got := res.Partial.Updates(); !reflect.DeepEqual(got, want) {
		t.Errorf("updates = %v, want %v", got, want)
	}
	if body, _ := res.Partial.Update("out"); body != `<span id="out">Hello Ada</span>` {
		t.Errorf("update body = %q", body)
	}
	if tok, _ := res.Partial.Update(partial.ViewStateID); tok != res.Context.ViewStateToken() {
		t.Errorf("view state update = %q", tok)
	}
}

func TestStandardAjaxExecuteSubset(t *testing.T) {
	m := &greetModel{}
	std := newGreetLifecycle(t, m)
	form := postback(t, std, map[string]string{
		"form:name":  "Ada",
		"form:go":    "Go",
		ParamExecute: "out",
		ParamRender:  KeywordNone,
	})

	res := TestAjax(std, "/greet", form)
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	if m.name != "" || m.greeted != 0 {
		t.Errorf("components outside the execute list ran: %+v", m)
	}
	if got := res.Partial.Updates(); !reflect.DeepEqual(got, []string{partial.ViewStateID}) {
		t.Errorf("updates = %v", got)
	}
}

func TestStandardAjaxRenderAll(t *testing.T) {
	m := &greetModel{}
	std := newGreetLifecycle(t, m)
	form := postback(t, std, map[string]string{"form:name": "Ada", "form:go": "Go", ParamRender: KeywordAll})

	res := TestAjax(std, "/greet", form)
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	want := []string{partial.ViewRootID, partial.ViewStateID}
	if got := res.Partial.Updates(); !reflect.DeepEqual(got, want) {
		t.Errorf("updates = %v, want %v", got, want)
	}
	if body, _ := res.Partial.Update(partial.ViewRootID); !strings.Contains(body, "<!DOCTYPE html>") {
		t.Errorf("view root update = %q", body)
	}
}

func TestStandardAjaxFaultWritesErrorDocument(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		message    string
	}{
		{"development", false, "greeting failed"},
		{"production", true, ProductionErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &greetModel{err: errors.New("greeting failed")}
			std := newGreetLifecycle(t, m)
			form := postback(t, std, map[string]string{"form:name": "Ada", "form:go": "Go"})

			res := TestAjax(std, "/greet", form, TestContextOptions(WithProduction(tt.production)))
			if res.Err != nil {
				t.Fatalf("Run() error = %v, want nil", res.Err)
			}
			if !res.Context.ResponseComplete() {
				t.Error("response should be complete")
			}
			if res.Partial == nil || res.Partial.Error == nil {
				t.Fatalf("no error element: %s", res.Body)
			}
			if res.Partial.Error.Name != "*errors.errorString" {
				t.Errorf("error-name = %q", res.Partial.Error.Name)
			}
			if res.Partial.Error.Message != tt.message {
				t.Errorf("error-message = %q, want %q", res.Partial.Error.Message, tt.message)
			}
		})
	}
}

func TestStandardNavigation(t *testing.T) {
	tests := []struct {
		name    string
		ajax    bool
		outcome string
		check   func(t *testing.T, res *TestResult)
	}{
		{"full redirect", false, "/done?faces-redirect=true", func(t *testing.T, res *TestResult) {
			if !res.RedirectedTo("/done") {
				t.Errorf("status %d location %q", res.StatusCode, res.Headers.Get("Location"))
			}
		}},
		{"ajax redirect", true, "done?faces-redirect=true", func(t *testing.T, res *TestResult) {
			if !res.RedirectedTo("/done") {
				t.Errorf("body = %s", res.Body)
			}
			if res.Partial.Changes != nil {
				t.Error("redirect must be the only child")
			}
		}},
		{"full forward", false, "/done", func(t *testing.T, res *TestResult) {
			if !res.BodyContains("Done Ada") || res.Context.ViewID != "/done" {
				t.Errorf("body = %s", res.Body)
			}
		}},
		{"ajax forward renders all", true, "/done", func(t *testing.T, res *TestResult) {
			if body, ok := res.Partial.Update(partial.ViewRootID); !ok || !strings.Contains(body, "Done Ada") {
				t.Errorf("body = %s", res.Body)
			}
		}},
		{"unknown implicit outcome stays", false, "nowhere", func(t *testing.T, res *TestResult) {
			if res.Context.ViewID != "/greet" || !res.BodyContains("Hello Ada") {
				t.Errorf("view = %s", res.Context.ViewID)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &greetModel{outcome: tt.outcome}
			std := newGreetLifecycle(t, m)
			form := postback(t, std, map[string]string{"form:name": "Ada", "form:go": "Go"})

			var res *TestResult
			if tt.ajax {
				res = TestAjax(std, "/greet", form)
			} else {
				res = TestPost(std, "/greet", form)
			}
			if res.Err != nil {
				t.Fatalf("Run() error = %v", res.Err)
			}
			tt.check(t, res)
		})
	}
}
