package example

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/pthm/hxfaces"
	"github.com/pthm/hxfaces/lib/config"
	"github.com/pthm/hxfaces/lib/encoding"
	"github.com/pthm/hxfaces/lib/push"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Mappings = []config.Mapping{
		{Prefix: "/", Lifecycle: config.LifecycleStandard},
		{Prefix: "/do", Lifecycle: config.LifecycleAction},
		{Prefix: "/api", Lifecycle: config.LifecycleREST},
	}
	return cfg
}

func newTestServer(t *testing.T, pr *push.Registry) (*App, http.Handler) {
	t.Helper()
	cfg := testConfig()
	app := New(NewStore().Seed())
	app.Logger = quiet
	app.Push = pr
	app.Configure(cfg)

	codec, err := encoding.NewCodec([]byte("0123456789abcdef0123456789abcdef"), encoding.Signed)
	if err != nil {
		t.Fatal(err)
	}
	lcs, err := app.Lifecycles(hxfaces.WithFlash(hxfaces.NewFlash(codec)))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := hxfaces.NewRegistryFromConfig(cfg, lcs, hxfaces.WithRegistryLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}
	return app, reg
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return do(h, req)
}

func post(h http.Handler, target string, form url.Values, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return do(h, req)
}

var tokenRE = regexp.MustCompile(`name="` + regexp.QuoteMeta(hxfaces.ViewStateParam) + `" id="[^"]*" value="([^"]*)"`)

// viewState fetches the index page and returns its view state token.
func viewState(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := get(h, "/")
	m := tokenRE.FindStringSubmatch(rec.Body.String())
	if m == nil {
		t.Fatalf("no view state in %q", rec.Body.String())
	}
	return html.UnescapeString(m[1])
}

func TestIndexView(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := get(h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Todos</title>",
		`<li class="todo" id="todo-1">Buy groceries <a href="/do/todos/1/toggle">toggle</a>`,
		"Review PR #123",
		`<p id="stats">4 total, 4 pending, 0 completed</p>`,
		`<form id="todos" method="post" action="/index">`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Index(body, "Call dentist") > strings.Index(body, "Buy groceries") {
		t.Error("todos not listed newest first")
	}
}

func TestAddTodo(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		want     string
		wantSize int
	}{
		{"valid", "Ship it", "Added Ship it", 5},
		{"required", "  ", "Title: a value is required", 4},
		{"too long", strings.Repeat("x", maxTitle+1), "Title too long: at most 80 characters", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, h := newTestServer(t, nil)
			form := url.Values{
				hxfaces.ViewStateParam: {viewState(t, h)},
				IDTitle:                {tt.title},
				IDAdd:                  {"Add"},
			}
			rec := post(h, "/index", form)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), html.EscapeString(tt.want)) {
				t.Errorf("body missing %q: %s", tt.want, rec.Body.String())
			}
			if got := app.Store.Stats().Total; got != tt.wantSize {
				t.Errorf("store size = %d, want %d", got, tt.wantSize)
			}
		})
	}
}

func TestAddTodoAjax(t *testing.T) {
	_, h := newTestServer(t, nil)
	form := url.Values{
		hxfaces.ViewStateParam: {viewState(t, h)},
		hxfaces.ParamSource:    {IDAdd},
		hxfaces.ParamExecute:   {IDForm},
		hxfaces.ParamRender:    {IDList + " " + IDStats},
		IDTitle:                {"Ship it"},
	}
	rec := post(h, "/index", form, hxfaces.HeaderFacesRequest, hxfaces.FacesRequestAjax)

	body := rec.Body.String()
	if !strings.HasPrefix(body, "<?xml") || !strings.Contains(body, "<partial-response") {
		t.Fatalf("not a partial response: %s", body)
	}
	for _, want := range []string{
		`<update id="todos:list">`,
		`id="todo-5">Ship it`,
		`<update id="stats">`,
		"5 total, 5 pending, 0 completed",
		`<update id="` + hxfaces.ViewStateParam + `">`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("partial response missing %q\n%s", want, body)
		}
	}
	if strings.Contains(body, `<update id="msgs">`) {
		t.Error("unrequested component rendered")
	}
}

func TestClearCompletedRedirectKeepsMessage(t *testing.T) {
	app, h := newTestServer(t, nil)
	app.Store.Toggle(1)

	form := url.Values{
		hxfaces.ViewStateParam: {viewState(t, h)},
		IDClear:                {"Clear completed"},
	}
	rec := post(h, "/index", form)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/index" {
		t.Errorf("Location = %q, want /index", loc)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no flash cookie set")
	}

	req := httptest.NewRequest(http.MethodGet, "/index", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	next := do(h, req)
	if !strings.Contains(next.Body.String(), "Cleared 1") {
		t.Errorf("flash message lost: %s", next.Body.String())
	}
	if app.Store.Stats().Total != 3 {
		t.Errorf("store size = %d, want 3", app.Store.Stats().Total)
	}
}

func TestActionHandlers(t *testing.T) {
	app, h := newTestServer(t, nil)

	t.Run("toggle", func(t *testing.T) {
		rec := get(h, "/do/todos/1/toggle")
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Errorf("got %d %q, want 303 /", rec.Code, rec.Header().Get("Location"))
		}
		if todo, _ := app.Store.Get(1); !todo.Done() {
			t.Error("todo 1 not toggled")
		}
	})

	t.Run("toggle missing", func(t *testing.T) {
		if rec := get(h, "/do/todos/99/toggle"); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("row", func(t *testing.T) {
		rec := get(h, "/do/todos/2")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `id="todo-2">Review PR #123`) {
			t.Errorf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("add", func(t *testing.T) {
		rec := get(h, "/do/todos/add?title=Deploy", "X-Todo-Tags", "work, urgent")
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/do/todos/5" {
			t.Errorf("Location = %q", loc)
		}
		todo, ok := app.Store.Get(5)
		if !ok || !todo.HasTag(TagWork) || !todo.HasTag(TagUrgent) {
			t.Errorf("added todo = %+v", todo)
		}
	})

	t.Run("add without title", func(t *testing.T) {
		if rec := get(h, "/do/todos/add"); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("delete ajax", func(t *testing.T) {
		rec := get(h, "/do/todos/3/delete", hxfaces.HeaderFacesRequest, hxfaces.FacesRequestAjax)
		if !strings.Contains(rec.Body.String(), `<redirect url="/"/>`) {
			t.Errorf("body = %q", rec.Body.String())
		}
		if _, ok := app.Store.Get(3); ok {
			t.Error("todo 3 not deleted")
		}
	})

	t.Run("unmapped", func(t *testing.T) {
		if rec := get(h, "/do/nothing"); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestRestHandlers(t *testing.T) {
	app, h := newTestServer(t, nil)
	app.Store.Toggle(2)

	t.Run("list", func(t *testing.T) {
		rec := get(h, "/api/todos?status=completed")
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var todos []Todo
		if err := json.Unmarshal(rec.Body.Bytes(), &todos); err != nil {
			t.Fatal(err)
		}
		if len(todos) != 1 || todos[0].ID != 2 || todos[0].Status != StatusCompleted {
			t.Errorf("todos = %+v", todos)
		}
	})

	t.Run("show", func(t *testing.T) {
		var todo Todo
		if err := json.Unmarshal(get(h, "/api/todos/1").Body.Bytes(), &todo); err != nil {
			t.Fatal(err)
		}
		if todo.Title != "Buy groceries" {
			t.Errorf("todo = %+v", todo)
		}
	})

	t.Run("show missing", func(t *testing.T) {
		if rec := get(h, "/api/todos/42"); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("stats negotiated", func(t *testing.T) {
		var st Stats
		rec := get(h, "/api/stats", "Accept", "application/json")
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatal(err)
		}
		if st.Total != 4 || st.Completed != 1 || st.ByTag[TagWork] != 2 {
			t.Errorf("stats = %+v", st)
		}
		if ct := get(h, "/api/stats").Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("default Content-Type = %q", ct)
		}
	})
}

type recordingSession struct {
	mu   sync.Mutex
	msgs []string
}

func (s *recordingSession) ID() string        { return "s1" }
func (s *recordingSession) Channel() string   { return "todos" }
func (s *recordingSession) ChannelID() string { return PushChannelID }
func (s *recordingSession) Open() bool        { return true }
func (s *recordingSession) Close(string) error {
	return nil
}

func (s *recordingSession) Send(_ context.Context, msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, string(msg))
	return nil
}

func TestChangesArePushed(t *testing.T) {
	pr := push.NewRegistry()
	pr.Logger = quiet
	_, h := newTestServer(t, pr)

	s := &recordingSession{}
	if !pr.Add(s) {
		t.Fatal("push channel not registered")
	}
	get(h, "/do/todos/1/toggle")
	get(h, "/do/todos/add?title=x")

	want := []string{`{"type":"toggled","id":1}`, `{"type":"added","id":5}`}
	if strings.Join(s.msgs, " ") != strings.Join(want, " ") {
		t.Errorf("pushed %v, want %v", s.msgs, want)
	}
}
