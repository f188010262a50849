package push

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

type fakeSession struct {
	id        string
	channelID string

	mu       sync.Mutex
	busy     int // number of sends answered with ErrBackpressure
	failWith error
	got      [][]byte
	closed   string
	open     bool
}

func newFake(id, channelID string) *fakeSession {
	return &fakeSession{id: id, channelID: channelID, open: true}
}

func (f *fakeSession) ID() string        { return f.id }
func (f *fakeSession) Channel() string   { return "news" }
func (f *fakeSession) ChannelID() string { return f.channelID }

func (f *fakeSession) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeSession) Send(_ context.Context, msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy > 0 {
		f.busy--
		return ErrBackpressure
	}
	if f.failWith != nil {
		return f.failWith
	}
	f.got = append(f.got, msg)
	return nil
}

func (f *fakeSession) Close(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closed = reason
	return nil
}

func fastRegistry() *Registry {
	r := NewRegistry()
	r.RetryDelay = time.Millisecond
	r.MaxRetries = 5
	return r
}

func TestAddRequiresRegisteredChannel(t *testing.T) {
	r := fastRegistry()
	s := newFake("s1", "ch1")
	if r.Add(s) {
		t.Fatal("Add on unregistered channel should fail")
	}
	r.Register("ch1")
	if !r.Add(s) {
		t.Fatal("Add on registered channel should succeed")
	}
	if r.Add(s) {
		t.Fatal("duplicate Add should fail")
	}
	r.Register("ch1")
	if r.Sessions("ch1") != 1 {
		t.Errorf("re-register dropped sessions: %d", r.Sessions("ch1"))
	}
}

func TestSendRetriesBackpressure(t *testing.T) {
	r := fastRegistry()
	r.Register("ch")
	s := newFake("s", "ch")
	s.busy = 3
	r.Add(s)

	n, err := r.Send(context.Background(), "ch", []byte("hi"))
	if err != nil || n != 1 {
		t.Fatalf("Send() = %d, %v; want 1, nil", n, err)
	}
	if len(s.got) != 1 || string(s.got[0]) != "hi" {
		t.Errorf("session received %q", s.got)
	}
}

func TestSendExhaustsRetries(t *testing.T) {
	r := fastRegistry()
	r.Register("ch")
	s := newFake("s", "ch")
	s.busy = 100
	r.Add(s)

	n, err := r.Send(context.Background(), "ch", []byte("hi"))
	if n != 0 || !errors.Is(err, ErrSendExhausted) {
		t.Fatalf("Send() = %d, %v; want 0, ErrSendExhausted", n, err)
	}
	if s.busy != 100-1-r.MaxRetries {
		t.Errorf("attempts = %d, want %d", 100-s.busy, 1+r.MaxRetries)
	}
}

func TestSendSkipsClosedAndReportsFailures(t *testing.T) {
	r := fastRegistry()
	r.Register("ch")
	ok := newFake("ok", "ch")
	closed := newFake("closed", "ch")
	closed.open = false
	broken := newFake("broken", "ch")
	broken.failWith = errors.New("reset")
	r.Add(ok)
	r.Add(closed)
	r.Add(broken)

	n, err := r.Send(context.Background(), "ch", []byte("x"))
	if n != 1 {
		t.Errorf("sent = %d, want 1", n)
	}
	if err == nil || !strings.Contains(err.Error(), "reset") {
		t.Errorf("err = %v, want broken session failure", err)
	}
	if len(closed.got) != 0 {
		t.Error("closed session received a message")
	}
}

func TestSendUnknownChannel(t *testing.T) {
	n, err := fastRegistry().Send(context.Background(), "nope", []byte("x"))
	if n != 0 || err != nil {
		t.Errorf("Send() = %d, %v; want 0, nil", n, err)
	}
}

func TestSendHonoursContext(t *testing.T) {
	r := fastRegistry()
	r.RetryDelay = time.Hour
	r.Register("ch")
	s := newFake("s", "ch")
	s.busy = 1
	r.Add(s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Send(ctx, "ch", []byte("x")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestRemoveAndDeregister(t *testing.T) {
	r := fastRegistry()
	var events []Event
	r.OnEvent = func(e Event) { events = append(events, e) }
	r.Register("a", "b")
	s1 := newFake("s1", "a")
	s2 := newFake("s2", "b")
	r.Add(s1)
	r.Add(s2)

	r.Remove(s1, "bye")
	r.Remove(s1, "again")
	if r.Sessions("a") != 0 {
		t.Error("s1 still registered")
	}

	r.Deregister("b")
	if s2.closed != ReasonExpired {
		t.Errorf("s2 closed with %q, want %q", s2.closed, ReasonExpired)
	}
	if r.Registered("b") {
		t.Error("channel b still registered")
	}

	want := []EventKind{Opened, Opened, Closed}
	if len(events) != len(want) {
		t.Fatalf("events = %+v", events)
	}
	for i, k := range want {
		if events[i].Kind != k {
			t.Errorf("event %d kind = %v, want %v", i, events[i].Kind, k)
		}
	}
	if events[2].Reason != "bye" {
		t.Errorf("close reason = %q", events[2].Reason)
	}
}

func TestConcurrentUse(t *testing.T) {
	r := fastRegistry()
	r.Register("ch")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newFake(string(rune('a'+i)), "ch")
			r.Add(s)
			_, _ = r.Send(context.Background(), "ch", []byte("m"))
			r.Remove(s, "done")
		}(i)
	}
	wg.Wait()
	if r.Sessions("ch") != 0 {
		t.Errorf("sessions left = %d", r.Sessions("ch"))
	}
}

func TestWebsocketHandler(t *testing.T) {
	r := NewRegistry()
	r.Register("user-42")
	joined := make(chan Event, 1)
	r.OnEvent = func(e Event) {
		if e.Kind == Opened {
			joined <- e
		}
	}

	srv := httptest.NewServer(r.Handler(nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/push/news?user-42"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	select {
	case e := <-joined:
		if e.Channel != "news" {
			t.Errorf("channel = %q, want news", e.Channel)
		}
	case <-ctx.Done():
		t.Fatal("session never joined")
	}

	if _, err := r.SendJSON(ctx, "user-42", map[string]string{"msg": "hello"}); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}
	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText || string(data) != `{"msg":"hello"}` {
		t.Errorf("got %v %q", typ, data)
	}
}

func TestWebsocketHandlerRejectsUnknownChannel(t *testing.T) {
	r := NewRegistry()
	srv := httptest.NewServer(r.Handler(nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/push/news?nobody"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	_, _, err = conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Errorf("close status = %v, want policy violation (err %v)", websocket.CloseStatus(err), err)
	}
}
