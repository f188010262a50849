package push

import (
	"context"
	"errors"
	"net/http"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// WriteTimeout bounds a single websocket write.
const WriteTimeout = 5 * time.Second

// WSSession is a Session over a websocket connection. Only one write may be
// in flight; a concurrent Send gets ErrBackpressure.
type WSSession struct {
	id        string
	channel   string
	channelID string
	conn      *websocket.Conn
	writing   sync.Mutex
	closed    atomic.Bool
}

// NewWSSession wraps conn.
func NewWSSession(conn *websocket.Conn, channel, channelID string) *WSSession {
	return &WSSession{
		id:        uuid.NewString(),
		channel:   channel,
		channelID: channelID,
		conn:      conn,
	}
}

func (s *WSSession) ID() string        { return s.id }
func (s *WSSession) Channel() string   { return s.channel }
func (s *WSSession) ChannelID() string { return s.channelID }
func (s *WSSession) Open() bool        { return !s.closed.Load() }

func (s *WSSession) Send(ctx context.Context, msg []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.writing.TryLock() {
		return ErrBackpressure
	}
	defer s.writing.Unlock()

	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, msg)
}

func (s *WSSession) Close(reason string) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close(websocket.StatusNormalClosure, reason)
}

// Handler accepts websocket connections at /{channel}?{channelID}. The
// channel id must already be registered; otherwise the connection is closed
// with a policy violation.
func (r *Registry) Handler(opts *websocket.AcceptOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		channel := path.Base(req.URL.Path)
		channelID := req.URL.RawQuery
		if channel == "" || channel == "/" || channel == "." || channelID == "" {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, req, opts)
		if err != nil {
			r.logger().Debug("push accept failed", "err", err)
			return
		}

		s := NewWSSession(conn, channel, channelID)
		if !r.Add(s) {
			s.closed.Store(true)
			_ = conn.Close(websocket.StatusPolicyViolation, "unknown channel")
			return
		}

		// Clients never send; reading only detects the close.
		reason := "closed"
		for {
			if _, _, err := conn.Read(req.Context()); err != nil {
				if status := websocket.CloseStatus(err); status != -1 {
					reason = status.String()
				} else if !errors.Is(err, context.Canceled) {
					reason = "read_failed"
				}
				break
			}
		}
		s.closed.Store(true)
		r.Remove(s, reason)
		_ = conn.CloseNow()
	})
}
