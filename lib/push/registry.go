// Package push keeps the channel to session registry behind server push.
//
// A channel id must be registered before sessions can join it. Register, Add,
// Remove, Send and Deregister are each atomic with respect to one another and
// may be called from any goroutine.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// ErrBackpressure is returned by a Session that cannot accept a message yet.
// Send retries it.
var ErrBackpressure = errors.New("push: session busy")

// ErrSendExhausted is returned once all retries for one session are used up.
var ErrSendExhausted = errors.New("push: send retries exhausted")

// ErrSessionClosed is returned when a session closes while a send is pending.
var ErrSessionClosed = errors.New("push: session closed")

// Default retry policy for busy sessions: roughly one second in total.
const (
	DefaultMaxRetries = 100
	DefaultRetryDelay = 10 * time.Millisecond
)

// ReasonExpired is the close reason sent to sessions of a deregistered channel.
const ReasonExpired = "Expired"

// Session is one connected push client.
type Session interface {
	ID() string
	Channel() string
	ChannelID() string
	Open() bool
	Send(ctx context.Context, msg []byte) error
	Close(reason string) error
}

// EventKind says whether a session joined or left.
type EventKind int

const (
	Opened EventKind = iota
	Closed
)

// Event is delivered to Registry.OnEvent.
type Event struct {
	Kind      EventKind
	Channel   string
	SessionID string
	Reason    string
}

// Registry maps channel ids to the sessions subscribed to them.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[string]Session

	MaxRetries int
	RetryDelay time.Duration
	Logger     *slog.Logger
	OnEvent    func(Event)
}

// NewRegistry returns an empty registry with the default retry policy.
func NewRegistry() *Registry {
	return &Registry{
		channels:   make(map[string]map[string]Session),
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Logger:     slog.Default(),
	}
}

// Register makes channel ids available. Registering an id twice keeps its
// existing sessions.
func (r *Registry) Register(channelIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range channelIDs {
		if _, ok := r.channels[id]; !ok {
			r.channels[id] = make(map[string]Session)
		}
	}
}

// Registered reports whether channelID accepts sessions.
func (r *Registry) Registered(channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[channelID]
	return ok
}

// Add joins s to its channel id. It returns false when the channel id is not
// registered or s is already present.
func (r *Registry) Add(s Session) bool {
	r.mu.Lock()
	sessions, ok := r.channels[s.ChannelID()]
	if ok {
		if _, dup := sessions[s.ID()]; dup {
			ok = false
		} else {
			sessions[s.ID()] = s
		}
	}
	r.mu.Unlock()

	if ok {
		r.fire(Event{Kind: Opened, Channel: s.Channel(), SessionID: s.ID()})
	}
	return ok
}

// Remove drops s from its channel id.
func (r *Registry) Remove(s Session, reason string) {
	r.mu.Lock()
	sessions, ok := r.channels[s.ChannelID()]
	if ok {
		if _, ok = sessions[s.ID()]; ok {
			delete(sessions, s.ID())
		}
	}
	r.mu.Unlock()

	if ok {
		r.fire(Event{Kind: Closed, Channel: s.Channel(), SessionID: s.ID(), Reason: reason})
	}
}

// Sessions returns the number of sessions on channelID.
func (r *Registry) Sessions(channelID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channelID])
}

// Send delivers msg to every open session of channelID and returns how many
// received it. A busy session is retried up to MaxRetries times, RetryDelay
// apart; failures for individual sessions are joined into the error.
func (r *Registry) Send(ctx context.Context, channelID string, msg []byte) (int, error) {
	r.mu.RLock()
	targets := make([]Session, 0, len(r.channels[channelID]))
	for _, s := range r.channels[channelID] {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	var (
		sent int
		errs []error
	)
	for _, s := range targets {
		if !s.Open() {
			continue
		}
		if err := r.sendWithRetry(ctx, s, msg); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID(), err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// SendJSON encodes v and sends it.
func (r *Registry) SendJSON(ctx context.Context, channelID string, v any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return r.Send(ctx, channelID, b)
}

func (r *Registry) sendWithRetry(ctx context.Context, s Session, msg []byte) error {
	err := s.Send(ctx, msg)
	if !errors.Is(err, ErrBackpressure) {
		return err
	}

	timer := time.NewTimer(r.RetryDelay)
	defer timer.Stop()
	for retries := 1; retries <= r.MaxRetries; retries++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if !s.Open() {
			return ErrSessionClosed
		}
		err = s.Send(ctx, msg)
		if err == nil {
			r.logger().Warn("push message delivered after retries",
				"session", s.ID(), "retries", retries, "delay", r.RetryDelay)
			return nil
		}
		if !errors.Is(err, ErrBackpressure) {
			return err
		}
		timer.Reset(r.RetryDelay)
	}
	r.logger().Error("push message dropped", "session", s.ID(), "retries", r.MaxRetries)
	return fmt.Errorf("%w after %d attempts of %s", ErrSendExhausted, r.MaxRetries, r.RetryDelay)
}

// Deregister removes channel ids and closes their open sessions.
func (r *Registry) Deregister(channelIDs ...string) {
	var closing []Session
	r.mu.Lock()
	for _, id := range channelIDs {
		for _, s := range r.channels[id] {
			closing = append(closing, s)
		}
		delete(r.channels, id)
	}
	r.mu.Unlock()

	for _, s := range closing {
		if s.Open() {
			if err := s.Close(ReasonExpired); err != nil {
				r.logger().Debug("push session close failed", "session", s.ID(), "err", err)
			}
		}
	}
}

func (r *Registry) fire(e Event) {
	if r.OnEvent != nil {
		r.OnEvent(e)
	}
}

func (r *Registry) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
