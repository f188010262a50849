package hxfaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pthm/hxfaces/lib/config"
	"github.com/pthm/hxfaces/lib/encoding"
	"github.com/pthm/hxfaces/lib/store"
)

// viewMetaKey holds the saved view id inside a state document.
const viewMetaKey = "jakarta.faces.ViewRoot"

// StateManager saves the state of a rendered view and restores it on
// postback.
//
// In client mode the state travels in the ViewStateParam field as a signed
// or encrypted token. In server mode it is kept in a store.Store under a
// random key and the field only carries the key.
type StateManager struct {
	codec *encoding.Codec
	store store.Store
	ttl   time.Duration
}

// NewClientStateManager keeps state on the client, protected by codec.
func NewClientStateManager(codec *encoding.Codec) *StateManager {
	return &StateManager{codec: codec}
}

// NewServerStateManager keeps state in s. Entries expire after ttl; zero
// keeps them for as long as s does.
func NewServerStateManager(s store.Store, ttl time.Duration) *StateManager {
	return &StateManager{store: s, ttl: ttl}
}

// ServerSide reports whether state is kept in a store.
func (m *StateManager) ServerSide() bool { return m.store != nil }

// Save captures the state of every StateHolder in the current view and
// records the resulting token on rc.
func (m *StateManager) Save(rc *RequestContext) (string, error) {
	view := rc.ViewRoot()
	if view == nil {
		return "", nil
	}
	st := encoding.State{viewMetaKey: {"id": view.ViewID}}
	view.Visit(func(c UIComponent, _ []string) bool {
		if h, ok := c.(StateHolder); ok {
			if s := h.SaveState(); s != nil {
				st[c.ClientID()] = s
			}
		}
		return true
	})

	var (
		token string
		err   error
	)
	if m.store != nil {
		token, err = m.saveServer(rc, st)
	} else {
		token, err = m.codec.Seal(st)
	}
	if err != nil {
		return "", fmt.Errorf("saving view state: %w", err)
	}
	rc.viewStateToken = token
	return token, nil
}

func (m *StateManager) saveServer(rc *RequestContext, st encoding.State) (string, error) {
	packed, err := encoding.Marshal(st)
	if err != nil {
		return "", err
	}
	key := uuid.NewString()
	if err := m.store.Put(rc.Context(), store.KeyPrefix+key, packed, m.ttl); err != nil {
		return "", err
	}
	return key, nil
}

// Restore applies the state submitted with the request to view. A missing,
// forged or expired token, or one saved for a different view, yields an
// error wrapping ErrViewExpired.
func (m *StateManager) Restore(rc *RequestContext, view *ViewRoot) error {
	token := rc.Param(ViewStateParam)
	if token == "" {
		return fmt.Errorf("%w: no state submitted", ErrViewExpired)
	}
	st, err := m.load(rc, token)
	if err != nil {
		return err
	}
	if id, _ := st[viewMetaKey]["id"].(string); id != view.ViewID {
		return fmt.Errorf("%w: state belongs to view %q", ErrViewExpired, id)
	}

	var restoreErr error
	view.Visit(func(c UIComponent, _ []string) bool {
		h, ok := c.(StateHolder)
		if !ok {
			return true
		}
		if s, ok := st[c.ClientID()]; ok {
			if err := h.RestoreState(s); err != nil {
				restoreErr = fmt.Errorf("restoring %s: %w", c.ClientID(), err)
				return false
			}
		}
		return true
	})
	return restoreErr
}

func (m *StateManager) load(rc *RequestContext, token string) (encoding.State, error) {
	if m.store == nil {
		st, err := m.codec.Open(token)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrViewExpired, err)
		}
		return st, nil
	}
	packed, err := m.store.Get(rc.Context(), store.KeyPrefix+token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrViewExpired, err)
	}
	if err != nil {
		return nil, err
	}
	st, err := encoding.Unmarshal(packed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrViewExpired, err)
	}
	return st, nil
}

// StateFromConfig builds the state manager described by cfg. Server mode
// uses Redis at cfg.RedisAddr when it answers, otherwise an in-memory store.
// An empty client key is replaced by a random one.
func StateFromConfig(ctx context.Context, cfg config.State) (*StateManager, error) {
	if cfg.Method == config.StateServer {
		var client *redis.Client
		if cfg.RedisAddr != "" {
			client = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		}
		return NewServerStateManager(store.New(ctx, client), cfg.TTL), nil
	}

	mode, err := encoding.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	key := []byte(cfg.Key)
	if len(key) == 0 {
		if key, err = encoding.RandomKey(); err != nil {
			return nil, err
		}
	}
	codec, err := encoding.NewCodec(key, mode)
	if err != nil {
		return nil, err
	}
	return NewClientStateManager(codec), nil
}
