// Package example is a todo application built on hxfaces. It is what
// "hxfaces serve" runs and shows the three lifecycles side by side: the
// index page is a Standard view, the row links are Action handlers and
// /api exposes the same store through the REST lifecycle.
package example

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm/hxfaces"
	"github.com/pthm/hxfaces/lib/config"
	"github.com/pthm/hxfaces/lib/invoke"
	"github.com/pthm/hxfaces/lib/push"
)

// PushChannelID is the push channel id change events are sent to.
const PushChannelID = "todos"

// Event is the push message sent when the store changes.
type Event struct {
	Type string `json:"type"`
	ID   int    `json:"id,omitempty"`
}

// App wires a Store into lifecycles.
type App struct {
	Store  *Store
	Push   *push.Registry
	Logger *slog.Logger

	// Home and Actions are the prefixes the Standard and Action lifecycles
	// are mounted on. Links and redirects are built from them.
	Home    string
	Actions string
}

// New returns an App over store with the default prefixes "/" and "/do".
func New(store *Store) *App {
	return &App{Store: store, Home: "/", Actions: "/do"}
}

// Configure takes the mount prefixes from cfg's mappings.
func (a *App) Configure(cfg config.Config) {
	for _, m := range cfg.Mappings {
		switch m.Lifecycle {
		case config.LifecycleStandard:
			a.Home = m.Prefix
		case config.LifecycleAction:
			a.Actions = m.Prefix
		}
	}
}

// Lifecycles builds the Standard, Action and REST lifecycles keyed by their
// configuration names.
func (a *App) Lifecycles(opts ...hxfaces.StandardOption) (map[string]hxfaces.Lifecycle, error) {
	std, err := hxfaces.NewStandard(a.views(), append([]hxfaces.StandardOption{hxfaces.WithLogger(a.logger())}, opts...)...)
	if err != nil {
		return nil, err
	}

	beans := invoke.NewBeans()
	invoke.Singleton(beans, &Pages{app: a})
	invoke.Singleton(beans, &API{app: a})

	var pages, api []*invoke.Handler
	for _, h := range Handlers() {
		if h.Bean == invoke.TypeOf[*API]() {
			api = append(api, h)
		} else {
			pages = append(pages, h)
		}
	}
	pm, err := invoke.Build(pages...)
	if err != nil {
		return nil, fmt.Errorf("example: action handlers: %w", err)
	}
	am, err := invoke.Build(api...)
	if err != nil {
		return nil, fmt.Errorf("example: rest handlers: %w", err)
	}
	inv := invoke.NewInvoker(beans)

	if a.Push != nil {
		a.Push.Register(PushChannelID)
	}
	return map[string]hxfaces.Lifecycle{
		config.LifecycleStandard: std,
		config.LifecycleAction:   hxfaces.NewActionLifecycle(pm, inv, hxfaces.WithViews(std)),
		config.LifecycleREST:     hxfaces.NewRestLifecycle(am, inv, nil),
	}, nil
}

func (a *App) notify(ctx context.Context, typ string, id int) {
	if a.Push == nil {
		return
	}
	if _, err := a.Push.SendJSON(ctx, PushChannelID, Event{Type: typ, ID: id}); err != nil {
		a.logger().Warn("push failed", "event", typ, "err", err)
	}
}

func (a *App) home() string {
	if a.Home == "" {
		return "/"
	}
	return a.Home
}

func (a *App) actionPrefix() string {
	if a.Actions == "/" {
		return ""
	}
	return a.Actions
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
