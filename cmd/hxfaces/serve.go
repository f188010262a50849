package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pthm/hxfaces"
	hxfaceschi "github.com/pthm/hxfaces/adapters/chi"
	hxfacesecho "github.com/pthm/hxfaces/adapters/echo"
	"github.com/pthm/hxfaces/example"
	"github.com/pthm/hxfaces/lib/config"
	"github.com/pthm/hxfaces/lib/encoding"
	"github.com/pthm/hxfaces/lib/push"
	"github.com/pthm/hxfaces/lib/telemetry"
)

// Replaced in tests.
var (
	initTelemetryFn           = telemetry.Init
	logOutput       io.Writer = os.Stderr
)

type serveOptions struct {
	configPath string
	router     string
	seed       bool
}

func parseServeArgs(args []string) (serveOptions, error) {
	o := serveOptions{router: "chi", seed: true}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&o.router, "router", o.router, "chi or echo")
	fs.BoolVar(&o.seed, "seed", o.seed, "add sample todos")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.router != "chi" && o.router != "echo" {
		return o, fmt.Errorf("unknown router %q", o.router)
	}
	return o, nil
}

// runServe builds the demo server and hands it to listen, which defaults
// to serving until SIGINT or SIGTERM.
func runServe(args []string, listen func(*http.Server) error) error {
	opts, err := parseServeArgs(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()
	shutdown, err := initTelemetryFn(ctx, cfg.Tracing, logger)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	srv, err := newServer(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	if listen == nil {
		listen = listenUntilSignal
	}
	logger.Info("hxfaces listening", "addr", srv.Addr, "router", opts.router, "stage", cfg.Stage)
	return listen(srv)
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(logOutput, nil))
	}
	return slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newServer wires configuration, state saving, push and the demo
// lifecycles into an http.Server.
func newServer(ctx context.Context, cfg config.Config, opts serveOptions, logger *slog.Logger) (*http.Server, error) {
	state, err := hxfaces.StateFromConfig(ctx, cfg.State)
	if err != nil {
		return nil, err
	}
	flash, err := newFlash(cfg.State)
	if err != nil {
		return nil, err
	}

	cfg = withDemoMappings(cfg)
	store := example.NewStore()
	if opts.seed {
		store.Seed()
	}
	app := example.New(store)
	app.Logger = logger
	app.Configure(cfg)

	regOpts := []hxfaces.RegistryOption{hxfaces.WithRegistryLogger(logger)}
	if cfg.Push.Path != "" {
		pr := push.NewRegistry()
		pr.MaxRetries = cfg.Push.MaxRetries
		pr.RetryDelay = cfg.Push.RetryDelay
		pr.Logger = logger
		app.Push = pr
		regOpts = append(regOpts, hxfaces.WithPush(cfg.Push.Path, pr))
	}

	lifecycles, err := app.Lifecycles(
		hxfaces.WithStateManager(state),
		hxfaces.WithFlash(flash),
		hxfaces.WithTracer(telemetry.Tracer()),
	)
	if err != nil {
		return nil, err
	}
	reg, err := hxfaces.NewRegistryFromConfig(cfg, lifecycles, regOpts...)
	if err != nil {
		return nil, err
	}

	var handler http.Handler
	switch opts.router {
	case "echo":
		handler = echoRouter(reg)
	default:
		handler = chiRouter(reg)
	}

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}, nil
}

// withDemoMappings mounts the Action and REST lifecycles at /do and /api
// unless cfg maps them already.
func withDemoMappings(cfg config.Config) config.Config {
	mapped := make(map[string]bool)
	for _, m := range cfg.Mappings {
		mapped[m.Lifecycle] = true
	}
	mappings := append([]config.Mapping(nil), cfg.Mappings...)
	if !mapped[config.LifecycleAction] {
		mappings = append(mappings, config.Mapping{Prefix: "/do", Lifecycle: config.LifecycleAction})
	}
	if !mapped[config.LifecycleREST] {
		mappings = append(mappings, config.Mapping{Prefix: "/api", Lifecycle: config.LifecycleREST})
	}
	cfg.Mappings = mappings
	return cfg
}

// newFlash seals flash cookies with the configured state key, or a random
// one when none is set.
func newFlash(cfg config.State) (*hxfaces.Flash, error) {
	mode, err := encoding.ParseMode(cfg.Mode)
	if err != nil || cfg.Method == config.StateServer {
		mode = encoding.Signed
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
	return hxfaces.NewFlash(codec), nil
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": "hxfaces", "version": version})
}

func chiRouter(reg *hxfaces.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(telemetry.Middleware("hxfaces"))
	r.Get("/healthz", healthz)
	hxfaceschi.Handle(r, "/", reg)
	return r
}

func echoRouter(reg *hxfaces.Registry) http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(echo.WrapMiddleware(telemetry.Middleware("hxfaces")))
	e.GET("/healthz", echo.WrapHandler(http.HandlerFunc(healthz)))
	hxfacesecho.Handle(e, reg)
	return e
}

func listenUntilSignal(srv *http.Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
