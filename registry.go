package hxfaces

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/pthm/hxfaces/lib/config"
	"github.com/pthm/hxfaces/lib/push"
)

type mount struct {
	prefix string
	lc     Lifecycle
}

// Registry is the front controller. It selects a lifecycle by the longest
// mounted URL prefix, creates the RequestContext and runs the lifecycle.
type Registry struct {
	mu     sync.RWMutex
	mounts []mount

	logger     *slog.Logger
	production bool
	ajaxErrors bool

	push     *push.Registry
	pushPath string

	// OnError is called when a lifecycle returns an error. The default
	// answers with the error's StatusCode unless the response is already
	// complete.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger handed to every request.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(reg *Registry) { reg.logger = l }
}

// WithProductionStage hides fault details from ajax error responses.
func WithProductionStage(production bool) RegistryOption {
	return func(reg *Registry) { reg.production = production }
}

// WithAjaxErrorHandling controls whether faults on ajax requests are
// answered with a partial-response error document. It is on by default.
func WithAjaxErrorHandling(enabled bool) RegistryOption {
	return func(reg *Registry) { reg.ajaxErrors = enabled }
}

// WithPush serves the websocket endpoint of pr below path.
func WithPush(path string, pr *push.Registry) RegistryOption {
	return func(reg *Registry) {
		reg.pushPath = strings.TrimSuffix(path, "/")
		reg.push = pr
	}
}

// NewRegistry returns an empty front controller.
func NewRegistry(opts ...RegistryOption) *Registry {
	reg := &Registry{
		logger:     slog.Default(),
		ajaxErrors: true,
	}
	for _, opt := range opts {
		opt(reg)
	}
	reg.OnError = reg.defaultOnError
	return reg
}

// NewRegistryFromConfig mounts lifecycles by the names used in
// cfg.Mappings.
func NewRegistryFromConfig(cfg config.Config, lifecycles map[string]Lifecycle, opts ...RegistryOption) (*Registry, error) {
	opts = append([]RegistryOption{
		WithProductionStage(cfg.Production()),
		WithAjaxErrorHandling(cfg.AjaxErrors),
	}, opts...)
	reg := NewRegistry(opts...)
	for _, m := range cfg.Mappings {
		lc, ok := lifecycles[m.Lifecycle]
		if !ok {
			return nil, fmt.Errorf("hxfaces: mapping %q: no %s lifecycle configured", m.Prefix, m.Lifecycle)
		}
		if err := reg.Mount(m.Prefix, lc); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Mount serves lc below prefix. "/" mounts everything not claimed by a
// longer prefix.
func (reg *Registry) Mount(prefix string, lc Lifecycle) error {
	prefix = normalizePrefix(prefix)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, m := range reg.mounts {
		if m.prefix == prefix {
			return fmt.Errorf("hxfaces: prefix collision for %q", prefix)
		}
	}
	reg.mounts = append(reg.mounts, mount{prefix: prefix, lc: lc})
	sort.SliceStable(reg.mounts, func(i, j int) bool {
		return len(reg.mounts[i].prefix) > len(reg.mounts[j].prefix)
	})
	return nil
}

// Lookup returns the lifecycle serving urlPath, its prefix and the path
// info below it.
func (reg *Registry) Lookup(urlPath string) (lc Lifecycle, prefix, pathInfo string, ok bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, m := range reg.mounts {
		if info, ok := stripPrefix(urlPath, m.prefix); ok {
			return m.lc, m.prefix, info, true
		}
	}
	return nil, "", "", false
}

func (reg *Registry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if reg.push != nil {
		if _, ok := stripPrefix(r.URL.Path, reg.pushPath); ok && reg.pushPath != "/" {
			http.StripPrefix(reg.pushPath, reg.push.Handler(nil)).ServeHTTP(w, r)
			return
		}
	}

	lc, prefix, pathInfo, ok := reg.Lookup(r.URL.Path)
	if !ok {
		reg.OnError(w, r, fmt.Errorf("%w: %s", ErrNoMapping, r.URL.Path))
		return
	}
	rc := NewRequestContext(w, r,
		WithContextLogger(reg.logger),
		WithProduction(reg.production),
		WithPathInfo(prefix, pathInfo),
		WithAjaxErrors(reg.ajaxErrors),
	)
	if err := Run(lc, rc); err != nil {
		reg.logger.Error("request failed", "path", r.URL.Path, "state", rc.State().String(), "err", err)
		if !rc.ResponseComplete() {
			reg.OnError(w, r, err)
		}
	}
}

// Handler returns the registry as an http.Handler.
func (reg *Registry) Handler() http.Handler { return reg }

func (reg *Registry) defaultOnError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	http.Error(w, http.StatusText(code), code)
}

func normalizePrefix(p string) string {
	p = "/" + strings.Trim(p, "/")
	return p
}

func stripPrefix(urlPath, prefix string) (string, bool) {
	if prefix == "/" {
		return urlPath, true
	}
	if urlPath == prefix {
		return "/", true
	}
	if strings.HasPrefix(urlPath, prefix+"/") {
		return urlPath[len(prefix):], true
	}
	return "", false
}
