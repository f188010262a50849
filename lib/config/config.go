// Package config loads hxfaces application settings from YAML with
// environment overrides.
//
// A minimal file:
//
//	stage: production
//	mappings:
//	  - prefix: /app
//	    lifecycle: standard
//	  - prefix: /api
//	    lifecycle: rest
//	state:
//	  method: server
//	  redis_addr: localhost:6379
//
// Environment variables prefixed HXFACES_ override file values; the
// standard OTEL_* variables configure tracing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Project stages. Production hides fault details from ajax error responses.
const (
	StageDevelopment = "development"
	StageProduction  = "production"
)

// Lifecycle names accepted in mappings.
const (
	LifecycleStandard = "standard"
	LifecycleAction   = "action"
	LifecycleREST     = "rest"
)

// State saving methods.
const (
	StateClient = "client"
	StateServer = "server"
)

var ErrInvalid = errors.New("config: invalid")

// Config is the full application configuration.
type Config struct {
	Stage      string    `yaml:"stage"`
	Addr       string    `yaml:"addr"`
	AjaxErrors bool      `yaml:"ajax_errors"`
	Mappings   []Mapping `yaml:"mappings"`
	State      State     `yaml:"state"`
	Push       Push      `yaml:"push"`
	Tracing    Tracing   `yaml:"tracing"`
}

// Mapping binds a URL prefix to a lifecycle.
type Mapping struct {
	Prefix    string `yaml:"prefix"`
	Lifecycle string `yaml:"lifecycle"`
}

// State configures view state saving.
type State struct {
	Method    string        `yaml:"method"`
	Mode      string        `yaml:"mode"`
	Key       string        `yaml:"key"`
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redis_addr"`
}

// Push configures the websocket push endpoint.
type Push struct {
	Path       string        `yaml:"path"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// Tracing configures the OpenTelemetry exporter.
type Tracing struct {
	ServiceName string            `yaml:"service_name"`
	Endpoint    string            `yaml:"endpoint"`
	Headers     map[string]string `yaml:"headers"`
	Insecure    bool              `yaml:"insecure"`
	Required    bool              `yaml:"required"`
	Timeout     time.Duration     `yaml:"timeout"`
	Sampler     string            `yaml:"sampler"`
	SamplerArg  string            `yaml:"sampler_arg"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Stage:      StageDevelopment,
		Addr:       ":8080",
		AjaxErrors: true,
		Mappings:   []Mapping{{Prefix: "/", Lifecycle: LifecycleStandard}},
		State: State{
			Method: StateClient,
			Mode:   "signed",
			TTL:    30 * time.Minute,
		},
		Push: Push{
			MaxRetries: 100,
			RetryDelay: 10 * time.Millisecond,
		},
		Tracing: Tracing{
			ServiceName: "hxfaces",
			Timeout:     5 * time.Second,
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if cfg, err = Parse(b); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML over the defaults. Fields the document omits keep their
// default values; a mappings list in the document replaces the default one.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from lookup, normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("HXFACES_STAGE", &c.Stage)
	str("HXFACES_ADDR", &c.Addr)
	boolean("HXFACES_AJAX_ERRORS", &c.AjaxErrors)
	str("HXFACES_STATE_METHOD", &c.State.Method)
	str("HXFACES_STATE_MODE", &c.State.Mode)
	str("HXFACES_STATE_KEY", &c.State.Key)
	duration("HXFACES_STATE_TTL", &c.State.TTL)
	str("HXFACES_REDIS_ADDR", &c.State.RedisAddr)
	str("HXFACES_PUSH_PATH", &c.Push.Path)
	integer("HXFACES_PUSH_MAX_RETRIES", &c.Push.MaxRetries)
	duration("HXFACES_PUSH_RETRY_DELAY", &c.Push.RetryDelay)

	str("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)
	boolean("OTEL_EXPORTER_OTLP_INSECURE", &c.Tracing.Insecure)
	boolean("OTEL_REQUIRED", &c.Tracing.Required)
	str("OTEL_TRACES_SAMPLER", &c.Tracing.Sampler)
	str("OTEL_TRACES_SAMPLER_ARG", &c.Tracing.SamplerArg)
	if v, ok := lookup("OTEL_EXPORTER_OTLP_HEADERS"); ok {
		if h := ParseHeaders(v); len(h) > 0 {
			c.Tracing.Headers = h
		}
	}
	return errors.Join(errs...)
}

// Validate checks enumerated fields and mapping prefixes.
func (c Config) Validate() error {
	var errs []error
	switch c.Stage {
	case StageDevelopment, StageProduction:
	default:
		errs = append(errs, fmt.Errorf("%w: stage %q", ErrInvalid, c.Stage))
	}
	switch c.State.Method {
	case StateClient, StateServer:
	default:
		errs = append(errs, fmt.Errorf("%w: state method %q", ErrInvalid, c.State.Method))
	}
	switch strings.ToLower(c.State.Mode) {
	case "", "signed", "encrypted":
	default:
		errs = append(errs, fmt.Errorf("%w: state mode %q", ErrInvalid, c.State.Mode))
	}
	if c.Push.MaxRetries < 0 || c.Push.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: push retry policy must not be negative", ErrInvalid))
	}
	seen := make(map[string]bool, len(c.Mappings))
	for _, m := range c.Mappings {
		if !strings.HasPrefix(m.Prefix, "/") {
			errs = append(errs, fmt.Errorf("%w: mapping prefix %q must start with /", ErrInvalid, m.Prefix))
		}
		if seen[m.Prefix] {
			errs = append(errs, fmt.Errorf("%w: duplicate mapping prefix %q", ErrInvalid, m.Prefix))
		}
		seen[m.Prefix] = true
		switch m.Lifecycle {
		case LifecycleStandard, LifecycleAction, LifecycleREST:
		default:
			errs = append(errs, fmt.Errorf("%w: mapping %q lifecycle %q", ErrInvalid, m.Prefix, m.Lifecycle))
		}
	}
	return errors.Join(errs...)
}

// Production reports whether the stage is production.
func (c Config) Production() bool { return c.Stage == StageProduction }

// ParseHeaders parses "k1=v1,k2=v2" as used by OTEL_EXPORTER_OTLP_HEADERS.
func ParseHeaders(raw string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}
