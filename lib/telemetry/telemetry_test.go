package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/pthm/hxfaces/lib/config"
)

func sampleDecision(s sdktrace.Sampler) sdktrace.SamplingDecision {
	return s.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       oteltrace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		Name:          "phase",
	}).Decision
}

func TestSampler(t *testing.T) {
	tests := []struct {
		name, arg string
		want      sdktrace.SamplingDecision
	}{
		{"always_off", "", sdktrace.Drop},
		{"always_on", "", sdktrace.RecordAndSample},
		{"traceidratio", "2", sdktrace.RecordAndSample},
		{"traceidratio", "-1", sdktrace.Drop},
		{"parentbased", "0", sdktrace.Drop},
		{"unknown", "", sdktrace.RecordAndSample},
	}
	for _, tt := range tests {
		if got := sampleDecision(Sampler(tt.name, tt.arg)); got != tt.want {
			t.Errorf("Sampler(%q, %q) decision = %v, want %v", tt.name, tt.arg, got, tt.want)
		}
	}
}

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), config.Tracing{ServiceName: "test"}, nil)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())

	_, span := Tracer().Start(context.Background(), "RESTORE_VIEW")
	if !span.SpanContext().IsValid() {
		t.Error("span from installed provider should be valid")
	}
	span.End()
}

func TestInitWithEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), config.Tracing{Endpoint: "127.0.0.1:1", Insecure: true}, nil)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestMiddleware(t *testing.T) {
	called := false
	h := Middleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if !called || rec.Code != http.StatusNoContent {
		t.Errorf("called = %v, code = %d", called, rec.Code)
	}
}
