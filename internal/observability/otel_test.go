package observability

import (
	"errors"
	"reflect"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc ,bad, =x,tenant=plants")
	want := map[string]string{"api-key": "abc", "tenant": "plants"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("headers=%v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func TestOtelConfigFromEnvClampsRatio(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	cfg := OtelConfigFromEnv("bloomly", "test")
	if !cfg.Enabled || cfg.SampleRatio != 1 || cfg.Endpoint != "collector:4318" {
		t.Fatalf("cfg=%+v", cfg)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "-1")
	if cfg := OtelConfigFromEnv("bloomly", "test"); cfg.SampleRatio != 0 {
		t.Fatalf("ratio=%v", cfg.SampleRatio)
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	_, span := tp.Tracer("test").Start(t.Context(), "models.train")
	EndSpan(span, errors.New("fit failed"))

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended=%d", len(ended))
	}
	if evs := ended[0].Events(); len(evs) != 1 || evs[0].Name != "exception" {
		t.Fatalf("events=%v", evs)
	}
}
