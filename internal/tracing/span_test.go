package tracing_test

import (
	"context"
	"net/url"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/outboundlb/proxyprobe/internal/config"
	"github.com/outboundlb/proxyprobe/internal/tracing"
	"github.com/outboundlb/proxyprobe/internal/transport"
)

func recordingTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Errorf("provider shutdown: %v", err)
		}
	})
	return recorder, tp
}

func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestWrapTransportRecordsClientSpan(t *testing.T) {
	recorder, tp := recordingTracer(t)

	inner := transport.Func(func(_ context.Context, _ transport.Request) transport.Result {
		return transport.Response(200, []byte(`{"origin":"x"}`))
	})
	wrapped := tracing.WrapTransport(inner, tp.Tracer("test"))

	target, _ := url.Parse("https://httpbin.org/ip")
	proxy, _ := url.Parse("http://localhost:3128")
	res := wrapped.Issue(context.Background(), transport.Request{ID: 7, Target: target, Proxy: proxy})
	if res.Kind != transport.KindResponse {
		t.Fatalf("result kind = %s", res.Kind)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]

	if v, ok := attrValue(span, "proxyprobe.task_id"); !ok || v.AsInt64() != 7 {
		t.Errorf("task_id attribute = %v", v)
	}
	if v, ok := attrValue(span, "proxyprobe.proxy"); !ok || v.AsString() != "localhost:3128" {
		t.Errorf("proxy attribute = %v", v)
	}
	if v, ok := attrValue(span, "http.response.status_code"); !ok || v.AsInt64() != 200 {
		t.Errorf("status_code attribute = %v", v)
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", span.Status().Code)
	}
}

func TestWrapTransportMarksFailuresAsError(t *testing.T) {
	recorder, tp := recordingTracer(t)

	inner := transport.Func(func(_ context.Context, _ transport.Request) transport.Result {
		return transport.ConnectionFailure("dial tcp: connection refused")
	})
	wrapped := tracing.WrapTransport(inner, tp.Tracer("test"))

	target, _ := url.Parse("https://httpbin.org/ip")
	wrapped.Issue(context.Background(), transport.Request{ID: 1, Target: target})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}
	if v, ok := attrValue(spans[0], "proxyprobe.result"); !ok || v.AsString() != "connection_failure" {
		t.Errorf("result attribute = %v", v)
	}
}

func TestWrapTransportNilTracerPassthrough(t *testing.T) {
	inner := transport.Func(func(_ context.Context, _ transport.Request) transport.Result {
		return transport.Response(204, nil)
	})
	if got := tracing.WrapTransport(inner, nil); got == nil {
		t.Fatal("expected passthrough transport")
	}
}

func TestInitDisabledReturnsNoopProvider(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if p.Tracer() == nil {
		t.Fatal("Tracer must never be nil")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{Enabled: true})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
