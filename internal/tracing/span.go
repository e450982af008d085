package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/outboundlb/proxyprobe/internal/transport"
)

// StartBatchSpan starts the root span for a dispatch batch.
func StartBatchSpan(ctx context.Context, tracer trace.Tracer, batchID, model string, tasks int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "proxy validation batch")
	span.SetAttributes(
		attribute.String("proxyprobe.batch_id", batchID),
		attribute.String("proxyprobe.model", model),
		attribute.Int("proxyprobe.tasks", tasks),
	)
	return ctx, span
}

// tracedTransport wraps a Transport so every issued request produces a client
// span annotated with the transport result.
type tracedTransport struct {
	inner  transport.Transport
	tracer trace.Tracer
}

// WrapTransport instruments a Transport with per-request spans. A nil tracer
// returns the transport unchanged.
func WrapTransport(inner transport.Transport, tracer trace.Tracer) transport.Transport {
	if tracer == nil {
		return inner
	}
	return &tracedTransport{inner: inner, tracer: tracer}
}

func (t *tracedTransport) Issue(ctx context.Context, req transport.Request) transport.Result {
	ctx, span := t.tracer.Start(ctx, "proxy probe",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(attribute.Int("proxyprobe.task_id", req.ID))
	if req.Target != nil {
		span.SetAttributes(attribute.String("url.full", req.Target.String()))
	}
	if proxy := req.ProxyURL(); proxy != nil {
		span.SetAttributes(attribute.String("proxyprobe.proxy", proxy.Host))
	}

	res := t.inner.Issue(ctx, req)

	span.SetAttributes(attribute.String("proxyprobe.result", res.Kind.String()))
	switch res.Kind {
	case transport.KindResponse:
		span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Error, res.Detail)
	}
	span.End()
	return res
}
