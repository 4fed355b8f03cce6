package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	initOnce sync.Once
	tp       *sdktrace.TracerProvider
	initErr  error
)

// InitOpenTelemetry installs the process-wide tracer provider. Repeated
// calls return the first outcome.
func InitOpenTelemetry(serviceName string) error {
	initOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(semconv.ServiceName(serviceName)))
		if err != nil {
			initErr = err
			return
		}

		tp = sdktrace.NewTracerProvider(sdktrace.WithResource(res))
		otel.SetTracerProvider(tp)
	})
	return initErr
}

// ShutdownOpenTelemetry flushes pending spans. A no-op when tracing was
// never initialized.
func ShutdownOpenTelemetry(ctx context.Context) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// StartSpan opens a span and, when no trace ID has been set upstream,
// adopts the span's trace ID so log lines and spans correlate.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))

	if GetTraceID(ctx) == "" {
		if sc := span.SpanContext(); sc.IsValid() {
			ctx = WithTraceID(ctx, sc.TraceID().String())
		}
	}
	return ctx, span
}
