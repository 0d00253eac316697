package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName names the tracer when the config leaves it empty.
const DefaultServiceName = "payfriend"

// Config holds tracing configuration.
type Config struct {
	Enabled     bool
	Endpoint    string // Jaeger collector, e.g. "http://localhost:14268/api/traces"
	ServiceName string
	Environment string
}

// Tracer wraps OpenTelemetry tracer functionality.
type Tracer struct {
	tracer trace.Tracer
}

var (
	mu           sync.RWMutex
	globalTracer *Tracer
)

// InitTracing initializes OpenTelemetry tracing and installs the process
// tracer. It is meant to be called once at startup.
func InitTracing(cfg Config) (*Tracer, error) {
	if !cfg.Enabled {
		t := &Tracer{tracer: noop.NewTracerProvider().Tracer("noop")}
		setGlobal(t)
		return t, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String("1.0.0"),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t := &Tracer{tracer: otel.Tracer(cfg.ServiceName)}
	setGlobal(t)
	return t, nil
}

func setGlobal(t *Tracer) {
	mu.Lock()
	defer mu.Unlock()
	globalTracer = t
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// GetTracer returns the process tracer, or one backed by the global OTel
// provider if InitTracing has not run.
func GetTracer() *Tracer {
	mu.RLock()
	defer mu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: otel.Tracer(DefaultServiceName)}
	}
	return globalTracer
}

// Shutdown flushes and stops the tracer provider.
func Shutdown(ctx context.Context) error {
	if tp, ok := otel.GetTracerProvider().(*tracesdk.TracerProvider); ok {
		return tp.Shutdown(ctx)
	}
	return nil
}
