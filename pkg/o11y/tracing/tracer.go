package tracing

import (
	"context"

	"github.com/trackforge/previewd/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/trackforge/previewd"

func NewNoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(instrumentationName)
}

func NewTracer(conf config.O11yConfig) (trace.Tracer, func(context.Context) error) {
	if !conf.TracingEnabled {
		return NewNoopTracer(), func(_ context.Context) error {
			return nil
		}
	}

	bsp := sdktrace.NewBatchSpanProcessor(newExporter())
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(buildResource(conf)),
		sdktrace.WithSpanProcessor(bsp),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracer := tracerProvider.Tracer(instrumentationName)

	return tracer, tracerProvider.Shutdown
}

func newExporter() sdktrace.SpanExporter {
	exporter, err := otlptracehttp.New(context.Background())
	if err != nil {
		panic(err)
	}

	return exporter
}

func buildResource(conf config.O11yConfig) *resource.Resource {
	serviceName := conf.ServiceName
	if serviceName == "" {
		serviceName = "previewd"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		panic(err)
	}

	return res
}
