package tracer

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

// Config selects where spans go. An empty Endpoint keeps tracing local:
// spans are created so trace ids propagate to logs and NATS headers, but
// nothing is exported.
type Config struct {
	ServiceName string
	Version     string
	Endpoint    string
	// SampleRatio applies to root spans; children follow their parent.
	SampleRatio float64
}

// InitTracer installs the W3C propagator and a global tracer provider. The
// returned provider must be shut down on exit to flush buffered spans.
func InitTracer(cfg Config, appLogger *logger.Logger) *sdktrace.TracerProvider {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
		sdktrace.WithResource(newResource(cfg, appLogger)),
	}

	if cfg.Endpoint == "" {
		appLogger.Info("Span export disabled: otel.endpoint is not set")
	} else {
		// the exporter connects lazily, so an absent collector does not block startup
		exporter, err := otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			appLogger.Error("Failed to create OTLP trace exporter", zap.String("endpoint", cfg.Endpoint), zap.Error(err))
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter))
			appLogger.Info("Exporting spans over OTLP/gRPC", zap.String("endpoint", cfg.Endpoint))
		}
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func newResource(cfg Config, appLogger *logger.Logger) *resource.Resource {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(cfg.Version))
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		// schema URL conflicts with resource.Default; keep our attributes
		appLogger.Warn("Failed to merge OpenTelemetry resource", zap.Error(err))
		return resource.NewSchemaless(attrs...)
	}
	return res
}
