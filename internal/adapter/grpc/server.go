// Package grpc exposes the gRPC health service used by orchestrators.
// The location API itself is served over HTTP.
package grpc

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "location-service"

// NewGRPCServer returns a server with tracing and logging installed and the
// health service registered in NOT_SERVING state. Call SetServing once the
// dependencies are up.
func NewGRPCServer(appLogger *logger.Logger) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(LoggingInterceptor(appLogger.Named("gRPC"))),
	)
	reflection.Register(server)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return server, healthServer
}

func SetServing(h *health.Server, serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.SetServingStatus("", st)
	h.SetServingStatus(ServiceName, st)
}

// LoggingInterceptor logs every unary call with its trace id and outcome.
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("status_code", status.Code(err).String()),
			zap.String("trace_id", trace.SpanFromContext(ctx).SpanContext().TraceID().String()),
		}
		if err != nil {
			log.Error("gRPC request failed", append(fields, zap.Error(err))...)
		} else {
			log.Debug("gRPC request completed", fields...)
		}
		return resp, err
	}
}
