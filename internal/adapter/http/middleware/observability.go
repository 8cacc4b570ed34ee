package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("location-service/http")

// Tracing starts a server span per request, continuing any incoming trace.
func Tracing() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if route := routePattern(r); route != "" {
				span.SetName(r.Method + " " + route)
			}
			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.status_code", status(ww)),
			)
		})
	}
}

// Logger logs one line per request.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status(ww)),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			}
			if userID := UserIDFromContext(r.Context()); userID != "" {
				fields = append(fields, zap.String("user_id", userID))
			}
			if status(ww) >= http.StatusInternalServerError {
				log.Error("HTTP request failed", fields...)
			} else {
				log.Info("HTTP request", fields...)
			}
		})
	}
}

// Metrics records latency per route and counts error responses.
func Metrics(m *metrics.MetricsManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routePattern(r)
			if route == "" {
				route = "unmatched"
			}
			m.APILatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			if code := status(ww); code >= http.StatusBadRequest {
				m.APIErrorsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func status(ww chimw.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
