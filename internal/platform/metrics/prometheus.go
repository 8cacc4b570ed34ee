package metrics

import (
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsManager holds the service's Prometheus collectors.
type MetricsManager struct {
	Registry *prometheus.Registry

	LocationsCreatedTotal prometheus.Counter
	LocationUpdatesTotal  prometheus.Counter
	LocationDeletesTotal  prometheus.Counter
	SharesIssuedTotal     *prometheus.CounterVec // by access level
	SharesRevokedTotal    prometheus.Counter
	AccessResolvedTotal   *prometheus.CounterVec // by level, "denied" included
	ImageUploadsTotal     *prometheus.CounterVec // by result
	CacheRequestsTotal    *prometheus.CounterVec // by kind and result
	FallbackReadsTotal    prometheus.Counter
	APIErrorsTotal        *prometheus.CounterVec
	APILatency            *prometheus.HistogramVec
}

// NewMetricsManager registers all collectors on a fresh registry.
func NewMetricsManager(serviceName string) *MetricsManager {
	ns := strings.ReplaceAll(serviceName, "-", "_")
	registry := prometheus.NewRegistry()

	m := &MetricsManager{
		Registry: registry,
		LocationsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "locations_created_total",
			Help:      "Total number of locations created.",
		}),
		LocationUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "location_updates_total",
			Help:      "Total number of location edits and status changes.",
		}),
		LocationDeletesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "location_deletes_total",
			Help:      "Total number of locations deleted.",
		}),
		SharesIssuedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "shares_issued_total",
			Help:      "Total number of share links issued by access level.",
		}, []string{"access_level"}),
		SharesRevokedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "shares_revoked_total",
			Help:      "Total number of share links revoked.",
		}),
		AccessResolvedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "access_resolved_total",
			Help:      "Access resolutions by resulting level.",
		}, []string{"level"}),
		ImageUploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "image_uploads_total",
			Help:      "Image batch items by result.",
		}, []string{"result"}),
		CacheRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_requests_total",
			Help:      "Query cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		FallbackReadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fallback_reads_total",
			Help:      "Reads served from the local fallback dataset.",
		}),
		APIErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "api_errors_total",
			Help:      "Total number of API errors by route and status.",
		}, []string{"route", "status"}),
		APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "api_request_latency_seconds",
			Help:      "Latency of API requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		m.LocationsCreatedTotal,
		m.LocationUpdatesTotal,
		m.LocationDeletesTotal,
		m.SharesIssuedTotal,
		m.SharesRevokedTotal,
		m.AccessResolvedTotal,
		m.ImageUploadsTotal,
		m.CacheRequestsTotal,
		m.FallbackReadsTotal,
		m.APIErrorsTotal,
		m.APILatency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StartMetricsServer serves /metrics on the given port until the server fails.
func StartMetricsServer(port string, appLogger *logger.Logger, registry *prometheus.Registry) error {
	if port == "" {
		appLogger.Info("Prometheus metrics server port not configured, server will not start")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	appLogger.Info("Prometheus metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	return server.ListenAndServe()
}
