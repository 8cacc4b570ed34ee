package router

import (
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// New builds the HTTP API: shared middleware, health probe, then the
// location routes split into optional-auth and required-auth groups.
func New(h *handler.LocationHandler, opts Options, log *logger.Logger, m *metrics.MetricsManager) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.Tracing())
	mux.Use(middleware.Logger(log.Named("HTTP")))
	if m != nil {
		mux.Use(middleware.Metrics(m))
	}
	mux.Use(chimw.Recoverer)
	if opts.RequestTimeout > 0 {
		mux.Use(chimw.Timeout(opts.RequestTimeout))
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	SetupLocationRoutes(mux, h, opts.JWTSecret)
	return mux
}

// SetupLocationRoutes registers the location, share, profile and map routes.
func SetupLocationRoutes(mux *chi.Mux, h *handler.LocationHandler, jwtSecret string) {
	mux.Get("/api/map/config", h.HandleMapConfig)

	// anonymous callers allowed; a valid token adds ownership and draft visibility
	mux.Group(func(r chi.Router) {
		r.Use(middleware.OptionalJWTAuth(jwtSecret))

		r.Get("/api/locations", h.HandleListLocations)
		r.Get("/api/locations/{id}", h.HandleGetLocation)
		r.Get("/api/map/locations", h.HandleMapLocations)
	})

	mux.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret))

		r.Post("/api/locations", h.HandleCreateLocation)
		r.Put("/api/locations/{id}", h.HandleUpdateLocation)
		r.Patch("/api/locations/{id}/status", h.HandleUpdateStatus)
		r.Delete("/api/locations/{id}", h.HandleDeleteLocation)

		r.Get("/api/locations/{id}/shares", h.HandleListShares)
		r.Post("/api/locations/{id}/shares", h.HandleCreateShare)
		r.Delete("/api/locations/{id}/shares/{shareId}", h.HandleRevokeShare)

		r.Get("/api/profile/locations", h.HandleListMyLocations)
	})
}
