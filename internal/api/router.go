package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
	"github.com/hackgods/clinic-self-booking/internal/metrics"
)

type RouterConfig struct {
	Service *appointment.Service
	Logger  zerolog.Logger
	Metrics *metrics.BookingMetrics
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer     prometheus.Gatherer
	Dependencies []Dependency
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware(cfg.Metrics))

	// Health endpoints
	health := NewHealthHandler(cfg.Env, cfg.Version, cfg.Dependencies...)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", metrics.Handler(cfg.Gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Get("/availability", availabilityHandler(cfg.Service))
		r.Get("/calendar/bookable-dates", bookableDatesHandler(cfg.Service))
		r.Get("/practitioners", practitionersHandler(cfg.Service.Catalog()))
		r.Get("/services", servicesHandler(cfg.Service.Catalog()))

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Service))
			r.Get("/", listAppointmentsHandler(cfg.Service))
			r.Get("/active", activeAppointmentHandler(cfg.Service))
			r.Get("/{id}", getAppointmentHandler(cfg.Service))
			r.Put("/{id}", rescheduleAppointmentHandler(cfg.Service))
			r.Delete("/{id}", cancelAppointmentHandler(cfg.Service))
		})
	})

	return r
}
