package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/solace-health/solace-platform/internal/appointments"
	httpmiddleware "github.com/solace-health/solace-platform/internal/http/middleware"
	"github.com/solace-health/solace-platform/internal/payments"
	"github.com/solace-health/solace-platform/internal/therapists"
	"github.com/solace-health/solace-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	RefundsHandler      *payments.Handler
	HistoryHandler      *therapists.HistoryHandler
	MetricsHandler      http.Handler
	AuthJWTSecret       string
	CORSAllowedOrigins  []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Session-authenticated endpoints
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.BearerAuth(cfg.AuthJWTSecret))

		if cfg.AppointmentsHandler != nil {
			authed.Get("/appointments", cfg.AppointmentsHandler.List)
			authed.Post("/appointments", cfg.AppointmentsHandler.Create)
			authed.Get("/appointments/{id}", cfg.AppointmentsHandler.Get)
			authed.Patch("/appointments/{id}/status", cfg.AppointmentsHandler.UpdateStatus)
			authed.Post("/reschedule-appointment", cfg.AppointmentsHandler.Reschedule)
		}
		if cfg.RefundsHandler != nil {
			authed.Post("/process-refund", cfg.RefundsHandler.ProcessRefund)
			authed.Get("/appointments/{id}/refunds", cfg.RefundsHandler.ListAppointmentRefunds)
		}
		if cfg.HistoryHandler != nil {
			authed.Get("/therapist/refunds", cfg.HistoryHandler.ListRefunds)
		}
	})

	return r
}
