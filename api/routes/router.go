package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helpdeskhq/ticketflow-backend/api/controllers"
	"github.com/helpdeskhq/ticketflow-backend/api/middleware"
	"github.com/helpdeskhq/ticketflow-backend/internal/tickets"
	"github.com/helpdeskhq/ticketflow-backend/internal/webhooks"
	"github.com/helpdeskhq/ticketflow-backend/pkg/config"
	"github.com/helpdeskhq/ticketflow-backend/pkg/idempotency"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
)

type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	ReadyChecks    map[string]controllers.Pinger
	TicketService  tickets.Service
	WebhookService webhooks.Service
	CommandGuard   *idempotency.Guard
	Registry       *prometheus.Registry
}

func NewRouter(p Params) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.ReadyChecks))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tickets", func(r chi.Router) {
			create := r
			if p.CommandGuard != nil {
				create = r.With(middleware.Idempotency(p.CommandGuard, p.Logger))
			}
			create.Post("/", controllers.TicketCreate(p.TicketService, p.Logger))
			r.Get("/{id}", controllers.TicketGet(p.TicketService, p.Logger))
			r.Post("/{id}/assign", controllers.TicketAssign(p.TicketService, p.Logger))
			r.Post("/{id}/classify", controllers.TicketClassify(p.TicketService, p.Logger))
		})

		r.Post("/webhooks/{provider}", controllers.WebhookReceive(p.WebhookService, p.Logger))
	})

	return r
}
