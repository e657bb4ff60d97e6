package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rytkhs/event-pay-sub006/internal/application"
)

type Handler struct {
	service   *application.Service
	scheduler *application.Scheduler
	webhooks  *WebhookHandler
}

func NewHandler(service *application.Service, scheduler *application.Scheduler, webhooks *WebhookHandler) *Handler {
	return &Handler{service: service, scheduler: scheduler, webhooks: webhooks}
}

func NewRouter(handler *Handler, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Stripe authenticates webhooks by signature, not bearer token.
	r.Post("/v1/webhooks/stripe", handler.webhooks.handleStripeEvent)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Post("/payouts/process", handler.processPayout)
			r.Get("/payouts/history", handler.listHistory)
			r.Get("/payouts/{id}", handler.getPayout)
			r.Post("/payouts/{id}/retry", handler.retryPayout)
			r.Post("/payouts/{id}/cancel", handler.cancelPayout)

			r.Get("/events/{id}/payout", handler.getEventPayout)
			r.Get("/events/{id}/eligibility", handler.checkEligibility)
			r.Get("/events/{id}/manual-eligibility", handler.manualEligibility)

			r.Post("/scheduler/run", handler.runScheduler)
			r.Get("/scheduler/history", handler.schedulerHistory)
		})
	})
	return r
}
