package http

import (
	"crypto/rsa"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/reservation-finalizer/internal/idempotency"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
	"github.com/robertarktes/reservation-finalizer/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency, jwtKey *rsa.PublicKey) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1/purchase-contexts/{type}/{id}/reservations/{reservationID}", func(r chi.Router) {
		r.Use(JWTMiddleware(jwtKey))
		r.Use(RateLimitMiddleware(rl))
		r.Use(IdempotencyMiddleware(idemp))
		r.Post("/offline-payment", h.ConfirmOfflinePayment)
		r.Post("/finalize", h.RequestFinalization)
	})

	return r
}
