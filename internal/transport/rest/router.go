package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mukeshbadgujar/emandate-service/internal/customer"
	"github.com/mukeshbadgujar/emandate-service/internal/mandate"
	"github.com/mukeshbadgujar/emandate-service/internal/payment"
	"github.com/mukeshbadgujar/emandate-service/internal/transport/middleware"
	"github.com/mukeshbadgujar/emandate-service/internal/transport/swagger"
	"github.com/mukeshbadgujar/emandate-service/internal/webhook"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, redisClient *redis.Client, customerHandler *customer.Handler, mandateHandler *mandate.Handler, paymentHandler *payment.Handler, webhookHandler *webhook.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, redisClient)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Provider callbacks carry their own HMAC authentication
		if webhookHandler != nil {
			r.Post("/webhooks/razorpay", webhookHandler.Receive)
		}

		if customerHandler != nil {
			r.Route("/customers", func(cr chi.Router) {
				cr.Post("/", customerHandler.Create)
				cr.Get("/", customerHandler.List)
				cr.Get("/{id}", customerHandler.Get)
				if mandateHandler != nil {
					cr.Get("/{id}/mandates", mandateHandler.ListByCustomer)
				}
			})
		}

		if mandateHandler != nil {
			r.Route("/mandates", func(mr chi.Router) {
				mr.Post("/", mandateHandler.Authorize)
				mr.Get("/{id}", mandateHandler.Get)
				mr.Get("/{id}/validate", mandateHandler.Validate)
				mr.Post("/{id}/cancel", mandateHandler.Cancel)
				if paymentHandler != nil {
					mr.Get("/{id}/payments", paymentHandler.ListByMandate)
				}
			})
		}

		if paymentHandler != nil {
			r.Route("/payments", func(pr chi.Router) {
				pr.Post("/", paymentHandler.Create)
				pr.Get("/{id}", paymentHandler.Get)
			})
		}
	})
}
