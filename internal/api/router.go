package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/auth"
)

func NewRouter(h *Handler, authn *auth.Middleware, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.healthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", h.createUser)
		r.Post("/sessions", h.createSession)

		r.Group(func(r chi.Router) {
			r.Use(authn.Handler)

			r.Delete("/sessions", h.deleteSession)
			r.Get("/profile", h.showProfile)

			r.Route("/statements", func(r chi.Router) {
				r.Get("/balance", h.getBalance)
				r.Post("/deposit", h.deposit)
				r.Post("/withdraw", h.withdraw)
				r.Post("/transfers/{user_id}", h.transfer)
				r.Get("/{statement_id}", h.getStatementOperation)
			})
		})
	})

	return r
}
