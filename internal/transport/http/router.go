package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-docverify/internal/config"
	"github.com/go-docverify/internal/domain"
	"github.com/go-docverify/internal/transport/http/handler"
	appmiddleware "github.com/go-docverify/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// background work of the rate limiter.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	verifyRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerificationHandler(deps.Verification, cfg.UploadMaxBytes)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", healthH.Health)
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(verifyRL.Limit)

			r.Post("/verifications/confirm", verifyH.Confirm)
			r.Post("/verifications/{documentType}", verifyH.Begin)

			// routes kept for clients of the first API version
			r.Post("/verify-aadhaar", verifyH.BeginFor(domain.DocumentAadhaar))
			r.Post("/verify-pan", verifyH.BeginFor(domain.DocumentPAN))
			r.Post("/confirm-otp", verifyH.Confirm)
		})
	})

	return r
}
