package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/backoffice/internal/auth"
	"github.com/BradenHooton/backoffice/internal/handlers"
)

// RegisterRoutes mounts the credential endpoints under /api. Each protected
// func is registered on an /api group behind the bearer-token gate; this is
// where catalog handlers plug in.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
	protected ...func(r chi.Router),
) {
	router.Route("/api", func(r chi.Router) {
		// Public routes - no authentication required
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/reset-password/{resetToken}", authHandler.ResetPassword)

		// Protected routes - authentication required
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(tokenManager))

			r.Get("/auth/me", authHandler.Me)

			for _, register := range protected {
				register(r)
			}
		})
	})
}
