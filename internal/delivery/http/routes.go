package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/notes-app/backend/internal/middleware"
)

func NewRouter(handler *Handler, authMiddleware *middleware.AuthMiddleware, limiter *middleware.RateLimiter, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Identity is resolved once per request; protected groups add RequireAuth.
	r.Use(authMiddleware.Authenticate)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public, rate limited)
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limiter.Limit)
				r.Post("/register", handler.Register)
				r.Post("/login", handler.Login)
				r.Post("/refresh", handler.RefreshToken)
			})
			r.Post("/logout", handler.Logout)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Get("/me", handler.GetCurrentUser)
				r.Get("/logins", handler.ListLogins)
			})
		})

		// Note routes (protected)
		r.Route("/notes", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/", handler.ListNotes)
			r.Post("/", handler.SaveNote)
			r.Delete("/{id}", handler.DeleteNote)
		})
	})

	return r
}
