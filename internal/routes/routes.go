package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/inspireokc/internal/auth"
	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/handlers"
	"github.com/BradenHooton/inspireokc/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// requestTimeout covers the slowest non-streaming call, an image generation
const requestTimeout = 2 * time.Minute

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	Limits       *handlers.LimitHandler
	Generate     *handlers.GenerateHandler
	Chat         *handlers.ChatHandler
	Fingerprints *handlers.FingerprintHandler
	Events       *handlers.EventHandler
	Cartoons     *handlers.CartoonHandler
	Friends      *handlers.FriendHandler
}

// Dependencies are the shared pieces the route middleware needs
type Dependencies struct {
	TokenManager *auth.TokenManager
	Admins       auth.AdminLookup
	Sessions     *fingerprint.SessionStore
	Cookie       middleware.CookieConfig
	Limits       RateLimits
	Logger       *slog.Logger
}

// RateLimits are per-minute request budgets for the expensive endpoints
type RateLimits struct {
	Chat     int
	Generate int
	Upload   int
}

// RegisterRoutes registers all application routes under /api
func RegisterRoutes(router chi.Router, h Handlers, deps Dependencies) {
	chatLimit := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestsPerMinute: deps.Limits.Chat})
	generateLimit := middleware.RateLimitByFingerprint(middleware.RateLimitConfig{RequestsPerMinute: deps.Limits.Generate})
	uploadLimit := middleware.RateLimitByFingerprint(middleware.RateLimitConfig{RequestsPerMinute: deps.Limits.Upload})

	router.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(deps.TokenManager))

		// Streams outlive the request timeout applied below
		r.With(chatLimit).Post("/chat", h.Chat.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.Get("/styles", h.Cartoons.ListStyles)
			r.Post("/fingerprints", h.Fingerprints.Register)

			// Everything below is keyed by the caller's device
			r.Group(func(r chi.Router) {
				r.Use(middleware.ResolveFingerprint(deps.Sessions, deps.Cookie, deps.Logger))

				r.Get("/limits", h.Limits.GetLimits)
				r.Post("/events", h.Events.Track)
				r.With(generateLimit).Post("/generate", h.Generate.Generate)

				r.Route("/cartoons", func(r chi.Router) {
					r.Post("/", h.Cartoons.Create)
					r.Get("/{id}", h.Cartoons.Get)
					r.With(uploadLimit).Post("/{id}/upload", h.Cartoons.Upload)
					r.Put("/{id}/style", h.Cartoons.SelectStyle)
					r.With(generateLimit).Post("/{id}/generate", h.Cartoons.Generate)
					r.Post("/{id}/reset", h.Cartoons.Reset)
				})
			})

			// Admin-only routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAuth(deps.TokenManager))
				r.Use(auth.RequireAdmin(deps.Admins, deps.Logger))

				r.Get("/friends", h.Friends.ListFriends)
				r.Post("/friends", h.Friends.CreateFriend)
				r.Get("/friends/{id}", h.Friends.GetFriend)
				r.Put("/friends/{id}", h.Friends.UpdateFriend)
				r.Delete("/friends/{id}", h.Friends.DeleteFriend)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"route not found"}`))
	})
}
