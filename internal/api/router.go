package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/slatehq/slate/internal/api/auth"
	fieldsapi "github.com/slatehq/slate/internal/api/fields"
	"github.com/slatehq/slate/internal/api/groups"
	"github.com/slatehq/slate/internal/api/middleware"
	"github.com/slatehq/slate/internal/api/projects"
	"github.com/slatehq/slate/internal/api/users"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)

	lockoutTracker := auth.NewLockoutTracker(s.config.LockoutThreshold, s.config.LockoutDuration)

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)
	if len(s.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (mostly public)
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(
				s.storage,
				jwtService,
				lockoutTracker,
				s.config.RefreshTokenTTL,
			)

			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ipLimiter))
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(jwtService))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// User routes (protected)
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			userHandler := users.NewHandler(s.storage)

			// Current user endpoints (any authenticated user)
			r.Get("/me", userHandler.GetCurrentUser)
			r.Put("/me/password", userHandler.ChangePassword)

			// Admin-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
			})

			// Per-user endpoints (admin or self)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.RequireAdminOrSelf)
				r.Get("/", userHandler.GetByID)
				r.Put("/", userHandler.Update)

				// Delete is admin-only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Delete("/", userHandler.Delete)
				})
			})
		})

		// Group routes (protected)
		r.Route("/groups", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			groupHandler := groups.NewHandler(s.storage, s.engine)

			r.Get("/", groupHandler.ListMine)
			r.Post("/", groupHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", groupHandler.GetByID)
				r.Put("/", groupHandler.Update)
				r.Delete("/", groupHandler.Delete)
				r.Post("/members", groupHandler.AddMember)
				r.Delete("/members/{userId}", groupHandler.RemoveMember)
			})
		})

		// Field definition routes (protected)
		r.Route("/fields", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			fieldHandler := fieldsapi.NewHandler(s.storage, s.validator)

			// Any authenticated user can list active definitions and dry-run
			// values against them.
			r.Get("/", fieldHandler.ListActive)
			r.Post("/validate", fieldHandler.Validate)

			// Definition management is admin-only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/all", fieldHandler.List)
				r.Post("/", fieldHandler.Create)
				r.Get("/{id}", fieldHandler.GetByID)
				r.Put("/{id}", fieldHandler.Update)
				r.Delete("/{id}", fieldHandler.Delete)
			})
		})

		// Project routes (protected). Per-project authorization is resolved
		// by the permissions engine inside the handlers.
		r.Route("/projects", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			projectHandler := projects.NewHandler(s.storage, s.engine, s.validator)

			r.Get("/", projectHandler.List)
			r.Post("/", projectHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.GetByID)
				r.Put("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)

				r.Get("/users", projectHandler.GetUsers)
				r.Get("/groups", projectHandler.GetGroups)
				r.Get("/role", projectHandler.GetRole)

				r.Put("/visibility", projectHandler.SetVisibility)
				r.Put("/fields", projectHandler.SetFields)

				r.Post("/permissions", projectHandler.GrantUser)
				r.Put("/permissions/{userId}", projectHandler.UpdateUserRole)
				r.Delete("/permissions/{userId}", projectHandler.RevokeUser)

				r.Post("/groups/{groupId}", projectHandler.GrantGroup)
				r.Put("/groups/{groupId}", projectHandler.UpdateGroupRole)
				r.Delete("/groups/{groupId}", projectHandler.RevokeGroup)
			})
		})
	})

	// Health endpoints (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
