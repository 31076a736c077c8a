package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/apperrors"
	"github.com/orgaflow/orgaflow/internal/audit"
	"github.com/orgaflow/orgaflow/internal/auth"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/orgaflow/orgaflow/internal/config"
	"github.com/orgaflow/orgaflow/internal/events"
	"github.com/orgaflow/orgaflow/internal/orgs"
	"github.com/orgaflow/orgaflow/internal/projects"
	"github.com/orgaflow/orgaflow/internal/tasks"
	"github.com/orgaflow/orgaflow/internal/webhooks"
)

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(pool *pgxpool.Pool, cfg *config.Config, dispatcher *events.Dispatcher) *chi.Mux {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)              // Set RemoteAddr to real IP
	r.Use(apperrors.RequestIDMiddleware)  // Add request ID to context
	r.Use(LoggingMiddleware)              // Structured request logging
	r.Use(RecoveryMiddleware)             // Recover from panics
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.AuthMiddleware(cfg.JWTSecret)) // Parse bearer tokens

	// The privilege table is built once and threaded into every handler.
	table := authz.DefaultPrivileges()
	auditor := audit.NewWriter(pool)

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool))

	// API routes - Authentication
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.With(LoginRateLimitMiddleware()).Post("/signup", auth.HandleSignup(pool, auditor, cfg.JWTSecret, cfg.SessionDays))
		r.With(LoginRateLimitMiddleware()).Post("/login", auth.HandleLogin(pool, auditor, cfg.JWTSecret, cfg.SessionDays))
	})

	// API routes - Organizations
	r.Route("/api/v1/orgs", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(auth.RequireAuth)

		r.Post("/", orgs.HandleCreate(pool, table, auditor))
		r.Get("/", orgs.HandleList(pool, table))
		// The join credential is short enough to guess; throttle attempts.
		r.With(LoginRateLimitMiddleware()).Post("/join", orgs.HandleJoin(pool, table, auditor))
		r.Get("/{org_id}", orgs.HandleGet(pool, table))

		// Members
		r.Get("/{org_id}/members", orgs.HandleListMembers(pool, table))
		r.Put("/{org_id}/members/{user_id}", orgs.HandleUpdateMemberRole(pool, table, auditor))
		r.Delete("/{org_id}/members/{user_id}", orgs.HandleRemoveMember(pool, table, auditor))

		// Projects under organization
		r.Post("/{org_id}/projects", projects.HandleCreate(pool, table, auditor))
		r.Get("/{org_id}/projects", projects.HandleList(pool, table))

		// Webhook registry
		r.Post("/{org_id}/webhooks", webhooks.HandleRegister(pool, table, auditor))
		r.Get("/{org_id}/webhooks", webhooks.HandleList(pool, table))

		// Audit trail
		r.Get("/{org_id}/audit", audit.HandleList(pool, table))
	})

	// API routes - Projects
	r.Route("/api/v1/projects", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(auth.RequireAuth)

		r.Get("/{project_id}", projects.HandleGet(pool, table))
		r.Put("/{project_id}", projects.HandleUpdate(pool, table))
		r.Delete("/{project_id}", projects.HandleDelete(pool, table))

		// Tasks under project
		r.Post("/{project_id}/tasks", tasks.HandleCreate(pool, table, dispatcher))
		r.Get("/{project_id}/tasks", tasks.HandleListByProject(pool, table))
	})

	// API routes - Tasks
	r.Route("/api/v1/tasks", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(auth.RequireAuth)

		r.Get("/{task_id}", tasks.HandleGet(pool, table))
		r.Put("/{task_id}", tasks.HandleUpdate(pool, table, dispatcher))
		r.Delete("/{task_id}", tasks.HandleDelete(pool, table, dispatcher))

		// Comments under task
		r.Post("/{task_id}/comments", tasks.HandleCreateComment(pool, table))
		r.Get("/{task_id}/comments", tasks.HandleListComments(pool, table))
	})

	// API routes - Comments
	r.Route("/api/v1/comments", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(auth.RequireAuth)

		r.Put("/{comment_id}", tasks.HandleUpdateComment(pool, table))
		r.Delete("/{comment_id}", tasks.HandleDeleteComment(pool, table))
	})

	// API routes - Webhooks
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(auth.RequireAuth)

		r.Get("/{webhook_id}", webhooks.HandleGet(pool, table))
		r.Post("/{webhook_id}/reveal", webhooks.HandleRevealSecret(pool, table, auditor))
		r.Put("/{webhook_id}", webhooks.HandleSetActive(pool, table, auditor))
		r.Delete("/{webhook_id}", webhooks.HandleDelete(pool, table, auditor))
	})

	return r
}

// handleHealthz returns a simple liveness check
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database connectivity
func handleReadyz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
