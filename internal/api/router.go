package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// apiPrefix is the mount point of every route.
const apiPrefix = "/api/v1"

// healthCheckTimeout bounds the database ping made by the health endpoint.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/token", s.handleToken)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/brokers", func(r chi.Router) {
				r.Get("/", s.handleListBrokers)
				r.Post("/", s.handleCreateBroker)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetBroker)
					r.Put("/", s.handleUpdateBroker)
					r.Delete("/", s.handleDeleteBroker)

					r.Post("/connect", s.handleConnect)
					r.Post("/disconnect", s.handleDisconnect)
					r.Get("/status", s.handleStatus)

					r.Post("/publish", s.handlePublish)
					r.Post("/subscribe", s.handleSubscribe)
					r.Post("/unsubscribe", s.handleUnsubscribe)

					r.Route("/subscriptions", func(r chi.Router) {
						r.Get("/", s.handleListSubscriptions)
						r.Post("/", s.handleCreateSubscription)
						r.Patch("/{subID}", s.handleUpdateSubscription)
						r.Delete("/{subID}", s.handleDeleteSubscription)
					})

					r.Route("/templates", func(r chi.Router) {
						r.Get("/", s.handleListTemplates)
						r.Post("/", s.handleCreateTemplate)
						r.Get("/categories", s.handleTemplateCategories)
						r.Get("/export", s.handleExportTemplates)
						r.Post("/import", s.handleImportTemplates)

						r.Route("/{tplID}", func(r chi.Router) {
							r.Get("/", s.handleGetTemplate)
							r.Put("/", s.handleUpdateTemplate)
							r.Delete("/", s.handleDeleteTemplate)
							r.Post("/use", s.handleUseTemplate)
							r.Post("/publish", s.handlePublishTemplate)
							r.Post("/duplicate", s.handleDuplicateTemplate)
						})
					})

					r.Route("/env", func(r chi.Router) {
						r.Get("/", s.handleListVariables)
						r.Post("/", s.handleCreateVariable)
						r.Get("/{varID}", s.handleGetVariable)
						r.Put("/{varID}", s.handleUpdateVariable)
						r.Delete("/{varID}", s.handleDeleteVariable)
					})

					r.Get("/messages", s.handleListMessages)
					r.Delete("/messages", s.handleClearMessages)
				})
			})

			// Browsers cannot set headers on upgrade requests, so the
			// token may also arrive as a query parameter here.
			r.Get(s.wsPath(), s.handleWebSocket)
		})
	})

	return r
}

// wsPath is the WebSocket route relative to /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth reports server health. The response is 503 when the database
// does not answer.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := map[string]string{}

	if s.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.database.HealthCheck(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status":            overall,
		"version":           s.version,
		"checks":            checks,
		"connected_brokers": len(s.sessions.Connected()),
		"websocket_clients": s.hub.ClientCount(),
		"auth_enabled":      s.authEnabled(),
	})
}
