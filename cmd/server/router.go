package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phrazzld/sheetdesk/internal/api"
	apiMiddleware "github.com/phrazzld/sheetdesk/internal/api/middleware"
	"github.com/phrazzld/sheetdesk/internal/api/shared"
)

// setupRouter creates the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(apiMiddleware.NewRequestMetrics(app.metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", app.config.Auth.Header},
		ExposedHeaders: []string{shared.TraceIDHeader},
		MaxAge:         300,
	}))

	auth := apiMiddleware.NewAuthMiddleware(app.config.Auth.APIKey, app.config.Auth.Header)
	recordHandler := api.NewRecordHandler(app.records, app.logger)
	legacyHandler := api.NewLegacyHandler(app.records, app.tf, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate)
		recordHandler.Routes(r)
	})

	// Legacy single-endpoint protocol of the old script deployment.
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Get("/exec", legacyHandler.ServeHTTP)
		r.Post("/exec", legacyHandler.ServeHTTP)
	})

	if app.dispatcher != nil && app.messenger != nil {
		webhook := api.NewWebhookHandler(app.config.Bot.WebhookSecret, app.dispatcher, app.messenger, app.logger)
		r.Post("/webhook/telegram", webhook.ServeHTTP)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"bot":    app.dispatcher != nil,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	app.logger.Debug("router configured", slog.Bool("webhook", app.dispatcher != nil))
	return r
}
