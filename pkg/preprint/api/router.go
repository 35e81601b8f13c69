package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/simple-preprint/pkg/preprint"
	"github.com/tendant/simple-preprint/pkg/preprint/metrics"
)

const healthTimeout = 3 * time.Second

// RouterConfig configures NewRouter
type RouterConfig struct {
	Service        preprint.Service
	Logger         *slog.Logger
	MaxUploadBytes int64
	ServeFiles     bool // mount /api/files for stores that hand out bare keys
	EnableMetrics  bool // mount /metrics
}

// NewRouter builds the full HTTP surface of the registry
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.StripSlashes)

	r.Get("/api/health", HealthHandler(cfg.Service))
	r.Mount("/api/preprints", NewPreprintHandler(cfg.Service, cfg.MaxUploadBytes).Routes())
	if cfg.ServeFiles {
		r.Mount("/api/files", NewFilesHandler(cfg.Service).Routes())
	}
	if cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// HealthHandler reports ok when the catalog store answers
func HealthHandler(service preprint.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := service.Health(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "unavailable"})
			return
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}
