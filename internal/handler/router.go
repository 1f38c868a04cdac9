package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/overflow-admin/internal/metrics"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router handles HTTP routing for the admin API.
type Router struct {
	moderationHandler *ModerationHandler
	contentHandler    *ContentHandler
	authMiddleware    func(http.Handler) http.Handler
	health            HealthChecker
	metrics           *metrics.Metrics
	logger            zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	ModerationHandler *ModerationHandler
	ContentHandler    *ContentHandler
	AuthMiddleware    func(http.Handler) http.Handler
	Health            HealthChecker
	Metrics           *metrics.Metrics
	Logger            zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		moderationHandler: config.ModerationHandler,
		contentHandler:    config.ContentHandler,
		authMiddleware:    config.AuthMiddleware,
		health:            config.Health,
		metrics:           config.Metrics,
		logger:            config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)

	// Health checks (no auth)
	r.Get("/health", rt.handleHealth)
	r.Get("/ready", rt.handleReady)

	r.Route("/api", func(api chi.Router) {
		if rt.authMiddleware != nil {
			api.Use(rt.authMiddleware)
		}
		if rt.moderationHandler != nil {
			rt.moderationHandler.RegisterRoutes(api)
		}
		if rt.contentHandler != nil {
			rt.contentHandler.RegisterRoutes(api)
		}
	})

	return r
}

// handleHealth handles liveness requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports ready once the database answers.
func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.health.Health(ctx); err != nil {
			rt.logger.Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// requestLogger logs each request and records it in metrics under its route
// pattern.
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			duration := time.Since(start)

			if rt.metrics != nil {
				rt.metrics.RecordRequest(r.Method, route, status, duration)
			}

			rt.logger.Debug().
				Str("method", r.Method).
				Str("route", route).
				Str("request_id", middleware.GetReqID(r.Context())).
				Int("status", status).
				Dur("duration", duration).
				Msg("request handled")
		}()

		next.ServeHTTP(ww, r)
	})
}
