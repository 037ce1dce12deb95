package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthgate/internal/platform/middleware"
	"healthgate/internal/transport/http/shared"
)

// HealthChecker reports the health of one backing resource.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Registrar is implemented by module handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// Config carries everything the router needs; handlers stay decoupled from
// each other.
type Config struct {
	Logger       *slog.Logger
	JWTValidator middleware.JWTValidator
	Handlers     []Registrar
	Health       []HealthChecker
}

// NewRouter assembles the middleware chain and mounts all endpoints.
// Everything except health and metrics sits behind bearer auth.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth(cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.ContentTypeJSON)
		authed.Use(middleware.RequireAuth(cfg.JWTValidator, cfg.Logger))
		for _, h := range cfg.Handlers {
			h.Register(authed)
		}
	})

	return r
}

func handleHealth(checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range checkers {
			if c == nil {
				continue
			}
			if err := c.Health(r.Context()); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
