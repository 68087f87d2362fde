// Package httptransport assembles the HTTP surface: the shared middleware
// chain, feature handlers, health, and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sealproof/internal/platform/metrics"
	"sealproof/internal/platform/middleware"
	"sealproof/pkg/platform/httputil"
)

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports dependency liveness for /healthz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs.
type Deps struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Handlers   []Registrar
	Health     map[string]HealthChecker
	APITimeout time.Duration
}

// NewRouter builds the full server handler.
func NewRouter(deps Deps) http.Handler {
	timeout := deps.APITimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(deps.Metrics))

	for _, h := range deps.Handlers {
		h.Register(r)
	}

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
