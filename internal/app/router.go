package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-crm/internal/observability"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/preferences"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/preview"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/signature"
	"github.com/odyssey-erp/odyssey-crm/jobs"
)

// HealthCheck probes one dependency for /readyz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Metrics            *observability.Metrics
	QuotesHandler      *quotations.Handler
	SignatureHandler   *signature.Handler
	PreviewHandler     *preview.Handler
	PreferencesHandler *preferences.Handler
	JobHandler         *jobs.Handler
	HealthChecks       []HealthCheck
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(RequestLogger(params.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", readiness(params.Logger, params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			for _, mw := range APIMiddleware(params.Config) {
				r.Use(mw)
			}
			if params.QuotesHandler != nil {
				params.QuotesHandler.MountRoutes(r)
			}
			if params.SignatureHandler != nil {
				params.SignatureHandler.MountRoutes(r)
			}
			if params.PreviewHandler != nil {
				params.PreviewHandler.MountRoutes(r)
			}
			if params.PreferencesHandler != nil {
				params.PreferencesHandler.MountRoutes(r)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
		if params.SignatureHandler != nil {
			r.Group(func(r chi.Router) {
				for _, mw := range PublicMiddleware(params.Config) {
					r.Use(mw)
				}
				params.SignatureHandler.MountPublicRoutes(r)
			})
		}
	})

	return r
}

func readiness(logger *slog.Logger, checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		failed := make([]bool, len(checks))
		g, gctx := errgroup.WithContext(ctx)
		for i, check := range checks {
			i, check := i, check
			g.Go(func() error {
				if err := check.Check(gctx); err != nil {
					logger.Warn("readiness check failed", slog.String("check", check.Name), slog.Any("error", err))
					failed[i] = true
				}
				return nil
			})
		}
		_ = g.Wait()

		status := http.StatusOK
		for i, check := range checks {
			results[check.Name] = "ok"
			if failed[i] {
				results[check.Name] = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}
		httpx.JSON(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
	}
}
