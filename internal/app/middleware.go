package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/odyssey-erp/odyssey-crm/internal/crmapi"
	"github.com/odyssey-erp/odyssey-crm/internal/observability"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the chain every route shares.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         cfg.Config == nil || !cfg.Config.IsProduction(),
	})

	timeout := 30 * time.Second
	var origins []string
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		origins = cfg.Config.CORSAllowedOrigins
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.Compress(5),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, func(next http.Handler) http.Handler {
			return cfg.Metrics.Middleware(next)
		})
	}
	return middlewares
}

// APIMiddleware guards operator routes: the caller's bearer token is passed
// through to the CRM backend.
func APIMiddleware(cfg *Config) []func(http.Handler) http.Handler {
	limit := 300
	if cfg != nil && cfg.APIRateLimit > 0 {
		limit = cfg.APIRateLimit
	}
	return []func(http.Handler) http.Handler{
		httprate.Limit(limit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP), httprate.WithLimitHandler(tooManyRequests)),
		crmapi.ForwardAuthorization,
	}
}

// DefaultPublicMaxBodyBytes caps signing submissions, which are mostly the
// base64 signature image.
const DefaultPublicMaxBodyBytes int64 = 2 << 20

// PublicMiddleware guards the signing link routes, which carry no credentials.
// The tighter limit slows token guessing.
func PublicMiddleware(cfg *Config) []func(http.Handler) http.Handler {
	limit := 20
	if cfg != nil && cfg.PublicRateLimit > 0 {
		limit = cfg.PublicRateLimit
	}
	maxBody := DefaultPublicMaxBodyBytes
	if cfg != nil && cfg.PublicMaxBodyBytes > 0 {
		maxBody = cfg.PublicMaxBodyBytes
	}
	return []func(http.Handler) http.Handler{
		httprate.Limit(limit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP), httprate.WithLimitHandler(tooManyRequests)),
		middleware.RequestSize(maxBody),
		stripAuthorization,
	}
}

func stripAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del("Authorization")
		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "Slow down and try again shortly.")
}

// RequestLogger logs one line per request. It logs the route pattern rather
// than the path so signing tokens stay out of the logs.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
