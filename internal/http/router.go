// Package httpapi composes the module handlers into the full HTTP surface:
// CORS, request metadata, logging, metrics, the /api mount and the
// operational endpoints.
package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scubaai/internal/ai"
	authhandler "scubaai/internal/auth/handler"
	chathandler "scubaai/internal/chat/handler"
	instrhandler "scubaai/internal/instruction/handler"
	"scubaai/internal/platform/metrics"
	redisplatform "scubaai/internal/platform/redis"
	settingshandler "scubaai/internal/settings/handler"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/httputil"
	authmw "scubaai/pkg/platform/middleware/auth"
	"scubaai/pkg/platform/middleware/logging"
	"scubaai/pkg/platform/middleware/metadata"
	"scubaai/pkg/platform/middleware/request"
)

// ModelLister enumerates the upstream provider's models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ai.Model, error)
}

// Deps carries everything the router composes. DB and Redis may be nil; the
// health endpoint skips whatever is absent.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	DB    *sql.DB
	Redis *redisplatform.Client

	CORSOrigin string

	Auth         *authhandler.Handler
	Chat         *chathandler.Handler
	Instructions *instrhandler.Handler
	Settings     *settingshandler.Handler

	Models       ModelLister
	JWTValidator authmw.JWTValidator
	Revocations  authmw.TokenRevocationChecker
}

// New builds the full router.
func New(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(logging.Recovery(deps.Logger))
	r.Use(logging.Logger(deps.Logger))
	r.Use(requestMetrics(deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{deps.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		deps.Auth.Register(r)
		deps.Chat.Register(r)
		r.Route("/settings", func(r chi.Router) {
			deps.Instructions.Register(r)
			deps.Settings.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(deps.JWTValidator, deps.Revocations, deps.Logger))
			r.Get("/models", modelsHandler(deps))
		})
	})

	return r
}

// requestMetrics observes request latency labelled by chi route pattern and
// status. Pattern, not path, so conversation IDs do not explode cardinality.
func requestMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.RequestDuration.WithLabelValues(route, strconv.Itoa(ww.Status())).
				Observe(time.Since(start).Seconds())
		})
	}
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := map[string]string{"status": "ok"}

		if deps.DB != nil {
			checks["database"] = "ok"
			if err := deps.DB.PingContext(ctx); err != nil {
				checks["database"] = "unavailable"
				checks["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		if deps.Redis != nil {
			checks["redis"] = "ok"
			if err := deps.Redis.Health(ctx); err != nil {
				checks["redis"] = "unavailable"
				checks["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		httputil.WriteJSON(w, status, checks)
	}
}

func modelsHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := deps.Models.ListModels(r.Context())
		if err != nil {
			deps.Logger.ErrorContext(r.Context(), "failed to list provider models",
				"request_id", request.GetRequestID(r.Context()),
				"error", err,
			)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUpstream, "model listing failed"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, models)
	}
}
