// Package httpapi implements the artifact-serving HTTP surface: request
// parsing, format-version negotiation, the cache/queue/transcoder
// decision table, and the ambient liveness/readiness/metrics routes.
package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/symcached/symcached/internal/logger"
	"github.com/symcached/symcached/internal/metrics"
	"github.com/symcached/symcached/pkg/cache"
	"github.com/symcached/symcached/pkg/queue"
	"github.com/symcached/symcached/pkg/symver"
	"github.com/symcached/symcached/pkg/transcoder"
)

// Deps are the collaborators the router wires into the handler.
type Deps struct {
	Cache        *cache.Repository
	Orchestrator *transcoder.Orchestrator
	Queue        *queue.Queue
	Metrics      *metrics.Metrics

	MinFormatVersion symver.Version
	AsyncThreshold   symver.Version
	TranscoderVersion symver.Version

	RequestTimeout time.Duration

	// TranscoderBinaryPath backs /readyz's transcoder-binary check.
	TranscoderBinaryPath string

	// Auth optionally gates the artifact routes behind bearer-token
	// validation. The ambient /healthz, /readyz, and /metrics routes are
	// never gated by it.
	Auth AuthConfig
}

// NewRouter builds the chi router: request ID, real IP, structured
// request logging, panic recovery, and a per-request timeout distinct
// from (larger than) any single transcode's own budget, since §4.1's
// synchronous path may legitimately take minutes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}

	handler := &Handler{deps: deps}

	r.Get("/healthz", handler.Liveness)
	r.Get("/readyz", handler.Readiness)

	r.Group(func(artifacts chi.Router) {
		artifacts.Use(bearerAuth(deps.Auth))
		artifacts.Get("/v{major}.{minor}.{patch}/{name}/{id}", handler.ServeArtifact)
		artifacts.Get("/v{major}.{minor}.{patch}/{name}/{id}/{age}", handler.ServeArtifact)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("http request completed",
			logger.RequestID(requestID),
			logger.HTTPMethod(r.Method),
			logger.HTTPPath(r.URL.Path),
			logger.HTTPStatus(ww.Status()),
			logger.DurationMs(float64(time.Since(start).Milliseconds())),
		)
	})
}

// NewMetricsRouter is mounted on a separate listener so scraping never
// contends with the artifact listener's connection pool.
func NewMetricsRouter(handler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", handler)
	return r
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
