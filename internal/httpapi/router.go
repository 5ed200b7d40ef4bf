// Package httpapi wires the chi router and graceful-shutdown server on
// top of internal/httpapi/handlers.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanin2004/orbis-file-storage/internal/httpapi/handlers"
	"github.com/vanin2004/orbis-file-storage/internal/logger"
	"github.com/vanin2004/orbis-file-storage/internal/metrics"
)

// NewRouter builds the chi router for the file storage API.
//
// Routes:
//   - GET    /health                  liveness probe
//   - GET    /health/ready            readiness probe
//   - POST   /files                   create a file
//   - GET    /files                   list files
//   - GET    /files/search            search by path prefix
//   - GET    /files/meta/by-path      resolve metadata by the uniqueness triple
//   - POST   /files/synchronise       reconcile blob storage against metadata
//   - GET    /files/{id}/meta         get metadata by id
//   - GET    /files/{id}              get file bytes by id
//   - PUT    /files/{id}              update metadata
//   - PATCH  /files/{id}              update metadata
//   - DELETE /files/{id}              delete a file
func NewRouter(deps handlers.Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(requestMetrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.MetaStore)
	fileHandler := handlers.NewFileHandler(deps)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Route("/files", func(r chi.Router) {
		r.Post("/", fileHandler.Create)
		r.Get("/", fileHandler.List)
		r.Get("/search", fileHandler.Search)
		r.Get("/meta/by-path", fileHandler.GetByPath)
		r.Post("/synchronise", fileHandler.Synchronise)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/meta", fileHandler.GetMeta)
			r.Get("/", fileHandler.GetBytes)
			r.Put("/", fileHandler.Update)
			r.Patch("/", fileHandler.Update)
			r.Delete("/", fileHandler.Delete)
		})
	})

	return r
}

// requestMetrics records request count and latency per chi route
// pattern, falling back to the fixed label "unmatched" when no pattern
// matched (e.g. 404s) to keep the label cardinality bounded.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
	})
}

// requestLogger logs request start at DEBUG and completion at INFO,
// mirroring the field set used elsewhere in the service.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", logger.Duration(start),
		)
	})
}
