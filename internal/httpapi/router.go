// Package httpapi is the HTTP surface: a go-chi router exposing the scan
// lifecycle, source management, and read-only catalog query contracts the
// core exports to dashboard and streaming collaborators.
//
// Grounded on marmos91-dittofs's pkg/controlplane/api.NewRouter: the same
// middleware ordering (RequestID, RealIP, a custom request-logging
// middleware, Recoverer, Timeout) and the same one-handler-file-per-resource
// layout, generalized from dittofs's JWT-protected admin API to this
// system's single shared-secret AuthGuard over a much smaller route set.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/nasindex/nasindex/internal/catalog"
	"github.com/nasindex/nasindex/internal/lifecycle"
	"github.com/nasindex/nasindex/internal/pathresolve"
	"github.com/nasindex/nasindex/internal/source"
	"github.com/nasindex/nasindex/internal/telemetry"
)

// RunScanFunc matches scanner.Scanner.Run's signature exactly, so a daemon
// wires Deps.RunScan to a bound method value (scn.Run) with no adapter.
type RunScanFunc func(ctx context.Context, ctl *lifecycle.Controller, scanLogID int64, full bool)

// Deps bundles every collaborator the router's handlers need.
type Deps struct {
	Store     *catalog.Store
	Sources   *source.Manager
	Resolver  *pathresolve.Resolver
	Lifecycle *lifecycle.Controller
	RunScan   RunScanFunc
	Metrics   *telemetry.Metrics
	Log       *logrus.Entry
	AuthToken string
}

// NewRouter builds the chi router for the given dependencies.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	h := &handlers{deps: d}

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthGuard(d.AuthToken))

		r.Route("/scan", func(r chi.Router) {
			r.Get("/status", h.scanStatus)
			r.Post("/start", h.scanStart)
			r.Post("/cancel", h.scanCancel)
			r.Get("/history", h.scanHistory)
		})

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", h.listSources)
			r.Post("/", h.addSource)
			r.Get("/status", h.sourcesStatus)
			r.Delete("/{label}", h.removeSource)
		})

		r.Get("/resolve", h.resolvePath)
		r.Get("/search", h.search)
		r.Get("/browse", h.browse)

		r.Route("/insights", func(r chi.Router) {
			r.Get("/dedup", h.insightsDedup)
			r.Get("/tags", h.insightsTags)
		})
	})

	return r
}

// requestLogger logs one line per completed request, grounded on
// marmos91-dittofs's router.requestLogger: request-id/method/path/status/
// duration fields, healthcheck-style paths left for callers to route around
// rather than special-cased here since this surface has no health endpoint.
func requestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
			}).Info("http request completed")
		})
	}
}

type handlers struct {
	deps Deps
}
