// Package server wires the snapshot proxy routes and runs the listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/static-snapshot/internal/core/config"
	"github.com/mohammed-shakir/static-snapshot/internal/core/health"
	middleware "github.com/mohammed-shakir/static-snapshot/internal/core/middleware"
	"github.com/mohammed-shakir/static-snapshot/internal/core/router"
)

// Deps are the collaborators behind the routes. Events and Ready may be
// empty. Metrics is mounted at MetricsPath, "/metrics" by default, and
// the route is absent when Metrics is nil.
type Deps struct {
	Snapshots   router.Snapshotter
	Events      router.EventSink
	Ready       map[string]health.Pinger
	Metrics     http.Handler
	MetricsPath string
}

// NewRouter builds the chi router without starting a listener.
func NewRouter(logger *slog.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(2*time.Second, deps.Ready))
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, deps.Metrics)
	}
	r.Post(router.RouteURL, router.HandleURL(logger, deps.Snapshots))
	r.Post(router.RouteSnapshot, router.HandleSnapshot(logger, deps.Snapshots, deps.Events))
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(logger, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.HTTPTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
