// Package api serves flow metrics over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/huangsam/flowlens/core"
	"github.com/huangsam/flowlens/internal/contract"
	"go.uber.org/zap"
)

// Server exposes the engine over HTTP. Every computation is recorded in the run store
// when one is configured.
type Server struct {
	cfg      *contract.Config
	deps     core.Deps
	catalog  contract.MetricCatalog
	runs     contract.RunStore
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewServer creates a server. cfg supplies the defaults for requests that omit
// the organization, time zone or granularity. runs may be nil.
func NewServer(cfg *contract.Config, deps core.Deps, catalog contract.MetricCatalog, runs contract.RunStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		deps:     deps,
		catalog:  catalog,
		runs:     runs,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("api"),
		now:      time.Now,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	timeout := s.cfg.ServeTimeout
	if timeout <= 0 {
		timeout = contract.DefaultServeTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", s.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics", s.listMetrics)
		r.Get("/metrics/{metric}", s.computeMetric)
		r.Get("/metrics/{metric}/details", s.metricDetails)
		r.Post("/dashboard", s.dashboard)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ServeAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
