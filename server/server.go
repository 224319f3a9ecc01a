// Package server exposes the search and verification pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/metrics"
)

// Pipeline is the set of operations the HTTP surface serves.
type Pipeline interface {
	Search(ctx context.Context, query, region string, opts core.SearchOptions) ([]core.RankedCandidate, error)
	VerifyPrograms(ctx context.Context, records []core.Record, query string, history []core.Turn) ([]core.VerifiedRecord, error)
	VerifyCareers(ctx context.Context, sets []core.CareerCodeSet, query string, history []core.Turn, programContext string) ([]core.CareerMapping, error)
	Regions(ctx context.Context) ([]string, error)
}

// ErrPipelineRequired is returned when a Server is created without a pipeline.
var ErrPipelineRequired = errors.New("pipeline is required")

const (
	defaultRequestTimeout  = 2 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
	maxBodyBytes           = 4 << 20
)

// Server routes HTTP requests to a Pipeline.
type Server struct {
	pipeline        Pipeline
	metrics         *metrics.Recorder
	logger          *slog.Logger
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics exposes recorder on /metrics.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Server) error {
		s.metrics = recorder
		return nil
	}
}

// WithRequestTimeout bounds the pipeline work done for one request.
// Default is 2 minutes.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d > 0 {
			s.requestTimeout = d
		}
		return nil
	}
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests.
// Default is 10 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d > 0 {
			s.shutdownTimeout = d
		}
		return nil
	}
}

// New creates a Server over pipeline.
func New(pipeline Pipeline, opts ...Option) (*Server, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	s := &Server{
		pipeline:        pipeline,
		logger:          slog.Default(),
		requestTimeout:  defaultRequestTimeout,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "server")
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/regions", s.handleRegions)
		r.Post("/search", s.handleSearch)
		r.Post("/verify/programs", s.handleVerifyPrograms)
		r.Post("/verify/careers", s.handleVerifyCareers)
	})
	return r
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.requestTimeout + 15*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
