// Package server exposes the listings pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/KaramelBytes/listings-eda/internal/analysis"
	"github.com/KaramelBytes/listings-eda/internal/cleaner"
	"github.com/KaramelBytes/listings-eda/internal/loader"
	"github.com/KaramelBytes/listings-eda/internal/logging"
)

// Config carries the knobs the API needs from the global configuration.
type Config struct {
	Settings        analysis.Settings
	Rules           cleaner.Rules
	SliderCap       float64
	DefaultPriceMax float64
	DataPaths       []string
	UploadMaxBytes  int64
	// RateLimitRPS <= 0 disables upload rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server wires the loader, the dataset registry and the HTTP routes.
type Server struct {
	cfg      Config
	loader   *loader.Loader
	datasets *datasets
	metrics  *metrics
	uploads  *rate.Limiter
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates a server. A nil logger discards output.
func New(cfg Config, ld *loader.Loader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 64 << 20
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 1
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	ds := newDatasets()
	s := &Server{
		cfg:      cfg,
		loader:   ld,
		datasets: ds,
		metrics:  newMetrics(ld, ds),
		validate: v,
		logger:   logger.With("component", "server"),
	}
	if cfg.RateLimitRPS > 0 {
		s.uploads = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestContext)
	r.Use(s.logRequests)
	r.Use(s.recoverer)
	r.Use(s.metrics.instrument)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/sources", s.sources)
		r.Get("/datasets", s.listDatasets)
		r.With(s.rateLimit).Post("/datasets", s.upload)
		r.With(s.rateLimit).Post("/datasets/path", s.loadPath)
		r.Route("/datasets/{id}", func(r chi.Router) {
			r.Use(s.datasetCtx)
			r.Delete("/", s.deleteDataset)
			r.Get("/options", s.options)
			r.Post("/dashboard", s.dashboard)
			r.Post("/view", s.view)
			r.Post("/charts/{kind}", s.chart)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// requestContext copies chi's request id into the logging context.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id != "" {
			w.Header().Set("X-Request-ID", id)
			r = r.WithContext(logging.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				s.logger.ErrorContext(r.Context(), "panic recovered", "panic", rvr, "path", r.URL.Path)
				renderError(w, r, ErrInternalServer)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.uploads != nil && !s.uploads.Allow() {
			s.logger.WarnContext(r.Context(), "rate limit exceeded", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			w.Header().Set("Retry-After", "1")
			renderError(w, r, ErrRateLimitExceeded)
			return
		}
		next.ServeHTTP(w, r)
	})
}
