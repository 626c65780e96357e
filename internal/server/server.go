package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/Gautam825406/Finance-crime-detection/internal/config"
	"github.com/Gautam825406/Finance-crime-detection/internal/observability"
	"github.com/Gautam825406/Finance-crime-detection/internal/pipeline"
	"github.com/Gautam825406/Finance-crime-detection/internal/report"
)

// ---------------------------------------------------------------------------
// HTTP Server — the service surface of the detection pipeline
// POST /api/v1/analyze, GET /api/v1/reports/latest, /healthz, /metrics,
// GET /api/v1/stream (websocket)
// ---------------------------------------------------------------------------

// Server owns the router, the analysis runner and the latest report.
type Server struct {
	cfg     config.ServerConfig
	reports config.ReportsConfig
	runner  *pipeline.Runner
	metrics *observability.Registry
	health  *observability.Health
	hub     *Hub

	httpServer *http.Server
	router     *chi.Mux

	mu     sync.RWMutex
	latest *report.Report
}

// New assembles the server with its routes. metrics and health must be the
// same instances the runner records into.
func New(cfg *config.Config, runner *pipeline.Runner, metrics *observability.Registry, health *observability.Health) *Server {
	router := chi.NewRouter()

	s := &Server{
		cfg:     cfg.Server,
		reports: cfg.Reports,
		runner:  runner,
		metrics: metrics,
		health:  health,
		hub:     NewHub(),
		router:  router,
		httpServer: &http.Server{
			Addr:         cfg.Server.ListenAddr,
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealth)
	router.Method("GET", "/metrics", observability.NewPrometheusExporter(metrics))
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/reports/latest", s.handleLatestReport)
		r.Get("/stream", s.handleStream)
	})

	return s
}

// Router exposes the mux, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts serving. It blocks until the listener fails or Shutdown is
// called; http.ErrServerClosed is swallowed.
func (s *Server) Run() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("server: listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setLatest(r *report.Report) {
	s.mu.Lock()
	s.latest = r
	s.mu.Unlock()
}

func (s *Server) getLatest() *report.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// requestLogger logs each request with zerolog at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("server: request")
	})
}
