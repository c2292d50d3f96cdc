// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/analyzer"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/classifier"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/config"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 16 << 10

// Analyzer is satisfied by *analyzer.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, raw string) (*analyzer.Result, error)
}

// ModelInfo is satisfied by *classifier.Classifier.
type ModelInfo interface {
	Mode() classifier.Mode
	Degraded() bool
	Reason() string
}

// Cache is satisfied by *cache.ResultCache.
type Cache interface {
	Get(ctx context.Context, normalizedURL string) (*analyzer.Result, bool)
	Set(ctx context.Context, res *analyzer.Result)
}

type Server struct {
	analyzer Analyzer
	model    ModelInfo
	cache    Cache
	limiter  *rate.Limiter
	cfg      config.ServerConfig
	log      *logger.Logger
}

// New wires the handlers. c may be nil to run without a cache.
func New(cfg config.ServerConfig, a Analyzer, model ModelInfo, c Cache, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return &Server{
		analyzer: a,
		model:    model,
		cache:    c,
		limiter:  rate.NewLimiter(limit, burst),
		cfg:      cfg,
		log:      log.WithComponent("server"),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(api chi.Router) {
		api.Use(s.rateLimit)
		api.Post("/analyze", s.handleAnalyze)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Server starting", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("Server stopped")
	return nil
}

type analyzeRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON like {\"url\": \"https://example.com\"}")
		return
	}

	u, err := analyzer.ParseURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.cache != nil {
		if res, ok := s.cache.Get(r.Context(), u.String()); ok {
			w.Header().Set("X-Cache", "HIT")
			writeJSON(w, http.StatusOK, res)
			return
		}
	}

	res, err := s.analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		if analyzer.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Errorw("Analyze returned an unexpected error", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to analyze this URL")
		return
	}

	if s.cache != nil {
		s.cache.Set(r.Context(), res)
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, res)
}

type healthResponse struct {
	Status      string          `json:"status"`
	Model       classifier.Mode `json:"model"`
	Degraded    bool            `json:"degraded"`
	ModelReason string          `json:"model_reason,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.model != nil {
		resp.Model = s.model.Mode()
		resp.Degraded = s.model.Degraded()
		resp.ModelReason = s.model.Reason()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Infow("HTTP request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
