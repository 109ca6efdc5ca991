// Package api exposes the HTTP trigger surface for the sentinel service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/awbwtools/turn-sentinel/internal/checker"
	"github.com/awbwtools/turn-sentinel/internal/config"
	"github.com/awbwtools/turn-sentinel/internal/metrics"
)

// CycleRunner runs one check cycle. Satisfied by *checker.Runner.
type CycleRunner interface {
	RunCycle(ctx context.Context) (checker.Result, error)
}

// Server wires HTTP handlers to the cycle runner. The external scheduler
// POSTs /run once per cadence; a non-2xx answer tells it to retry on the
// next tick.
type Server struct {
	router chi.Router
	runner CycleRunner
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner CycleRunner, cfg config.Config, logger *zap.Logger) *Server {
	metrics.Init()
	s := &Server{
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	r.Use(metrics.Middleware)
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/run", s.run)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// runResponse summarizes what the cycle did, in the shape schedulers and
// humans poke at.
type runResponse struct {
	OK              bool   `json:"ok"`
	Changed         bool   `json:"changed"`
	Count           int    `json:"count"`
	LoggedIn        bool   `json:"logged_in"`
	Posted          bool   `json:"posted"`
	Reauthenticated bool   `json:"reauthenticated"`
	Fingerprint     string `json:"fingerprint"`
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.RunCycle(r.Context())
	if err != nil {
		metrics.ObserveCycle("failed")
		s.logger.Error("Cycle failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveCycle("succeeded")
	metrics.SetPendingGames(res.Count)
	writeJSON(w, http.StatusOK, runResponse{
		OK:              true,
		Changed:         res.Changed,
		Count:           res.Count,
		LoggedIn:        true,
		Posted:          res.Notified,
		Reauthenticated: res.Reauthenticated,
		Fingerprint:     res.Fingerprint,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("Request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("Write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
