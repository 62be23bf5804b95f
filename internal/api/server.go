// Package api exposes the HTTP interface consumed by the admin UI.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
	"github.com/LBtakeuti/fanfan-worker/internal/metrics"
	"github.com/LBtakeuti/fanfan-worker/internal/pipeline"
)

// Runner is the pipeline surface the server drives.
type Runner interface {
	Run(ctx context.Context, sourceURL string) (int, error)
	ExtractOnly(ctx context.Context, url string, allowAI bool) (pipeline.ExtractResult, error)
}

// Server wires HTTP handlers to the pipeline.
type Server struct {
	router chi.Router
	runner Runner
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, logger *zap.Logger) *Server {
	s := &Server{runner: runner, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	// Liveness must answer without touching the pipeline.
	r.Get("/health", s.health)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/run", s.run)
	r.Get("/extract", s.extract)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// run executes the full pipeline. Pipeline failures of every kind
// (cooldown, rate limit, robots, render) surface uniformly as a 200 with
// ok:false so the UI treats them as one error channel.
func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "url parameter required"})
		return
	}
	count, err := s.runner.Run(r.Context(), sourceURL)
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": count})
}

type extractResponse struct {
	Rows    []event.Record `json:"rows"`
	UsedAI  bool           `json:"usedAi"`
	AITried bool           `json:"aiTried"`
	Error   string         `json:"error,omitempty"`
}

// extract runs the preview mode. mode=normal forbids the AI strategy;
// mode=ai and mode=auto permit it as last resort.
func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeJSON(w, http.StatusBadRequest, extractResponse{Rows: []event.Record{}, Error: "url parameter required"})
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "auto"
	}
	allowAI := mode == "ai" || mode == "auto"

	res, err := s.runner.ExtractOnly(r.Context(), url, allowAI)
	if err != nil {
		s.writeJSON(w, http.StatusOK, extractResponse{Rows: []event.Record{}, Error: err.Error()})
		return
	}
	rows := res.Records
	if rows == nil {
		rows = []event.Record{}
	}
	s.writeJSON(w, http.StatusOK, extractResponse{Rows: rows, UsedAI: res.UsedAI, AITried: res.AITried})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

type requestIDKey struct{}

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
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
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
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
