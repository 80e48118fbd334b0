// Package server exposes the blog writer and the RAG service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ai_blog_writer/generator"
	"ai_blog_writer/rag"
)

// BlogWriter runs one writer/editor refinement for a topic.
type BlogWriter interface {
	Refine(ctx context.Context, topic string) (generator.GenerationResult, error)
}

// Answerer answers a free-form question.
type Answerer interface {
	ProcessQuery(ctx context.Context, query string) (string, error)
}

// Options configures a Server. Zero values pick the defaults.
type Options struct {
	RequestTimeout time.Duration
	RunCacheSize   int
	// RateLimiter guards the generation endpoints; nil disables limiting.
	RateLimiter *RateLimiter
	Logger      *slog.Logger
}

type Server struct {
	writer   BlogWriter
	answerer Answerer
	runs     *runStore
	limiter  *RateLimiter
	timeout  time.Duration
	logger   *slog.Logger
}

// New builds a Server. answerer may be nil, in which case /api/rag reports 503.
func New(writer BlogWriter, answerer Answerer, opts Options) (*Server, error) {
	if writer == nil {
		return nil, errors.New("blog writer required")
	}
	runs, err := newRunStore(opts.RunCacheSize)
	if err != nil {
		return nil, err
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		writer:   writer,
		answerer: answerer,
		runs:     runs,
		limiter:  opts.RateLimiter,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /api/blog", s.limit(http.HandlerFunc(s.handleBlog)))
	mux.HandleFunc("GET /api/blog/runs/{id}", s.handleRun)
	mux.Handle("GET /api/rag", s.limit(http.HandlerFunc(s.handleRAG)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s.logMiddleware(mux)
}

// --- Handlers ---

func (s *Server) handleBlog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.writer.Refine(ctx, r.URL.Query().Get("topic"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := NewBlogResponse(res.Topic, res)
	if r.URL.Query().Get("format") == "html" {
		out, err := renderHTML(resp.Content)
		if err != nil {
			s.logger.Warn("render html failed", "id", resp.ID, "error", err)
		} else {
			resp.HTML = out
		}
	}
	s.runs.set(resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRAG(w http.ResponseWriter, r *http.Request) {
	if s.answerer == nil {
		http.Error(w, "retrieval is not configured", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	answer, err := s.answerer.ProcessQuery(ctx, r.URL.Query().Get("query"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(answer))
}

// --- Helpers ---

func statusFor(err error) int {
	switch {
	case errors.Is(err, generator.ErrEmptyTopic), errors.Is(err, rag.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
