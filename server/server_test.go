package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai_blog_writer/generator"
	"ai_blog_writer/rag"
)

type fakeWriter struct {
	res    generator.GenerationResult
	err    error
	topics []string
}

func (f *fakeWriter) Refine(ctx context.Context, topic string) (generator.GenerationResult, error) {
	f.topics = append(f.topics, topic)
	if f.err != nil {
		return generator.GenerationResult{}, f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return generator.GenerationResult{}, errors.New("missing request deadline")
	}
	return f.res, nil
}

type fakeAnswerer struct {
	answer string
	err    error
}

func (f fakeAnswerer) ProcessQuery(_ context.Context, q string) (string, error) {
	if strings.TrimSpace(q) == "" {
		return "", rag.ErrEmptyQuery
	}
	return f.answer, f.err
}

func newTestServer(t *testing.T, w BlogWriter, a Answerer, opts Options) http.Handler {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv, err := New(w, a, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv.Routes()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleBlog(t *testing.T) {
	w := &fakeWriter{res: generator.GenerationResult{
		ID:             "run-1",
		Topic:          "Go generics",
		Content:        "GO GENERICS\n\nType parameters arrived in 1.18.",
		Iterations:     3,
		Approved:       true,
		Usage:          generator.Usage{PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140},
		EditorFeedback: []string{"needs more examples", "shorter intro"},
		Model:          "Azure OpenAI",
	}}
	h := newTestServer(t, w, nil, Options{})

	rec := get(t, h, "/api/blog?topic=Go+generics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["topic"] != "Go generics" || body["content"] != w.res.Content {
		t.Errorf("body = %v", body)
	}
	meta := body["metadata"].(map[string]any)
	if meta["iterations"] != float64(3) || meta["approved"] != true || meta["totalTokensUsed"] != float64(140) || meta["model"] != "Azure OpenAI" {
		t.Errorf("metadata = %v", meta)
	}
	fb := meta["editorFeedback"].([]any)
	if len(fb) != 2 {
		t.Fatalf("editorFeedback = %v", fb)
	}
	second := fb[1].(map[string]any)
	if second["iteration"] != float64(2) || second["feedback"] != "shorter intro" {
		t.Errorf("feedback entry = %v", second)
	}
	usage := meta["tokenUsage"].(map[string]any)
	if usage["promptTokens"] != float64(100) || usage["completionTokens"] != float64(40) || usage["totalTokens"] != float64(140) {
		t.Errorf("tokenUsage = %v", usage)
	}
	if _, ok := body["html"]; ok {
		t.Error("html should only be present with format=html")
	}
}

func TestHandleBlog_OmitsEmptyMetadata(t *testing.T) {
	w := &fakeWriter{res: generator.GenerationResult{ID: "r", Content: "X", Iterations: 1, Approved: true}}
	h := newTestServer(t, w, nil, Options{})

	rec := get(t, h, "/api/blog?topic=x")
	var body struct {
		Metadata map[string]json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"editorFeedback", "tokenUsage", "model"} {
		if _, ok := body.Metadata[key]; ok {
			t.Errorf("%s should be omitted, metadata = %s", key, rec.Body)
		}
	}
	for _, key := range []string{"iterations", "approved", "totalTokensUsed"} {
		if _, ok := body.Metadata[key]; !ok {
			t.Errorf("%s missing", key)
		}
	}
}

func TestHandleBlog_HTMLAndRuns(t *testing.T) {
	w := &fakeWriter{res: generator.GenerationResult{ID: "abc", Content: "TITLE\n\nFirst paragraph.\n\n<script>x</script>", Iterations: 1}}
	h := newTestServer(t, w, nil, Options{})

	rec := get(t, h, "/api/blog?topic=t&format=html")
	var resp BlogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.HTML, "<p>First paragraph.</p>") || strings.Contains(resp.HTML, "<script>") {
		t.Errorf("html = %q", resp.HTML)
	}

	rec = get(t, h, "/api/blog/runs/abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("runs status = %d", rec.Code)
	}
	var stored BlogResponse
	json.Unmarshal(rec.Body.Bytes(), &stored)
	if stored.ID != "abc" || stored.Content != resp.Content {
		t.Errorf("stored = %+v", stored)
	}

	if rec := get(t, h, "/api/blog/runs/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d", rec.Code)
	}
}

func TestHandleBlog_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty topic", generator.ErrEmptyTopic, http.StatusBadRequest},
		{"backend", errors.New("upstream 500"), http.StatusBadGateway},
		{"empty draft", generator.ErrEmptyDraft, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeWriter{err: tt.err}, nil, Options{})
			if rec := get(t, h, "/api/blog?topic=x"); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleBlog_MockEndToEnd(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	agent, _ := generator.NewAgent(generator.MockLLM{}, logger)
	refiner, _ := generator.NewRefiner(agent, generator.DefaultOptions(), logger)
	h := newTestServer(t, refiner, nil, Options{RequestTimeout: time.Second})

	rec := get(t, h, "/api/blog?topic=Spring+cleaning")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp BlogResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Metadata.Approved || resp.Metadata.Iterations != 2 || len(resp.Metadata.EditorFeedback) != 1 {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
	if resp.Metadata.Model != "mock" || resp.Metadata.TokenUsage == nil {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
	rec = get(t, h, "/api/blog?topic=++Spring+cleaning++")
	var padded BlogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &padded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if padded.Topic != "Spring cleaning" {
		t.Errorf("topic = %q, want the trimmed topic the loop ran on", padded.Topic)
	}
	if rec := get(t, h, "/api/blog?topic=+"); rec.Code != http.StatusBadRequest {
		t.Errorf("blank topic status = %d", rec.Code)
	}
}

func TestHandleRAG(t *testing.T) {
	h := newTestServer(t, &fakeWriter{}, fakeAnswerer{answer: "Spring AI is a framework."}, Options{})
	rec := get(t, h, "/api/rag?query=what")
	if rec.Code != http.StatusOK || rec.Body.String() != "Spring AI is a framework." {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if rec := get(t, h, "/api/rag"); rec.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d", rec.Code)
	}

	h = newTestServer(t, &fakeWriter{}, nil, Options{})
	if rec := get(t, h, "/api/rag?query=x"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d", rec.Code)
	}
}

func TestHealthAndMethods(t *testing.T) {
	h := newTestServer(t, &fakeWriter{}, nil, Options{})
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/blog?topic=x", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	defer rl.Stop()
	w := &fakeWriter{res: generator.GenerationResult{ID: "x", Content: "X"}}
	h := newTestServer(t, w, nil, Options{RateLimiter: rl})

	for i := 0; i < 2; i++ {
		if rec := get(t, h, "/api/blog?topic=x"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := get(t, h, "/api/blog?topic=x")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("status = %d", rec.Code)
	}
	if len(w.topics) != 2 {
		t.Errorf("limited request reached the writer: %d calls", len(w.topics))
	}
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz should not be limited, status = %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	var disabled *RateLimiter
	if !disabled.Allow("k") || NewRateLimiter(0, 0, nil).Enabled() {
		t.Error("nil or zero-rate limiter should allow everything")
	}

	var logs bytes.Buffer
	rl := NewRateLimiter(60, 1, slog.New(slog.NewTextHandler(&logs, nil)))
	defer rl.Stop()
	if !rl.Allow("a") || rl.Allow("a") {
		t.Error("burst of 1 not enforced")
	}
	if !rl.Allow("b") {
		t.Error("keys should be limited independently")
	}
	if !strings.Contains(logs.String(), "rate limited") || !strings.Contains(logs.String(), "key=a") {
		t.Errorf("rejection not logged to the injected logger: %q", logs.String())
	}
	rl.cleanup(time.Now().Add(time.Minute))
	if !rl.Allow("a") {
		t.Error("cleanup should drop stale limiters")
	}
	rl.Stop()
	rl.Stop()
}

func TestNew_RequiresWriter(t *testing.T) {
	if _, err := New(nil, nil, Options{}); err == nil {
		t.Fatal("expected error")
	}
}
