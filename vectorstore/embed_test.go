package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/option"
)

func TestHashEmbedder(t *testing.T) {
	h := HashEmbedder{Dims: 64}
	vecs, err := h.Embed(context.Background(), []string{"Spring AI retrieval", "spring ai RETRIEVAL!", "", "kubernetes operators"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 4 || len(vecs[0]) != 64 {
		t.Fatalf("unexpected shape %d x %d", len(vecs), len(vecs[0]))
	}

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("vector not normalised: |v|^2 = %v", norm)
	}
	if s := CosineSimilarity(vecs[0], vecs[1]); math.Abs(s-1) > 1e-5 {
		t.Errorf("case/punctuation should not matter, similarity = %v", s)
	}
	for _, v := range vecs[2] {
		if v != 0 {
			t.Fatal("empty text should embed to the zero vector")
		}
	}
	if h.Model() != "hash-64" || (HashEmbedder{}).Model() != "hash-256" {
		t.Errorf("model names: %q %q", h.Model(), HashEmbedder{}.Model())
	}
}

type countingEmbedder struct {
	calls atomic.Int32
	texts atomic.Int32
	err   error
}

func (c *countingEmbedder) Name() string  { return "counting" }
func (c *countingEmbedder) Model() string { return "counting-1" }

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	if c.err != nil {
		return nil, c.err
	}
	return HashEmbedder{Dims: 8}.Embed(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 16)
	if err != nil {
		t.Fatalf("NewCachedEmbedder: %v", err)
	}
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"a b", "c d"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := c.Embed(ctx, []string{"c d", "e f", "a b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.calls.Load() != 2 || inner.texts.Load() != 3 {
		t.Errorf("inner calls=%d texts=%d, want 2 and 3", inner.calls.Load(), inner.texts.Load())
	}
	if CosineSimilarity(first[0], second[2]) < 0.999 || CosineSimilarity(first[1], second[0]) < 0.999 {
		t.Error("cached vectors returned out of order")
	}

	if _, err := c.Embed(ctx, []string{"a b"}); err != nil || inner.calls.Load() != 2 {
		t.Errorf("fully cached call hit the backend (calls=%d, err=%v)", inner.calls.Load(), err)
	}

	inner.err = errors.New("backend down")
	if _, err := c.Embed(ctx, []string{"new text"}); err == nil {
		t.Error("expected backend error to propagate")
	}

	if _, err := NewCachedEmbedder(nil, 1); !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("nil inner: err = %v", err)
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	var req struct {
		Input      []string `json:"input"`
		Model      string   `json:"model"`
		Dimensions int      `json:"dimensions"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		// reversed order to check placement by index
		w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":1,"embedding":[0,1]},{"object":"embedding","index":0,"embedding":[1,0]}],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(EmbedderSettings{
		Model:      "text-embedding-3-small",
		APIKey:     "k",
		BaseURL:    server.URL + "/v1/",
		Dimensions: 2,
	}, option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder: %v", err)
	}
	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors = %v", vecs)
	}
	if req.Model != "text-embedding-3-small" || len(req.Input) != 2 || req.Dimensions != 2 {
		t.Errorf("request = %+v", req)
	}
}

func TestNewOpenAIEmbedder_Validation(t *testing.T) {
	if _, err := NewOpenAIEmbedder(EmbedderSettings{Model: "m"}); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewOpenAIEmbedder(EmbedderSettings{APIKey: "k"}); err == nil {
		t.Error("expected error for missing model")
	}
}
