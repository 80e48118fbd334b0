package vectorstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"), HashEmbedder{Dims: 128})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_AddAndSearch(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "1", Content: "golang channels and goroutines", Metadata: map[string]any{"question": "Go concurrency?"}},
		{ID: "2", Content: "postgres vector similarity search", Metadata: map[string]any{"question": "pgvector?"}},
		{ID: "3", Content: "baking sourdough bread at home"},
	}
	if err := s.Add(ctx, docs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n, err := s.Count(ctx); err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	got, err := s.SimilaritySearch(ctx, SearchRequest{Query: "postgres vector similarity search", Threshold: 0.8})
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("results = %+v", got)
	}
	if got[0].MetadataString("question") != "pgvector?" {
		t.Errorf("metadata = %v", got[0].Metadata)
	}
	if got[0].Score < 0.999 {
		t.Errorf("score = %v", got[0].Score)
	}

	got, err = s.SimilaritySearch(ctx, SearchRequest{Query: "unrelated words entirely", Threshold: 0.8})
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results above threshold, got %+v", got)
	}
}

func TestSQLiteStore_Upsert(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, []Document{{ID: "x", Content: "first version"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(ctx, []Document{{ID: "x", Content: "second version"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	got, err := s.SimilaritySearch(ctx, SearchRequest{Query: "second version", TopK: 1})
	if err != nil || len(got) != 1 || got[0].Content != "second version" {
		t.Errorf("got %+v, %v", got, err)
	}
}

func TestSQLiteStore_EmbedError(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "v.db"), &countingEmbedder{err: errors.New("boom")})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	if err := s.Add(context.Background(), []Document{{ID: "a", Content: "a"}}); err == nil {
		t.Error("expected embed error")
	}
	if _, err := NewSQLiteStore(filepath.Join(t.TempDir(), "v.db"), nil); !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("nil embedder: err = %v", err)
	}
}
