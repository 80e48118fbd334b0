// Package vectorstore stores documents with their embeddings and answers similarity
// queries over them. Two backends are provided: Postgres with the pgvector extension and
// an embedded SQLite database for local runs.
package vectorstore

import (
	"context"
	"errors"
)

// Defaults used by the retrieval service.
const (
	DefaultTopK                = 3
	DefaultSimilarityThreshold = 0.8
)

// ErrNoEmbedder is returned by stores constructed without an Embedder.
var ErrNoEmbedder = errors.New("vectorstore: embedder is required")

// Document is a piece of text plus free-form metadata. Score is only set on search results.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score,omitempty"`
}

// MetadataString returns metadata[key] when it is a string.
func (d Document) MetadataString(key string) string {
	if v, ok := d.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// SearchRequest configures a similarity search.
type SearchRequest struct {
	Query string
	// TopK caps the number of results (DefaultTopK when <= 0).
	TopK int
	// Threshold is the minimum cosine similarity in [0,1]; 0 accepts everything.
	Threshold float64
}

func (r SearchRequest) topK() int {
	if r.TopK > 0 {
		return r.TopK
	}
	return DefaultTopK
}

// Store is a vector similarity store.
type Store interface {
	// Add embeds and upserts documents by ID.
	Add(ctx context.Context, docs []Document) error
	// SimilaritySearch returns the documents closest to the query, best first.
	SimilaritySearch(ctx context.Context, req SearchRequest) ([]Document, error)
	Close() error
}
