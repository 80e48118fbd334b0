package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents and their embeddings (as JSON) in SQLite and ranks them
// in memory with cosine similarity. Suited to the handful of seed documents a demo needs.
type SQLiteStore struct {
	db       *sql.DB
	embedder Embedder
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string, embedder Embedder) (*SQLiteStore, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, embedder: embedder}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("vector store opened", "driver", "sqlite", "path", dbPath, "embedder", embedder.Name())
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS vector_store (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		model TEXT NOT NULL DEFAULT '',
		embedding TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	)`)
	return err
}

// Add embeds docs in one batch and upserts them.
func (s *SQLiteStore) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vecs) != len(docs) {
		return fmt.Errorf("embed documents: got %d vectors for %d documents", len(vecs), len(docs))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, d := range docs {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", d.ID, err)
		}
		emb, err := json.Marshal(vecs[i])
		if err != nil {
			return fmt.Errorf("marshal embedding for %s: %w", d.ID, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO vector_store (id, content, metadata, model, embedding, updated_at)
			VALUES (?, ?, ?, ?, ?, strftime('%s','now'))`,
			d.ID, d.Content, string(meta), s.embedder.Model(), string(emb))
		if err != nil {
			return fmt.Errorf("upsert document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// SimilaritySearch embeds the query and ranks every stored document against it.
func (s *SQLiteStore) SimilaritySearch(ctx context.Context, req SearchRequest) ([]Document, error) {
	vecs, err := s.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, metadata, embedding FROM vector_store`)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	var embs [][]float32
	for rows.Next() {
		var d Document
		var meta, emb string
		if err := rows.Scan(&d.ID, &d.Content, &meta, &emb); err != nil {
			return nil, err
		}
		var v []float32
		if err := json.Unmarshal([]byte(emb), &v); err != nil || len(v) == 0 {
			continue
		}
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &d.Metadata); err != nil {
				slog.Warn("vector store: bad metadata", "id", d.ID, "error", err)
			}
		}
		docs = append(docs, d)
		embs = append(embs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rankByVector(vecs[0], docs, embs, req.Threshold, req.topK()), nil
}

// Count returns the number of stored documents.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_store`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
