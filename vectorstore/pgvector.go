package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultTable matches the table name used by common pgvector integrations.
const DefaultTable = "vector_store"

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// PGOptions configures a PGStore.
type PGOptions struct {
	Table      string
	Dimensions int
	// InitSchema creates the extension, table and HNSW index when missing.
	InitSchema bool
}

// PGStore is a Store backed by Postgres + pgvector, ranking by cosine distance (<=>).
type PGStore struct {
	db       *sql.DB
	embedder Embedder
	table    string
}

func NewPGStore(ctx context.Context, db *sql.DB, embedder Embedder, opts PGOptions) (*PGStore, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	if db == nil {
		return nil, fmt.Errorf("pgvector: db is required")
	}
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("pgvector: invalid table name %q", table)
	}
	s := &PGStore{db: db, embedder: embedder, table: table}
	if opts.InitSchema {
		if err := s.initSchema(ctx, opts.Dimensions); err != nil {
			return nil, fmt.Errorf("pgvector schema: %w", err)
		}
	}
	slog.Info("vector store opened", "driver", "pgvector", "table", table, "embedder", embedder.Name())
	return s, nil
}

func (s *PGStore) initSchema(ctx context.Context, dims int) error {
	if dims <= 0 {
		dims = 1536
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			content text,
			metadata json,
			embedding vector(%d)
		)`, s.table, dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

// Add embeds docs and upserts them by ID. Non-UUID IDs are mapped to a stable
// name-based UUID.
func (s *PGStore) Add(ctx context.Context, docs []Document) error {
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

	q := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4::vector)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`, s.table)
	for i, d := range docs {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", d.ID, err)
		}
		if _, err := tx.ExecContext(ctx, q, documentUUID(d.ID), d.Content, string(meta), vectorToString(vecs[i])); err != nil {
			return fmt.Errorf("upsert document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// SimilaritySearch returns up to TopK documents whose cosine similarity to the query is
// at least Threshold.
func (s *PGStore) SimilaritySearch(ctx context.Context, req SearchRequest) ([]Document, error) {
	vecs, err := s.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	vecStr := vectorToString(vecs[0])

	q := fmt.Sprintf(`SELECT id, content, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1::vector) >= $2
		ORDER BY embedding <=> $1::vector LIMIT $3`, s.table)
	rows, err := s.db.QueryContext(ctx, q, vecStr, req.Threshold, req.topK())
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		var d Document
		var meta []byte
		if err := rows.Scan(&d.ID, &d.Content, &meta, &d.Score); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &d.Metadata); err != nil {
				slog.Warn("vector store: bad metadata", "id", d.ID, "error", err)
			}
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// Close is a no-op: the *sql.DB belongs to the caller.
func (s *PGStore) Close() error { return nil }

func documentUUID(id string) uuid.UUID {
	if id == "" {
		return uuid.New()
	}
	if u, err := uuid.Parse(id); err == nil {
		return u
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
}

// vectorToString renders v as a pgvector literal, e.g. [0.1,0.2].
func vectorToString(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
