// Package rag answers questions with retrieval-augmented generation: similar Q&A pairs are
// pulled from the vector store and handed to the model as context.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ai_blog_writer/generator"
	"ai_blog_writer/vectorstore"
)

// ErrEmptyQuery is returned before any lookup when the question is blank.
var ErrEmptyQuery = errors.New("query is required")

// QuestionKey is the metadata key holding the question a stored document answers.
const QuestionKey = "prompt"

// Options tunes retrieval.
type Options struct {
	TopK      int
	Threshold float64
}

// Service answers questions against a vector store.
type Service struct {
	llm    generator.LLMClient
	store  vectorstore.Store
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

func NewService(llm generator.LLMClient, store vectorstore.Store, opts Options, logger *slog.Logger) (*Service, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	if opts.TopK <= 0 {
		opts.TopK = vectorstore.DefaultTopK
	}
	if opts.Threshold <= 0 {
		opts.Threshold = vectorstore.DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{llm: llm, store: store, opts: opts, logger: logger, tracer: otel.Tracer("ai_blog_writer/rag")}, nil
}

// ProcessQuery retrieves similar Q&A pairs and asks the model to answer query using them.
func (s *Service) ProcessQuery(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	ctx, span := s.tracer.Start(ctx, "rag.query", trace.WithAttributes(
		attribute.Int("rag.top_k", s.opts.TopK),
		attribute.Float64("rag.threshold", s.opts.Threshold),
	))
	defer span.End()

	docs, err := s.store.SimilaritySearch(ctx, vectorstore.SearchRequest{
		Query:     query,
		TopK:      s.opts.TopK,
		Threshold: s.opts.Threshold,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("similarity search: %w", err)
	}
	span.SetAttributes(attribute.Int("rag.contexts", len(docs)))
	s.logger.Debug("found similar contexts", "count", len(docs))

	answer, err := s.llm.Complete(ctx, generator.Prompt{User: BuildPrompt(query, docs)})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return answer, nil
}

// BuildPrompt formats the retrieved documents as previous interactions followed by the
// new question.
func BuildPrompt(query string, docs []vectorstore.Document) string {
	pairs := make([]string, 0, len(docs))
	for _, d := range docs {
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", d.MetadataString(QuestionKey), d.Content))
	}
	var sb strings.Builder
	sb.WriteString("Use these previous Q&A pairs as context for answering the new question:\n\n")
	sb.WriteString("Previous interactions:\n")
	sb.WriteString(strings.Join(pairs, "\n\n"))
	sb.WriteString("\n\nNew question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nPlease provide a clear and educational response.")
	return sb.String()
}
