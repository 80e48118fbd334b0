package rag

import (
	"context"
	"fmt"
	"log/slog"

	"ai_blog_writer/vectorstore"
)

// DefaultDocuments are the Q&A pairs loaded into a fresh store.
var DefaultDocuments = []vectorstore.Document{
	{
		ID: "3e1a1af7-c872-4e36-9faa-fe53b9613c69",
		Content: `The Spring AI project aims to streamline the development of applications that
incorporate artificial intelligence functionality without unnecessary complexity.
The project draws inspiration from notable Python projects, such as LangChain
and LlamaIndex, but Spring AI is not a direct port of those projects.
The project was founded with the belief that the next wave of Generative AI
applications will not be only for Python developers but will be ubiquitous
across many programming languages.`,
		Metadata: map[string]any{QuestionKey: "What is Spring AI?"},
	},
	{
		ID: "7a7c2caf-ce9c-4dcb-a543-937b76ef1098",
		Content: `A vector database stores data that the AI model is unaware of. When a user
question is sent to the AI model, a QuestionAnswerAdvisor queries the vector
database for documents related to the user question.
The response from the vector database is appended to the user text to provide
context for the AI model to generate a response. Assuming you have already
loaded data into a VectorStore, you can perform Retrieval Augmented Generation
(RAG) by providing an instance of QuestionAnswerAdvisor to the ChatClient.`,
		Metadata: map[string]any{QuestionKey: "How does QuestionAnswer Advisor work?"},
	},
}

// Seed upserts docs (DefaultDocuments when nil) into store. Seeding is idempotent.
func Seed(ctx context.Context, store vectorstore.Store, docs []vectorstore.Document, logger *slog.Logger) (int, error) {
	if docs == nil {
		docs = DefaultDocuments
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := store.Add(ctx, docs); err != nil {
		return 0, fmt.Errorf("seed documents: %w", err)
	}
	logger.Info("vector store seeded", "documents", len(docs))
	return len(docs), nil
}
