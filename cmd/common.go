package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"ai_blog_writer/config"
	"ai_blog_writer/database"
	"ai_blog_writer/generator"
	"ai_blog_writer/rag"
	"ai_blog_writer/vectorstore"
)

// newLogger installs the process-wide slog logger. --verbose forces debug level.
func newLogger(lc config.LogConfig, debug bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func buildLLM(lc config.LLMConfig) (generator.LLMClient, error) {
	if lc.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key_env in config")
	}
	settings := &generator.LLMSettings{
		Provider:   lc.Provider,
		Model:      lc.Model,
		APIKey:     lc.APIKey,
		BaseURL:    lc.BaseURL,
		APIVersion: lc.APIVersion,
		Label:      lc.Label,
	}
	switch lc.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if lc.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "azure":
		if !lc.AzureAuth {
			return generator.NewAzureOpenAILLM(settings, nil)
		}
		cred, err := database.AzureCLICredential()
		if err != nil {
			return nil, err
		}
		settings.APIKey = ""
		return generator.NewAzureOpenAILLM(settings, cred)
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", lc.Provider)
	}
}

func buildRefiner(c *config.Config, llm generator.LLMClient, logger *slog.Logger) (*generator.Refiner, error) {
	agent, err := generator.NewAgent(llm, logger)
	if err != nil {
		return nil, err
	}
	return generator.NewRefiner(agent, generator.Options{
		MaxIterations:      c.Refine.MaxIterations,
		ForceFirstCritique: c.Refine.ForceFirstCritique,
		MaxSentences:       c.Refine.MaxSentences,
		ModelLabel:         c.LLM.Label,
	}, logger)
}

func buildEmbedder(ec config.EmbeddingConfig) (vectorstore.Embedder, error) {
	var inner vectorstore.Embedder
	switch ec.Provider {
	case "openai":
		e, err := vectorstore.NewOpenAIEmbedder(vectorstore.EmbedderSettings{
			Provider:   ec.Provider,
			Model:      ec.Model,
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Dimensions: ec.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		inner = e
	case "mock":
		inner = vectorstore.HashEmbedder{Dims: ec.Dimensions}
	default:
		return nil, fmt.Errorf("embedding provider %s not supported", ec.Provider)
	}
	return vectorstore.NewCachedEmbedder(inner, ec.CacheSize)
}

// openStore opens the configured vector store. The returned close func releases the
// store and, for pgvector, the database pool.
func openStore(ctx context.Context, c *config.Config, embedder vectorstore.Embedder) (vectorstore.Store, func(), error) {
	switch c.VectorStore.Driver {
	case "sqlite":
		s, err := vectorstore.NewSQLiteStore(c.VectorStore.SQLitePath, embedder)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "pgvector":
		var passwords database.PasswordSource
		switch {
		case c.Database.AzureAuth:
			tp, err := database.NewAzureCLIPassword(c.Database.TokenScope)
			if err != nil {
				return nil, nil, err
			}
			passwords = tp
		case c.Database.Password != "":
			passwords = database.StaticPassword(c.Database.Password)
		}
		db, err := database.OpenPostgres(ctx, database.Settings{URL: c.Database.URL, Username: c.Database.Username}, passwords)
		if err != nil {
			return nil, nil, err
		}
		s, err := vectorstore.NewPGStore(ctx, db, embedder, vectorstore.PGOptions{
			Table:      c.VectorStore.Table,
			Dimensions: c.Embedding.Dimensions,
			InitSchema: c.VectorStore.InitSchema,
		})
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() { s.Close(); db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("vectorstore driver %s not supported", c.VectorStore.Driver)
	}
}

// buildRAG wires the embedder, store and LLM into a rag.Service.
func buildRAG(ctx context.Context, c *config.Config, llm generator.LLMClient, logger *slog.Logger) (*rag.Service, vectorstore.Store, func(), error) {
	embedder, err := buildEmbedder(c.Embedding)
	if err != nil {
		return nil, nil, nil, err
	}
	store, closeStore, err := openStore(ctx, c, embedder)
	if err != nil {
		return nil, nil, nil, err
	}
	svc, err := rag.NewService(llm, store, rag.Options{TopK: c.VectorStore.TopK, Threshold: c.VectorStore.Threshold}, logger)
	if err != nil {
		closeStore()
		return nil, nil, nil, err
	}
	return svc, store, closeStore, nil
}
