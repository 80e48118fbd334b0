// Package config loads service settings from an optional YAML/JSON/TOML file, overlaid by
// BLOGWRITER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BLOGWRITER_LLM_API_KEY.
const EnvPrefix = "BLOGWRITER"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vectorstore"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Refine      RefineConfig      `mapstructure:"refine"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RateLimitRPM   int           `mapstructure:"rate_limit_rpm"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RunCacheSize   int           `mapstructure:"run_cache_size"`
}

// LLMConfig 生成模块的模型配置。
type LLMConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	APIKeyEnv  string `mapstructure:"api_key_env"`
	BaseURL    string `mapstructure:"base_url"`
	APIVersion string `mapstructure:"api_version"`
	// AzureAuth uses the Azure CLI credential instead of an API key (provider azure).
	AzureAuth bool   `mapstructure:"azure_auth"`
	Label     string `mapstructure:"label"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	CacheSize  int    `mapstructure:"cache_size"`
}

type VectorStoreConfig struct {
	Driver      string  `mapstructure:"driver"`
	SQLitePath  string  `mapstructure:"sqlite_path"`
	Table       string  `mapstructure:"table"`
	InitSchema  bool    `mapstructure:"init_schema"`
	Threshold   float64 `mapstructure:"threshold"`
	TopK        int     `mapstructure:"top_k"`
	SeedOnStart bool    `mapstructure:"seed_on_start"`
}

type DatabaseConfig struct {
	URL        string `mapstructure:"url"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	AzureAuth  bool   `mapstructure:"azure_auth"`
	TokenScope string `mapstructure:"token_scope"`
}

type RefineConfig struct {
	MaxIterations      int  `mapstructure:"max_iterations"`
	ForceFirstCritique bool `mapstructure:"force_first_critique"`
	MaxSentences       int  `mapstructure:"max_sentences"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	Protocol    string `mapstructure:"protocol"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit_rpm", 20)
	v.SetDefault("server.rate_limit_burst", 5)
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.run_cache_size", 128)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_version", "")
	v.SetDefault("llm.azure_auth", false)
	v.SetDefault("llm.label", "")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.cache_size", 512)

	v.SetDefault("vectorstore.driver", "sqlite")
	v.SetDefault("vectorstore.sqlite_path", "blogwriter.db")
	v.SetDefault("vectorstore.table", "vector_store")
	v.SetDefault("vectorstore.init_schema", true)
	v.SetDefault("vectorstore.threshold", 0.8)
	v.SetDefault("vectorstore.top_k", 3)
	v.SetDefault("vectorstore.seed_on_start", true)

	v.SetDefault("database.url", "")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.azure_auth", false)
	v.SetDefault("database.token_scope", "https://ossrdbms-aad.database.windows.net/.default")

	v.SetDefault("refine.max_iterations", 3)
	v.SetDefault("refine.force_first_critique", true)
	v.SetDefault("refine.max_sentences", 10)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.protocol", "http")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "ai-blog-writer")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads path (when non-empty) or a config.{yaml,json,toml} found in the working
// directory or ./config, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolveSecrets()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveSecrets fills empty API keys from the environment variable named by api_key_env.
func (c *Config) resolveSecrets() {
	if c.LLM.APIKey == "" && c.LLM.APIKeyEnv != "" {
		c.LLM.APIKey = os.Getenv(c.LLM.APIKeyEnv)
	}
	if c.Embedding.APIKey == "" && c.Embedding.Provider == c.LLM.Provider {
		c.Embedding.APIKey = c.LLM.APIKey
	}
	if c.Embedding.BaseURL == "" && c.Embedding.Provider == c.LLM.Provider {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
}

// Validate checks values that would otherwise fail much later at request time. Missing
// credentials are reported by the backend constructors instead.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "openai", "deepseek", "azure", "mock":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q not supported (openai, deepseek, azure, mock)", c.LLM.Provider))
	}
	switch c.Embedding.Provider {
	case "openai", "mock":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q not supported (openai, mock)", c.Embedding.Provider))
	}
	switch c.VectorStore.Driver {
	case "sqlite":
		if c.VectorStore.SQLitePath == "" {
			errs = append(errs, errors.New("vectorstore.sqlite_path is required for the sqlite driver"))
		}
	case "pgvector":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the pgvector driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("vectorstore.driver %q not supported (sqlite, pgvector)", c.VectorStore.Driver))
	}
	if c.VectorStore.Threshold < 0 || c.VectorStore.Threshold > 1 {
		errs = append(errs, fmt.Errorf("vectorstore.threshold %v must be within [0,1]", c.VectorStore.Threshold))
	}
	if c.Refine.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("refine.max_iterations must be at least 1, got %d", c.Refine.MaxIterations))
	}
	if c.Server.RateLimitRPM < 0 {
		errs = append(errs, errors.New("server.rate_limit_rpm must not be negative"))
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("server.request_timeout must not be negative"))
	}
	switch c.Telemetry.Protocol {
	case "http", "grpc":
	default:
		errs = append(errs, fmt.Errorf("telemetry.protocol %q not supported (http, grpc)", c.Telemetry.Protocol))
	}
	return errors.Join(errs...)
}
