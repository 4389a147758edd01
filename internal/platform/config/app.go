package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/cuongday/CosmoChatbot/internal/domain/search"
)

// AppConfig is the whole process configuration, loaded once at startup and
// handed out per module.
type AppConfig struct {
	LogLevel   string           `json:"log_level"`
	LogFormat  string           `json:"log_format"`
	Server     ServerConfig     `json:"server"`
	Auth       AuthConfig       `json:"auth"`
	Catalog    CatalogConfig    `json:"catalog"`
	Qdrant     QdrantConfig     `json:"qdrant"`
	OpenSearch OpenSearchConfig `json:"opensearch"`
	Redis      RedisConfig      `json:"redis"`
	Embedding  EmbeddingConfig  `json:"embedding"`
	Search     search.Config    `json:"search"`
}

type ServerConfig struct {
	Host                string `json:"host"`
	Port                int    `json:"port"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	JWTIssuer string `json:"jwt_issuer"`
}

// CatalogConfig points at the upstream product service.
type CatalogConfig struct {
	BaseURL        string `json:"base_url"`
	Token          string `json:"token"`
	PageSize       int    `json:"page_size"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type QdrantConfig struct {
	Addr string `json:"addr"`
}

type OpenSearchConfig struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type EmbeddingConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	Dims           int    `json:"dims"`
	BatchSize      int    `json:"batch_size"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Default returns the baseline configuration.
func Default() *AppConfig {
	searchCfg := search.DefaultConfig()
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
		},
		Catalog: CatalogConfig{
			PageSize:       100,
			TimeoutSeconds: 30,
		},
		Qdrant: QdrantConfig{
			Addr: "localhost:6334",
		},
		Embedding: EmbeddingConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "text-embedding-3-small",
			Dims:           1536,
			BatchSize:      64,
			TimeoutSeconds: 60,
		},
		Search: *searchCfg,
	}
}

// Load builds the configuration: defaults -> config file -> environment.
// The file path comes from APP_CONFIG_FILE (JSON).
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		// .env is optional
	}

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)
	applyInt("SERVER_READ_TIMEOUT", &c.Server.ReadTimeoutSeconds)
	applyInt("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeoutSeconds)

	applyString("JWT_SECRET", &c.Auth.JWTSecret)
	applyString("JWT_ISSUER", &c.Auth.JWTIssuer)

	applyString("CATALOG_BASE_URL", &c.Catalog.BaseURL)
	applyString("CATALOG_TOKEN", &c.Catalog.Token)
	applyInt("CATALOG_PAGE_SIZE", &c.Catalog.PageSize)
	applyInt("CATALOG_TIMEOUT", &c.Catalog.TimeoutSeconds)

	applyString("QDRANT_ADDR", &c.Qdrant.Addr)
	applyString("OPENSEARCH_URL", &c.OpenSearch.URL)
	applyString("OPENSEARCH_USERNAME", &c.OpenSearch.Username)
	applyString("OPENSEARCH_PASSWORD", &c.OpenSearch.Password)
	applyString("REDIS_URL", &c.Redis.URL)

	applyString("OPENAI_API_KEY", &c.Embedding.APIKey)
	applyString("OPENAI_BASE_URL", &c.Embedding.BaseURL)
	applyString("EMBEDDING_MODEL", &c.Embedding.Model)
	applyInt("EMBEDDING_DIMS", &c.Embedding.Dims)
	applyInt("EMBEDDING_BATCH_SIZE", &c.Embedding.BatchSize)
	applyInt("EMBEDDING_TIMEOUT", &c.Embedding.TimeoutSeconds)

	applyString("VECTOR_BACKEND", &c.Search.Backend)
	applyString("COLLECTION_NAME", &c.Search.Collection)
	applyInt("SEARCH_DEFAULT_TOP_K", &c.Search.DefaultTopK)
	applyInt("SEARCH_UPSERT_BATCH_SIZE", &c.Search.UpsertBatchSize)
	applyFloat64("SEARCH_MIN_SCORE", &c.Search.MinScore)
	applyInt("SEARCH_CACHE_TTL", &c.Search.CacheTTL)
	applyBool("QDRANT_FORCE_RECREATE", &c.Search.ForceRecreate)
}

func (c *AppConfig) normalize() {
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if c.Search.EmbedBatchSize == 0 {
		c.Search.EmbedBatchSize = c.Embedding.BatchSize
	}
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.Catalog.BaseURL) == "" {
		return fmt.Errorf("CATALOG_BASE_URL is required")
	}
	switch c.Search.Backend {
	case "qdrant":
		if strings.TrimSpace(c.Qdrant.Addr) == "" {
			return fmt.Errorf("QDRANT_ADDR is required when VECTOR_BACKEND=qdrant")
		}
	case "opensearch":
		if strings.TrimSpace(c.OpenSearch.URL) == "" {
			return fmt.Errorf("OPENSEARCH_URL is required when VECTOR_BACKEND=opensearch")
		}
	default:
		return fmt.Errorf("unsupported VECTOR_BACKEND %q (want qdrant or opensearch)", c.Search.Backend)
	}
	if c.Embedding.Dims <= 0 {
		return fmt.Errorf("EMBEDDING_DIMS must be positive, got %d", c.Embedding.Dims)
	}
	return nil
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func applyFloat64(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*target = n
		}
	}
}

func applyBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}
