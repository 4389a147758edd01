package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cuongday/CosmoChatbot/internal/api"
	catalogclient "github.com/cuongday/CosmoChatbot/internal/client/catalog"
	"github.com/cuongday/CosmoChatbot/internal/db/opensearch"
	"github.com/cuongday/CosmoChatbot/internal/db/qdrant"
	redisdb "github.com/cuongday/CosmoChatbot/internal/db/redis"
	"github.com/cuongday/CosmoChatbot/internal/domain/search"
	"github.com/cuongday/CosmoChatbot/internal/platform/config"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	index, cleanup, err := buildVectorIndex(cfg)
	if err != nil {
		applog.Fatalf("❌ Vector backend init failed: %v", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	embedder := search.NewOpenAIEmbedder(search.OpenAIEmbedderConfig{
		BaseURL:        cfg.Embedding.BaseURL,
		APIKey:         cfg.Embedding.APIKey,
		Model:          cfg.Embedding.Model,
		Dims:           cfg.Embedding.Dims,
		BatchSize:      cfg.Embedding.BatchSize,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	})
	applog.Infof("✅ Embedder initialized (model: %s, dims: %d)", cfg.Embedding.Model, embedder.Dims())

	source := catalogclient.New(catalogclient.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		Token:          cfg.Catalog.Token,
		PageSize:       cfg.Catalog.PageSize,
		TimeoutSeconds: cfg.Catalog.TimeoutSeconds,
	})

	indexer := search.NewIndexer(index, embedder, &cfg.Search)
	retriever := search.NewRetriever(index, embedder, source, &cfg.Search)

	if cfg.Search.HasCache() && cfg.Redis.URL != "" {
		if opt, err := goredis.ParseURL(cfg.Redis.URL); err == nil {
			cache := redisdb.NewSearchCache(goredis.NewClient(opt), cfg.Search.CacheTTL)
			retriever.SetCache(cache)
			indexer.SetCache(cache)
			applog.Infof("✅ Search cache initialized (TTL: %ds)", cfg.Search.CacheTTL)
		} else {
			applog.Warnf("⚠️  Redis URL invalid, search cache disabled: %v", err)
		}
	}

	if err := prepareCollection(cfg, index, indexer); err != nil {
		applog.Fatalf("❌ Collection init failed: %v", err)
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	serverConfig.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	serverConfig.JWTSecret = cfg.Auth.JWTSecret
	serverConfig.JWTIssuer = cfg.Auth.JWTIssuer
	server := api.NewServer(serverConfig, retriever, indexer, source)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		applog.Info("🔄 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			applog.Errorf("❌ Server shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.Fatalf("❌ Server error: %v", err)
	}

	applog.Info("👋 Server stopped")
}

func buildVectorIndex(cfg *config.AppConfig) (search.VectorIndex, func(), error) {
	switch cfg.Search.Backend {
	case "qdrant":
		client, err := qdrant.New(cfg.Qdrant.Addr)
		if err != nil {
			return nil, nil, err
		}
		applog.Infof("✅ Qdrant backend selected (%s)", cfg.Qdrant.Addr)
		return client, func() { client.Close() }, nil
	case "opensearch":
		client := opensearch.NewClient(cfg.OpenSearch.URL, cfg.OpenSearch.Username, cfg.OpenSearch.Password)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			applog.Warnf("⚠️  OpenSearch ping failed: %v", err)
		}
		applog.Infof("✅ OpenSearch backend selected (%s)", cfg.OpenSearch.URL)
		return client, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported vector backend %q", cfg.Search.Backend)
	}
}

// prepareCollection makes the collection usable before traffic arrives. With
// force-recreate the existing collection is dropped first, which is the
// escape hatch after changing embedding models.
func prepareCollection(cfg *config.AppConfig, index search.VectorIndex, indexer *search.Indexer) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Search.ForceRecreate {
		applog.Warn("⚠️  Force-recreate enabled, dropping collection", "collection", cfg.Search.Collection)
		if err := index.DropCollection(ctx, cfg.Search.Collection); err != nil {
			return err
		}
	}
	return indexer.EnsureCollection(ctx)
}
