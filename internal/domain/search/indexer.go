package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuongday/CosmoChatbot/internal/domain/catalog"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// documentNamespace seeds the deterministic UUIDv5 document IDs. Same product
// ID, same document ID, so a re-sync overwrites instead of duplicating.
var documentNamespace = uuid.MustParse("7a3c62de-9b14-4c4f-8a14-5f27c1a40e19")

// DocumentID derives the stable index document ID for a product.
func DocumentID(productID string) string {
	return uuid.NewSHA1(documentNamespace, []byte("product:"+productID)).String()
}

// BuildDocumentText concatenates product attributes into the retrieval
// sentence the index matches against. This is what the query embedding is
// compared to, so it carries every attribute a shopper might phrase a query
// around, not just the name.
func BuildDocumentText(p catalog.Product) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Product %s with code %s.", p.Name, p.ID)
	if p.Description != "" {
		fmt.Fprintf(&sb, " Description: %s.", p.Description)
	}
	fmt.Fprintf(&sb, " Price: %.0f VND.", p.Price)
	fmt.Fprintf(&sb, " In stock: %d.", p.Quantity)
	if p.Status != "" {
		fmt.Fprintf(&sb, " Status: %s.", p.Status)
	}
	if p.Category != "" {
		fmt.Fprintf(&sb, " Category: %s.", p.Category)
	}
	return sb.String()
}

// Indexer owns the write path: canonical products in, embedded documents out.
type Indexer struct {
	index    VectorIndex
	embedder Embedder
	cfg      *Config
	cache    ResultCache // optional, invalidated after each sync
}

// NewIndexer creates the ingestion pipeline.
func NewIndexer(index VectorIndex, embedder Embedder, cfg *Config) *Indexer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Indexer{index: index, embedder: embedder, cfg: cfg}
}

// SetCache attaches a retrieval cache to invalidate after ingestion.
func (ix *Indexer) SetCache(c ResultCache) {
	ix.cache = c
}

// EnsureCollection creates the target collection with the embedder's
// dimensionality when absent. Called at startup and before every sync, so a
// dimension mismatch is a boot-time failure, not a query-time surprise.
func (ix *Indexer) EnsureCollection(ctx context.Context) error {
	exists, err := ix.index.CollectionExists(ctx, ix.cfg.Collection)
	if err != nil {
		return fmt.Errorf("%w: check collection %q: %v", ErrIndexBackend, ix.cfg.Collection, err)
	}
	if exists {
		dims, err := ix.index.CollectionDims(ctx, ix.cfg.Collection)
		if err != nil {
			return fmt.Errorf("%w: inspect collection %q: %v", ErrIndexBackend, ix.cfg.Collection, err)
		}
		if dims != 0 && dims != ix.embedder.Dims() {
			return fmt.Errorf("%w: collection %q holds %d-dim vectors but the embedder produces %d; drop or rebuild the collection",
				ErrIndexConfig, ix.cfg.Collection, dims, ix.embedder.Dims())
		}
		return nil
	}
	applog.Info("[Search/Indexer] Creating collection",
		"collection", ix.cfg.Collection,
		"dims", ix.embedder.Dims(),
		"metric", ix.cfg.Metric,
	)
	return ix.index.CreateCollection(ctx, ix.cfg.Collection, ix.embedder.Dims(), ix.cfg.Metric)
}

// Sync embeds and upserts the given products. Idempotent: document IDs are
// deterministic, so calling it twice with the same input leaves one document
// per distinct product ID. Embedding failures abort the run; backend failures
// abort with the failure count reported.
func (ix *Indexer) Sync(ctx context.Context, products []catalog.Product) (*SyncResult, error) {
	start := time.Now()
	logger := applog.With("sync_id", uuid.NewString())

	result := &SyncResult{}
	if len(products) == 0 {
		logger.Warn("[Search/Indexer] Nothing to sync")
		return result, nil
	}

	if err := ix.EnsureCollection(ctx); err != nil {
		result.Failed = len(products)
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}

	docs := make([]ProductDocument, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			// Normalization already filters these; counted, never indexed.
			result.Skipped++
			continue
		}
		docs = append(docs, ProductDocument{
			ID:      DocumentID(p.ID),
			Text:    BuildDocumentText(p),
			Product: p,
		})
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		// Embeddings are not optional: without them the documents would be
		// unsearchable, so the whole batch aborts.
		result.Failed = len(docs)
		result.Errors = append(result.Errors, err.Error())
		logger.Error("[Search/Indexer] Embedding failed, sync aborted", "error", err)
		return result, err
	}
	for i := range docs {
		docs[i].Vector = vectors[i]
	}

	for i := 0; i < len(docs); i += ix.cfg.UpsertBatchSize {
		end := i + ix.cfg.UpsertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		n, err := ix.index.Upsert(ctx, ix.cfg.Collection, docs[i:end])
		result.Processed += n
		if err != nil {
			result.Failed = len(docs) - result.Processed
			if len(result.Errors) < ix.cfg.MaxSyncErrors {
				result.Errors = append(result.Errors, err.Error())
			}
			logger.Error("[Search/Indexer] Upsert failed, sync aborted",
				"processed", result.Processed,
				"failed", result.Failed,
				"error", err,
			)
			return result, fmt.Errorf("%w: upsert batch %d-%d: %v", ErrIndexBackend, i, end, err)
		}
	}

	if ix.cache != nil {
		ix.cache.InvalidateAll(ctx)
	}

	logger.Info("[Search/Indexer] Sync complete",
		"collection", ix.cfg.Collection,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Rebuild drops the collection and ingests from scratch. Heavyweight and
// non-atomic: concurrent searches may see an empty or partial index until the
// rebuild finishes. That window is an accepted trade-off; the backend's
// per-document atomicity keeps readers safe throughout.
func (ix *Indexer) Rebuild(ctx context.Context, products []catalog.Product) (*SyncResult, error) {
	applog.Info("[Search/Indexer] Rebuilding collection", "collection", ix.cfg.Collection)
	if err := ix.index.DropCollection(ctx, ix.cfg.Collection); err != nil {
		return &SyncResult{Failed: len(products), Errors: []string{err.Error()}},
			fmt.Errorf("%w: drop collection %q: %v", ErrIndexBackend, ix.cfg.Collection, err)
	}
	return ix.Sync(ctx, products)
}
