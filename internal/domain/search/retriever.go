package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuongday/CosmoChatbot/internal/domain/catalog"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// Retriever answers product queries. The vector index is an optimization, not
// the source of truth: when it is empty, stale or unreachable, the retriever
// degrades to a keyword search against the live catalog instead of failing
// the user-facing query. State-free per call.
type Retriever struct {
	index    VectorIndex
	embedder Embedder
	source   CatalogSource
	cfg      *Config
	cache    ResultCache // optional
}

// NewRetriever creates the query-time pipeline.
func NewRetriever(index VectorIndex, embedder Embedder, source CatalogSource, cfg *Config) *Retriever {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Retriever{index: index, embedder: embedder, source: source, cfg: cfg}
}

// SetCache attaches a retrieval result cache.
func (r *Retriever) SetCache(c ResultCache) {
	r.cache = c
}

// EnrichQuery expands very short queries with generic descriptive terms so
// they stand a chance against the long sentence each document is indexed
// under. Purely additive: the original query always stays in front.
func EnrichQuery(query string) string {
	if len(strings.Fields(query)) > 2 {
		return query
	}
	return query + " product price description category in stock"
}

// Retrieve returns up to topK ranked products for a natural-language query.
// Vector scores are in [0,1] descending; fallback results carry a zero score
// since no distance was computed for them. A nil error with an empty slice
// means "no products found", which is a valid, renderable answer.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]ProductResult, error) {
	if topK <= 0 {
		topK = r.cfg.DefaultTopK
	}
	start := time.Now()
	logger := applog.With("search_id", uuid.NewString())

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, query, topK); ok {
			return cached, nil
		}
	}

	results, vectorErr := r.searchVector(ctx, query, topK, logger)
	if vectorErr == nil && len(results) > 0 {
		logger.Info("[Search/Retriever] Served from vector index",
			"query", query,
			"results", len(results),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		r.cacheSet(query, topK, results)
		return results, nil
	}

	if vectorErr != nil {
		logger.Warn("[Search/Retriever] Vector search unavailable, using catalog fallback", "error", vectorErr)
	} else {
		logger.Info("[Search/Retriever] No vector matches, using catalog fallback", "query", query)
	}

	results = r.searchCatalog(ctx, query, topK, logger)
	logger.Info("[Search/Retriever] Served from catalog fallback",
		"query", query,
		"results", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	r.cacheSet(query, topK, results)
	return results, nil
}

// searchVector runs the embed-then-search path. Errors are returned so the
// caller can decide to degrade; they never reach the end user directly.
func (r *Retriever) searchVector(ctx context.Context, query string, topK int, logger *slog.Logger) ([]ProductResult, error) {
	enriched := EnrichQuery(query)
	if enriched != query {
		logger.Debug("[Search/Retriever] Short query enriched", "query", query, "enriched", enriched)
	}

	vector, err := r.embedder.EmbedQuery(ctx, enriched)
	if err != nil {
		return nil, err
	}

	hits, err := r.index.Search(ctx, r.cfg.Collection, vector, topK)
	if err != nil {
		return nil, err
	}

	results := make([]ProductResult, 0, len(hits))
	for _, h := range hits {
		pr := hitResult(h)
		if r.cfg.MinScore > 0 && pr.RelevanceScore < r.cfg.MinScore {
			continue
		}
		results = append(results, pr)
	}
	// Adapters clamp; ordering is enforced here once for all backends.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	return results, nil
}

// searchCatalog is the fallback path: a keyword search against the
// authoritative catalog. Results are unranked by similarity since no vector
// was computed. If the catalog also fails, an empty list is the answer.
func (r *Retriever) searchCatalog(ctx context.Context, query string, topK int, logger *slog.Logger) []ProductResult {
	raws, err := r.source.SearchByName(ctx, query, topK)
	if err != nil {
		logger.Warn("[Search/Retriever] Catalog fallback failed, returning empty result", "error", err)
		return []ProductResult{}
	}

	products, skipped := catalog.NormalizeAll(raws)
	if skipped > 0 {
		logger.Warn("[Search/Retriever] Fallback records skipped", "skipped", skipped)
	}

	if len(products) > topK {
		products = products[:topK]
	}
	results := make([]ProductResult, 0, len(products))
	for _, p := range products {
		results = append(results, ProductResult{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Image:       p.Image,
			Category:    p.Category,
			Status:      p.Status,
			Quantity:    p.Quantity,
			Source:      SourceCatalog,
		})
	}
	return results
}

func (r *Retriever) cacheSet(query string, topK int, results []ProductResult) {
	if r.cache == nil {
		return
	}
	snapshot := append([]ProductResult(nil), results...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		r.cache.Set(ctx, query, topK, snapshot)
	}()
}

func hitResult(h Hit) ProductResult {
	return ProductResult{
		ID:             h.Product.ID,
		Name:           h.Product.Name,
		Description:    h.Product.Description,
		Price:          h.Product.Price,
		Image:          h.Product.Image,
		Category:       h.Product.Category,
		Status:         h.Product.Status,
		Quantity:       h.Product.Quantity,
		RelevanceScore: clamp01(h.Relevance),
		Source:         SourceVector,
	}
}

// clamp01 keeps relevance inside [0,1] so no negative or >1 score ever leaks
// to ranking or display.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
