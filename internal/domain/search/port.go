package search

import (
	"context"

	"github.com/cuongday/CosmoChatbot/internal/domain/catalog"
)

// DistanceMetric names the similarity metric a collection is created with.
type DistanceMetric string

const (
	DistanceCosine DistanceMetric = "cosine"
	DistanceDot    DistanceMetric = "dot"
	DistanceEuclid DistanceMetric = "euclid"
)

// VectorIndex is the contract every similarity-search backend implements.
// Indexer and Retriever depend only on this interface; the concrete engines
// disagree on score direction, ID assignment and connection model, and the
// adapters normalize all three. Implementations must be safe for concurrent
// use: the write path (Indexer) and read path (Retriever) share one client.
type VectorIndex interface {
	// CollectionExists reports whether the named collection is present.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CollectionDims returns the vector dimensionality the collection was
	// created with, or 0 when the collection does not exist. Startup uses
	// it to catch an embedder/collection mismatch before the first query.
	CollectionDims(ctx context.Context, name string) (int, error)

	// CreateCollection creates a collection for vectors of the given
	// dimensionality. Fails with ErrIndexConfig when dims <= 0 or the
	// backend rejects the metric.
	CreateCollection(ctx context.Context, name string, dims int, metric DistanceMetric) error

	// DropCollection removes the collection. Dropping a missing collection
	// is a logged no-op, never an error.
	DropCollection(ctx context.Context, name string) error

	// Upsert writes documents, overwriting any with the same document ID.
	// It returns how many of the documents the backend accepted; partial
	// failure is reported through the count and error, never swallowed.
	Upsert(ctx context.Context, name string, docs []ProductDocument) (int, error)

	// Search returns at most topK hits, best match first. A missing
	// collection or an empty index yields an empty slice and a nil error:
	// "no results" is an expected outcome, not an exceptional one.
	Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error)
}

// CatalogSource is the slice of the external catalog service the retrieval
// subsystem depends on: paged listing for sync, keyword search for fallback.
type CatalogSource interface {
	FetchAll(ctx context.Context, limit int) ([]catalog.RawRecord, error)
	FetchByID(ctx context.Context, id string) (catalog.RawRecord, error)
	SearchByName(ctx context.Context, name string, size int) ([]catalog.RawRecord, error)
}

// ResultCache caches retrieval results keyed by query and topK. Optional;
// a sync invalidates it wholesale.
type ResultCache interface {
	Get(ctx context.Context, query string, topK int) ([]ProductResult, bool)
	Set(ctx context.Context, query string, topK int, results []ProductResult)
	InvalidateAll(ctx context.Context)
}
