package search

import "github.com/cuongday/CosmoChatbot/internal/domain/catalog"

// ProductDocument is one indexed unit: a generated retrieval text, its
// embedding, and the product metadata needed to render a result. The ID is
// derived deterministically from the product ID so re-ingestion overwrites
// instead of duplicating.
type ProductDocument struct {
	ID      string
	Text    string
	Vector  []float32
	Product catalog.Product
}

// Hit is a single nearest-neighbor match returned by a VectorIndex adapter.
// Relevance is already normalized into [0,1], higher is better; the conversion
// from the backend's native score is adapter-specific but always monotonic.
type Hit struct {
	Product   catalog.Product
	Text      string
	Relevance float64
}

// ProductResult is the uniform result shape of a retrieval, regardless of
// whether the vector index or the catalog fallback served it.
type ProductResult struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	Image          string  `json:"image"`
	Category       string  `json:"category"`
	Status         string  `json:"status"`
	Quantity       int     `json:"quantity"`
	RelevanceScore float64 `json:"relevance_score"`
	Source         string  `json:"source"` // "vector" or "catalog"
}

const (
	SourceVector  = "vector"
	SourceCatalog = "catalog"
)

// SyncResult summarizes one ingestion run. Per-record failures are aggregated
// here instead of raised individually.
type SyncResult struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"` // first few messages only
}
