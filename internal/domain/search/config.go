package search

// Config holds the retrieval subsystem settings shared by Indexer and
// Retriever. Connection details of the concrete backends live in the
// platform config; this struct is backend-agnostic.
type Config struct {
	// Backend selects the VectorIndex adapter: "qdrant" or "opensearch".
	Backend string `json:"backend"`

	// Collection is the logical container name. One active collection per
	// catalog namespace; its dimensionality must match the embedder's.
	Collection string `json:"collection"`

	Metric DistanceMetric `json:"metric"`

	DefaultTopK     int `json:"default_top_k"`
	EmbedBatchSize  int `json:"embed_batch_size"`
	UpsertBatchSize int `json:"upsert_batch_size"`

	// MinScore drops vector hits whose normalized relevance falls below the
	// threshold. 0 keeps everything.
	MinScore float64 `json:"min_score"`

	// MaxSyncErrors bounds how many per-record error messages a SyncResult
	// carries.
	MaxSyncErrors int `json:"max_sync_errors"`

	// ForceRecreate drops and recreates the collection at startup.
	ForceRecreate bool `json:"force_recreate"`

	// CacheTTL is the retrieval cache TTL in seconds, 0 disables caching.
	CacheTTL int `json:"cache_ttl"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Backend:         "qdrant",
		Collection:      "cosmo_products",
		Metric:          DistanceCosine,
		DefaultTopK:     5,
		EmbedBatchSize:  64,
		UpsertBatchSize: 100,
		MaxSyncErrors:   10,
		CacheTTL:        300,
	}
}

// HasCache reports whether the retrieval cache is enabled.
func (c *Config) HasCache() bool {
	return c.CacheTTL > 0
}
