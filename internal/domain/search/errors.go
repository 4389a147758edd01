package search

import "errors"

var (
	// ErrEmbedding marks a failed remote embedding call. Fatal to the
	// calling sync or search: a zero or wrong-dimension vector would corrupt
	// the index, so there is no silent fallback.
	ErrEmbedding = errors.New("search: embedding failed")

	// ErrIndexConfig marks a dimension or metric mismatch. Fatal at startup
	// or collection creation, never surfaced lazily at query time.
	ErrIndexConfig = errors.New("search: index configuration")

	// ErrIndexBackend marks a transport or availability failure of the
	// similarity engine. The query path catches it and falls back to the
	// catalog keyword search instead of failing the user request.
	ErrIndexBackend = errors.New("search: index backend")
)
