package search

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/cuongday/CosmoChatbot/internal/domain/catalog"
)

// fakeEmbedder produces deterministic bag-of-words vectors: every distinct
// token gets its own dimension, so overlap maps directly to cosine
// similarity. Good enough to exercise ranking without a remote model.
type fakeEmbedder struct {
	mu    sync.Mutex
	vocab map[string]int
	dims  int
	fail  bool
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vocab: make(map[string]int), dims: 64}
}

func (f *fakeEmbedder) Dims() int { return f.dims }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, ErrEmbedding
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = f.embed(t)
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) embed(text string) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := make([]float32, f.dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,:;!?")
		if tok == "" {
			continue
		}
		idx, ok := f.vocab[tok]
		if !ok {
			idx = len(f.vocab) % f.dims
			f.vocab[tok] = idx
		}
		v[idx] = 1
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range v {
			v[i] /= n
		}
	}
	return v
}

// memoryIndex is an in-memory VectorIndex with real cosine ranking.
type memoryIndex struct {
	mu          sync.Mutex
	collections map[string]map[string]ProductDocument
	dims        map[string]int
	unreachable bool
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{
		collections: make(map[string]map[string]ProductDocument),
		dims:        make(map[string]int),
	}
}

var errIndexDown = errors.New("index backend unreachable")

func (m *memoryIndex) CollectionExists(_ context.Context, name string) (bool, error) {
	if m.unreachable {
		return false, errIndexDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *memoryIndex) CollectionDims(_ context.Context, name string) (int, error) {
	if m.unreachable {
		return 0, errIndexDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dims[name], nil
}

func (m *memoryIndex) CreateCollection(_ context.Context, name string, dims int, _ DistanceMetric) error {
	if m.unreachable {
		return errIndexDown
	}
	if dims <= 0 {
		return ErrIndexConfig
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = make(map[string]ProductDocument)
	m.dims[name] = dims
	return nil
}

func (m *memoryIndex) DropCollection(_ context.Context, name string) error {
	if m.unreachable {
		return errIndexDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	delete(m.dims, name)
	return nil
}

func (m *memoryIndex) Upsert(_ context.Context, name string, docs []ProductDocument) (int, error) {
	if m.unreachable {
		return 0, errIndexDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[name]
	if !ok {
		return 0, errors.New("collection does not exist")
	}
	for _, d := range docs {
		coll[d.ID] = d
	}
	return len(docs), nil
}

func (m *memoryIndex) Search(_ context.Context, name string, vector []float32, topK int) ([]Hit, error) {
	if m.unreachable {
		return nil, errIndexDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[name]
	if !ok {
		return []Hit{}, nil
	}
	hits := make([]Hit, 0, len(coll))
	for _, d := range coll {
		hits = append(hits, Hit{
			Product:   d.Product,
			Text:      d.Text,
			Relevance: cosine(vector, d.Vector),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Relevance > hits[j].Relevance })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *memoryIndex) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[name])
}

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		if i < len(b) {
			dot += float64(a[i]) * float64(b[i])
		}
	}
	if dot < 0 {
		return 0
	}
	return dot
}

// fakeCatalog implements CatalogSource against a fixed record set.
type fakeCatalog struct {
	records []catalog.RawRecord
	fail    bool
}

var errCatalogDown = errors.New("catalog service unreachable")

func (f *fakeCatalog) FetchAll(_ context.Context, limit int) ([]catalog.RawRecord, error) {
	if f.fail {
		return nil, errCatalogDown
	}
	if limit > 0 && len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func (f *fakeCatalog) FetchByID(_ context.Context, id string) (catalog.RawRecord, error) {
	if f.fail {
		return nil, errCatalogDown
	}
	for _, r := range f.records {
		if v, ok := r["id"].(string); ok && v == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) SearchByName(_ context.Context, name string, size int) ([]catalog.RawRecord, error) {
	if f.fail {
		return nil, errCatalogDown
	}
	var out []catalog.RawRecord
	for _, r := range f.records {
		n, _ := r["name"].(string)
		if strings.Contains(strings.ToLower(n), strings.ToLower(name)) {
			out = append(out, r)
		}
		if size > 0 && len(out) >= size {
			break
		}
	}
	return out, nil
}
