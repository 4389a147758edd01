// Package opensearch adapts the OpenSearch HTTP API to the search.VectorIndex
// port, using approximate kNN over a knn_vector field.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cuongday/CosmoChatbot/internal/domain/catalog"
	"github.com/cuongday/CosmoChatbot/internal/domain/search"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// Client is an OpenSearch HTTP client scoped to vector index operations.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates an OpenSearch client. Username may be empty for
// unauthenticated clusters.
func NewClient(url, username, password string) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed dev clusters
	}
	return &Client{
		baseURL:  strings.TrimRight(url, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// indexedDocument is the stored shape of a product in the index.
type indexedDocument struct {
	ProductID   string    `json:"product_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Image       string    `json:"image_url,omitempty"`
	Category    string    `json:"category,omitempty"`
	Status      string    `json:"status,omitempty"`
	Text        string    `json:"text"`
	Vector      []float32 `json:"vector"`
}

func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	resp, err := c.doRequest(ctx, "HEAD", "/"+name, nil)
	if err != nil {
		return false, fmt.Errorf("%w: check index %s: %v", search.ErrIndexBackend, name, err)
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: check index %s: status %d", search.ErrIndexBackend, name, resp.StatusCode)
	}
}

func (c *Client) CollectionDims(ctx context.Context, name string) (int, error) {
	resp, err := c.doRequest(ctx, "GET", "/"+name+"/_mapping", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: get mapping for %s: %v", search.ErrIndexBackend, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: read mapping for %s: %v", search.ErrIndexBackend, name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: get mapping for %s: status %d: %s", search.ErrIndexBackend, name, resp.StatusCode, string(body))
	}

	var mapping map[string]struct {
		Mappings struct {
			Properties map[string]struct {
				Dimension int `json:"dimension"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal(body, &mapping); err != nil {
		return 0, fmt.Errorf("%w: parse mapping for %s: %v", search.ErrIndexBackend, name, err)
	}
	for _, idx := range mapping {
		if vec, ok := idx.Mappings.Properties["vector"]; ok {
			return vec.Dimension, nil
		}
	}
	return 0, nil
}

func (c *Client) CreateCollection(ctx context.Context, name string, dims int, metric search.DistanceMetric) error {
	if dims <= 0 {
		return fmt.Errorf("%w: index %s: invalid vector size %d", search.ErrIndexConfig, name, dims)
	}
	spaceType, err := toSpaceType(metric)
	if err != nil {
		return err
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"index.knn": true,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"product_id": map[string]string{"type": "keyword"},
				"name":       map[string]string{"type": "text"},
				"category":   map[string]string{"type": "keyword"},
				"status":     map[string]string{"type": "keyword"},
				"price":      map[string]string{"type": "double"},
				"quantity":   map[string]string{"type": "integer"},
				"text":       map[string]string{"type": "text"},
				"vector": map[string]interface{}{
					"type":      "knn_vector",
					"dimension": dims,
					"method": map[string]interface{}{
						"name":       "hnsw",
						"space_type": spaceType,
						"engine":     "lucene",
					},
				},
			},
		},
	}

	body, _ := json.Marshal(mapping)
	resp, err := c.doRequest(ctx, "PUT", "/"+name, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create index %s: %v", search.ErrIndexBackend, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: create index %s: status %d: %s", search.ErrIndexBackend, name, resp.StatusCode, string(respBody))
	}
	applog.Info("[OpenSearch] Index created", "index", name, "dims", dims)
	return nil
}

func (c *Client) DropCollection(ctx context.Context, name string) error {
	resp, err := c.doRequest(ctx, "DELETE", "/"+name, nil)
	if err != nil {
		return fmt.Errorf("%w: drop index %s: %v", search.ErrIndexBackend, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		applog.Info("[OpenSearch] Drop skipped, index absent", "index", name)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: drop index %s: status %d: %s", search.ErrIndexBackend, name, resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, name string, docs []search.ProductDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for _, d := range docs {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": name,
				"_id":    d.ID,
			},
		}
		actionLine, _ := json.Marshal(action)
		buf.Write(actionLine)
		buf.WriteByte('\n')

		docLine, _ := json.Marshal(toIndexed(d))
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	resp, err := c.doRequest(ctx, "POST", "/_bulk?refresh=true", &buf)
	if err != nil {
		return 0, fmt.Errorf("%w: bulk index into %s: %v", search.ErrIndexBackend, name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: read bulk response: %v", search.ErrIndexBackend, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: bulk index into %s: status %d: %s", search.ErrIndexBackend, name, resp.StatusCode, string(respBody))
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.Unmarshal(respBody, &bulkResp); err != nil {
		return 0, fmt.Errorf("%w: parse bulk response: %v", search.ErrIndexBackend, err)
	}
	if !bulkResp.Errors {
		return len(docs), nil
	}

	accepted := 0
	for _, item := range bulkResp.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				accepted++
			}
		}
	}
	return accepted, fmt.Errorf("%w: bulk index into %s: %d of %d documents rejected",
		search.ErrIndexBackend, name, len(docs)-accepted, len(docs))
}

func (c *Client) Search(ctx context.Context, name string, vector []float32, topK int) ([]search.Hit, error) {
	query := map[string]interface{}{
		"size": topK,
		"query": map[string]interface{}{
			"knn": map[string]interface{}{
				"vector": map[string]interface{}{
					"vector": vector,
					"k":      topK,
				},
			},
		},
	}

	body, _ := json.Marshal(query)
	resp, err := c.doRequest(ctx, "POST", "/"+name+"/_search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %v", search.ErrIndexBackend, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// An un-synced deployment is not an error; the caller falls back.
		return []search.Hit{}, nil
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read search response: %v", search.ErrIndexBackend, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search %s: status %d: %s", search.ErrIndexBackend, name, resp.StatusCode, string(respBody))
	}

	var osResp struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(respBody, &osResp); err != nil {
		return nil, fmt.Errorf("%w: parse search response: %v", search.ErrIndexBackend, err)
	}

	hits := make([]search.Hit, 0, len(osResp.Hits.Hits))
	for _, hit := range osResp.Hits.Hits {
		var src indexedDocument
		if err := json.Unmarshal(hit.Source, &src); err != nil {
			applog.Warn("[OpenSearch] Failed to parse hit source", "id", hit.ID, "error", err)
			continue
		}
		hits = append(hits, search.Hit{
			Product: catalog.Product{
				ID:          src.ProductID,
				Name:        src.Name,
				Description: src.Description,
				Price:       src.Price,
				Quantity:    src.Quantity,
				Image:       src.Image,
				Category:    src.Category,
				Status:      src.Status,
			},
			Text: src.Text,
			// Lucene kNN scores are already normalized, higher is better.
			Relevance: hit.Score,
		})
	}
	return hits, nil
}

// Ping checks cluster connectivity. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "GET", "/", nil)
	if err != nil {
		return fmt.Errorf("ping opensearch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("opensearch returned status %d", resp.StatusCode)
	}
	return nil
}

func toSpaceType(metric search.DistanceMetric) (string, error) {
	switch metric {
	case search.DistanceCosine:
		return "cosinesimil", nil
	case search.DistanceDot:
		return "innerproduct", nil
	case search.DistanceEuclid:
		return "l2", nil
	default:
		return "", fmt.Errorf("%w: unsupported distance metric %q", search.ErrIndexConfig, metric)
	}
}

func toIndexed(d search.ProductDocument) indexedDocument {
	p := d.Product
	return indexedDocument{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Image:       p.Image,
		Category:    p.Category,
		Status:      p.Status,
		Text:        d.Text,
		Vector:      d.Vector,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	return c.httpClient.Do(req)
}
