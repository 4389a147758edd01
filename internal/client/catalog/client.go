package catalogclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuongday/CosmoChatbot/internal/domain/catalog"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// ErrCatalogService marks a failed call to the external catalog service.
// Fatal to a sync; the retriever's fallback path treats it as "no results".
var ErrCatalogService = errors.New("catalog: service request")

// Config configures the catalog service client.
type Config struct {
	BaseURL        string
	Token          string // optional bearer token forwarded upstream
	PageSize       int    // records per page when fetching the full catalog
	TimeoutSeconds int
}

// Client talks to the catalog service's product endpoints. The service owns
// products, carts and orders; only the three product operations the retrieval
// subsystem needs are covered here. Response envelopes (data.result nesting,
// naming variants) stay inside this package and the normalizer.
//
// Client holds no per-call mutable state and is safe for concurrent use.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
}

// New creates a catalog client.
func New(cfg Config) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	timeout := 30 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: timeout},
	}
}

// envelope is the service's uniform response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// pageData is the paged listing payload inside the envelope.
type pageData struct {
	Meta struct {
		Page  int `json:"page"`
		Pages int `json:"pages"`
		Total int `json:"total"`
	} `json:"meta"`
	Result []catalog.RawRecord `json:"result"`
}

// FetchAll pulls up to limit raw product records, paging through the listing
// endpoint. limit <= 0 means the whole catalog.
func (c *Client) FetchAll(ctx context.Context, limit int) ([]catalog.RawRecord, error) {
	var records []catalog.RawRecord
	for page := 1; ; page++ {
		batch, err := c.listPage(ctx, page, c.pageSize, "")
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
		if limit > 0 && len(records) >= limit {
			records = records[:limit]
			break
		}
		// A short page means the listing is exhausted.
		if len(batch) < c.pageSize {
			break
		}
	}
	applog.Debug("[Catalog] Fetched products", "count", len(records), "limit", limit)
	return records, nil
}

// FetchByID returns one raw record, or nil when the product does not exist.
func (c *Client) FetchByID(ctx context.Context, id string) (catalog.RawRecord, error) {
	resp, err := c.doRequest(ctx, "/api/v1/products/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrCatalogService, err)
	}
	var record catalog.RawRecord
	if err := json.Unmarshal(env.Data, &record); err != nil {
		return nil, fmt.Errorf("%w: unexpected envelope shape: %v", ErrCatalogService, err)
	}
	return record, nil
}

// Search runs a filtered, paged product search. The filter is a simple
// predicate expression the service understands, e.g. name~'Passion' or
// price>:100000, clauses joined with " and ".
func (c *Client) Search(ctx context.Context, filter string, page, size int) ([]catalog.RawRecord, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	return c.listPage(ctx, page, size, filter)
}

// SearchByName finds products whose name partially matches the given text.
// This is the retriever's keyword fallback.
func (c *Client) SearchByName(ctx context.Context, name string, size int) ([]catalog.RawRecord, error) {
	return c.Search(ctx, fmt.Sprintf("name~'%s'", escapeFilterValue(name)), 1, size)
}

// SearchByCategory lists products of one category, by ID or by name.
func (c *Client) SearchByCategory(ctx context.Context, category string, page, size int) ([]catalog.RawRecord, error) {
	filter := fmt.Sprintf("category.name~'%s'", escapeFilterValue(category))
	if isDigits(category) {
		filter = "category.id:" + category
	}
	return c.Search(ctx, filter, page, size)
}

// SearchByPriceRange lists products inside a price band. Either bound may be
// negative to leave it open.
func (c *Client) SearchByPriceRange(ctx context.Context, minPrice, maxPrice float64, page, size int) ([]catalog.RawRecord, error) {
	var clauses []string
	if minPrice >= 0 {
		clauses = append(clauses, fmt.Sprintf("price>:%.0f", minPrice))
	}
	if maxPrice >= 0 {
		clauses = append(clauses, fmt.Sprintf("price<:%.0f", maxPrice))
	}
	return c.Search(ctx, strings.Join(clauses, " and "), page, size)
}

func (c *Client) listPage(ctx context.Context, page, size int, filter string) ([]catalog.RawRecord, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	if filter != "" {
		params.Set("filter", filter)
	}

	resp, err := c.doRequest(ctx, "/api/v1/products", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrCatalogService, err)
	}
	var data pageData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: unexpected envelope shape: %v", ErrCatalogService, err)
	}
	return data.Result, nil
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrCatalogService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(c.token, "Bearer "))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogService, err)
	}
	return resp, nil
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: status %d: %s", ErrCatalogService, resp.StatusCode, strings.TrimSpace(string(body)))
}

// escapeFilterValue keeps user text from breaking out of the quoted filter
// literal.
func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
