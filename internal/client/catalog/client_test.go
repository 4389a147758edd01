package catalogclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func productPage(page, size, total int) string {
	start := (page - 1) * size
	result := "["
	for i := start; i < start+size && i < total; i++ {
		if i > start {
			result += ","
		}
		result += fmt.Sprintf(`{"id": "%d", "name": "Product %d", "sellPrice": %d}`, i+1, i+1, (i+1)*1000)
	}
	result += "]"
	return fmt.Sprintf(`{"data": {"meta": {"page": %d, "total": %d}, "result": %s}}`, page, total, result)
}

func TestFetchAllPagesThroughListing(t *testing.T) {
	const total = 5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		if size != 2 {
			t.Fatalf("size = %d, want configured page size 2", size)
		}
		fmt.Fprint(w, productPage(page, size, total))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, PageSize: 2})
	records, err := c.FetchAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(records) != total {
		t.Fatalf("got %d records, want %d", len(records), total)
	}
	if id, _ := records[4]["id"].(string); id != "5" {
		t.Fatalf("last record id = %q, want 5", id)
	}
}

func TestFetchAllHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		fmt.Fprint(w, productPage(page, size, 100))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, PageSize: 10})
	records, err := c.FetchAll(context.Background(), 15)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(records) != 15 {
		t.Fatalf("got %d records, want 15", len(records))
	}
}

func TestFetchByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/products/42":
			fmt.Fprint(w, `{"data": {"id": "42", "name": "Rose Serum", "sellPrice": 320000}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	record, err := c.FetchByID(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchByID failed: %v", err)
	}
	if name, _ := record["name"].(string); name != "Rose Serum" {
		t.Fatalf("name = %q, want Rose Serum", name)
	}

	missing, err := c.FetchByID(context.Background(), "99")
	if err != nil {
		t.Fatalf("not-found must not be an error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil record for missing product, got %v", missing)
	}
}

func TestSearchByNameBuildsFilter(t *testing.T) {
	var gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		fmt.Fprint(w, `{"data": {"result": [{"id": "1", "name": "Passion Lipstick"}]}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	records, err := c.SearchByName(context.Background(), "Pass'ion", 5)
	if err != nil {
		t.Fatalf("SearchByName failed: %v", err)
	}
	if gotFilter != "name~'Pass''ion'" {
		t.Fatalf("filter = %q", gotFilter)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}

func TestSearchByCategory(t *testing.T) {
	var gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		fmt.Fprint(w, `{"data": {"result": []}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	if _, err := c.SearchByCategory(context.Background(), "7", 1, 10); err != nil {
		t.Fatalf("SearchByCategory failed: %v", err)
	}
	if gotFilter != "category.id:7" {
		t.Fatalf("numeric category filter = %q", gotFilter)
	}

	if _, err := c.SearchByCategory(context.Background(), "Skincare", 1, 10); err != nil {
		t.Fatalf("SearchByCategory failed: %v", err)
	}
	if gotFilter != "category.name~'Skincare'" {
		t.Fatalf("named category filter = %q", gotFilter)
	}
}

func TestSearchByPriceRange(t *testing.T) {
	var gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		fmt.Fprint(w, `{"data": {"result": []}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.SearchByPriceRange(context.Background(), 100000, 500000, 1, 10); err != nil {
		t.Fatalf("SearchByPriceRange failed: %v", err)
	}
	if gotFilter != "price>:100000 and price<:500000" {
		t.Fatalf("filter = %q", gotFilter)
	}
}

func TestForwardsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"data": {"result": []}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "abc123"})
	if _, err := c.FetchAll(context.Background(), 1); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if gotAuth != "Bearer abc123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestUpstreamErrorWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.FetchAll(context.Background(), 10); !errors.Is(err, ErrCatalogService) {
		t.Fatalf("expected ErrCatalogService, got %v", err)
	}
}

func TestMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": "not an object"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.FetchAll(context.Background(), 10); !errors.Is(err, ErrCatalogService) {
		t.Fatalf("expected ErrCatalogService, got %v", err)
	}
}
