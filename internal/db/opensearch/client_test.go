package opensearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cuongday/CosmoChatbot/internal/domain/catalog"
	"github.com/cuongday/CosmoChatbot/internal/domain/search"
)

func TestCollectionLifecycle(t *testing.T) {
	created := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/cosmo_products":
			if created {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.Method == http.MethodPut && r.URL.Path == "/cosmo_products":
			var mapping map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&mapping); err != nil {
				t.Errorf("create body did not parse: %v", err)
			}
			created = true
			fmt.Fprint(w, `{"acknowledged":true}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/cosmo_products":
			if !created {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			created = false
			fmt.Fprint(w, `{"acknowledged":true}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "")
	ctx := context.Background()

	exists, err := client.CollectionExists(ctx, "cosmo_products")
	if err != nil || exists {
		t.Fatalf("CollectionExists = %v, %v; want false, nil", exists, err)
	}
	if err := client.CreateCollection(ctx, "cosmo_products", 4, search.DistanceCosine); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	exists, err = client.CollectionExists(ctx, "cosmo_products")
	if err != nil || !exists {
		t.Fatalf("CollectionExists = %v, %v; want true, nil", exists, err)
	}
	if err := client.DropCollection(ctx, "cosmo_products"); err != nil {
		t.Fatalf("DropCollection failed: %v", err)
	}
	// Dropping again is a no-op, not an error.
	if err := client.DropCollection(ctx, "cosmo_products"); err != nil {
		t.Fatalf("second DropCollection failed: %v", err)
	}
}

func TestCreateCollectionRejectsBadDims(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", "")
	err := client.CreateCollection(context.Background(), "x", 0, search.DistanceCosine)
	if !errors.Is(err, search.ErrIndexConfig) {
		t.Fatalf("err = %v, want ErrIndexConfig", err)
	}
}

func TestUpsertSendsBulkBody(t *testing.T) {
	var captured string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_bulk" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		captured = string(body)
		fmt.Fprint(w, `{"errors":false,"items":[{"index":{"status":201}}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "admin", "secret")
	docs := []search.ProductDocument{{
		ID:      "11111111-2222-3333-4444-555555555555",
		Text:    "Product Mocha with code 9.",
		Vector:  []float32{0.1, 0.2},
		Product: catalog.Product{ID: "9", Name: "Mocha", Price: 45000},
	}}
	n, err := client.Upsert(context.Background(), "cosmo_products", docs)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Upsert count = %d, want 1", n)
	}

	lines := strings.Split(strings.TrimSpace(captured), "\n")
	if len(lines) != 2 {
		t.Fatalf("bulk body has %d lines, want 2:\n%s", len(lines), captured)
	}
	if !strings.Contains(lines[0], `"_id":"11111111-2222-3333-4444-555555555555"`) {
		t.Fatalf("action line missing document id: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"product_id":"9"`) {
		t.Fatalf("document line missing product_id: %s", lines[1])
	}
}

func TestUpsertReportsRejectedDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":400}}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "")
	docs := []search.ProductDocument{
		{ID: "a", Product: catalog.Product{ID: "1"}},
		{ID: "b", Product: catalog.Product{ID: "2"}},
	}
	n, err := client.Upsert(context.Background(), "cosmo_products", docs)
	if !errors.Is(err, search.ErrIndexBackend) {
		t.Fatalf("err = %v, want ErrIndexBackend", err)
	}
	if n != 1 {
		t.Fatalf("accepted = %d, want 1", n)
	}
}

func TestSearchParsesHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cosmo_products/_search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"hits":{"hits":[
			{"_id":"a","_score":0.91,"_source":{"product_id":"1","name":"Chocolate Cake","price":250000,"quantity":5,"text":"Product Chocolate Cake with code 1."}},
			{"_id":"b","_score":0.42,"_source":{"product_id":"2","name":"Strawberry Tart","price":180000,"quantity":0,"text":"Product Strawberry Tart with code 2."}}
		]}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "")
	hits, err := client.Search(context.Background(), "cosmo_products", []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Product.ID != "1" || hits[0].Relevance != 0.91 {
		t.Fatalf("first hit = %+v", hits[0])
	}
	if hits[1].Product.Name != "Strawberry Tart" {
		t.Fatalf("second hit = %+v", hits[1])
	}
}

func TestSearchMissingIndexReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "")
	hits, err := client.Search(context.Background(), "ghost", []float32{1}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("got %d hits, want 0", len(hits))
	}
}

func TestCollectionDims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"cosmo_products":{"mappings":{"properties":{"vector":{"type":"knn_vector","dimension":1536},"name":{"type":"text"}}}}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "")
	dims, err := client.CollectionDims(context.Background(), "cosmo_products")
	if err != nil {
		t.Fatalf("CollectionDims failed: %v", err)
	}
	if dims != 1536 {
		t.Fatalf("dims = %d, want 1536", dims)
	}
}
