package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cuongday/CosmoChatbot/internal/domain/catalog"
	"github.com/cuongday/CosmoChatbot/internal/domain/search"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// ProductIndexer ingests canonical products into the vector index.
type ProductIndexer interface {
	Sync(ctx context.Context, products []catalog.Product) (*search.SyncResult, error)
	Rebuild(ctx context.Context, products []catalog.Product) (*search.SyncResult, error)
}

// SyncHandler serves the admin ingestion API. Two modes: push, where the
// caller ships raw records in the body, and pull, where products are fetched
// from the catalog service.
type SyncHandler struct {
	indexer ProductIndexer
	source  search.CatalogSource
}

func NewSyncHandler(indexer ProductIndexer, source search.CatalogSource) *SyncHandler {
	return &SyncHandler{indexer: indexer, source: source}
}

func (h *SyncHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sync", h.Sync)
	r.Post("/sync/rebuild", h.Rebuild)
}

type syncRequest struct {
	Type     string              `json:"type"`
	Limit    int                 `json:"limit"`
	Products []catalog.RawRecord `json:"products,omitempty"`
}

type syncResponse struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Skipped int    `json:"skipped,omitempty"`
	Message string `json:"message"`
}

func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.indexer.Sync, "synced")
}

func (h *SyncHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.indexer.Rebuild, "rebuilt")
}

func (h *SyncHandler) run(
	w http.ResponseWriter,
	r *http.Request,
	ingest func(context.Context, []catalog.Product) (*search.SyncResult, error),
	verb string,
) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type != "products" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported sync type %q", req.Type))
		return
	}

	raws := req.Products
	if len(raws) == 0 {
		var err error
		raws, err = h.source.FetchAll(r.Context(), req.Limit)
		if err != nil {
			applog.Error("[API] Catalog fetch failed", "error", err)
			writeError(w, http.StatusBadGateway, "catalog service unavailable")
			return
		}
	}

	products, skipped := catalog.NormalizeAll(raws)
	result, err := ingest(r.Context(), products)
	if err != nil {
		applog.Error("[API] Sync failed", "error", err, "processed", result.Processed)
		writeError(w, http.StatusInternalServerError, "sync failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Status:  "success",
		Count:   result.Processed,
		Skipped: result.Skipped + skipped,
		Message: fmt.Sprintf("%d products %s", result.Processed, verb),
	})
}
