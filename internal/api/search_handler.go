package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cuongday/CosmoChatbot/internal/domain/search"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// ProductRetriever answers product search queries.
type ProductRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]search.ProductResult, error)
}

// SearchHandler serves the retrieval API the chatbot calls per user message.
type SearchHandler struct {
	retriever ProductRetriever
}

func NewSearchHandler(retriever ProductRetriever) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

func (h *SearchHandler) RegisterRoutes(r chi.Router) {
	r.Post("/search", h.Search)
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Results []search.ProductResult `json:"results"`
	Count   int                    `json:"count"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.retriever.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		applog.Error("[API] Search failed", "query", req.Query, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}
