// Package api is the HTTP surface: a public search endpoint for the chatbot
// and JWT-guarded admin endpoints for index maintenance.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cuongday/CosmoChatbot/internal/domain/search"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JWTSecret    string // empty disables auth on admin routes
	JWTIssuer    string
}

// DefaultServerConfig returns the default server settings.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // full-catalog syncs take a while
	}
}

// Server is the HTTP server.
type Server struct {
	config    *ServerConfig
	retriever ProductRetriever
	indexer   ProductIndexer
	source    search.CatalogSource
	httpSrv   *http.Server
}

// NewServer creates the server around the retrieval and ingestion components.
func NewServer(config *ServerConfig, retriever ProductRetriever, indexer ProductIndexer, source search.CatalogSource) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:    config,
		retriever: retriever,
		indexer:   indexer,
		source:    source,
	}
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("🚀 Product search API server starting on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	searchHandler := NewSearchHandler(s.retriever)
	syncHandler := NewSyncHandler(s.indexer, s.source)

	r.Route("/api/v1", func(r chi.Router) {
		searchHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			if strings.TrimSpace(s.config.JWTSecret) != "" {
				r.Use(authMiddleware(&JWTConfig{
					Secret: s.config.JWTSecret,
					Issuer: s.config.JWTIssuer,
				}))
			} else {
				applog.Warn("[API] JWT_SECRET not set, admin routes are unauthenticated")
			}
			syncHandler.RegisterRoutes(r)
		})
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
