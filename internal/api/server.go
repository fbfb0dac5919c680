package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docsplit.
type Server struct {
	router  chi.Router
	indexer *pipeline.Indexer
	stats   *pipeline.ParseStats
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server. indexer may be nil, in
// which case /api/index answers 503.
func NewServer(indexer *pipeline.Indexer, stats *pipeline.ParseStats, log *slog.Logger, cfg config.Config) *Server {
	if stats == nil {
		stats = pipeline.NewParseStats(0)
	}
	s := &Server{
		indexer: indexer,
		stats:   stats,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/chunk", s.handleChunk)
		r.Post("/api/split", s.handleSplit)
		r.Post("/api/parse", s.handleParse)
		r.Post("/api/flatten", s.handleFlatten)
		r.Post("/api/index", s.handleIndex)
		r.Get("/api/files", s.handleFiles)
		r.Get("/api/records", s.handleRecords)
		r.Get("/api/stats/parse", s.handleParseStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
