package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinrag/clinrag/internal/config"
	"github.com/clinrag/clinrag/internal/pipeline"
	"github.com/clinrag/clinrag/internal/query"
	"github.com/clinrag/clinrag/internal/retrieval"
)

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	retrieval    *retrieval.Service
	enhancer     *query.Enhancer
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, svc *retrieval.Service, enhancer *query.Enhancer, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		retrieval:    svc,
		enhancer:     enhancer,
		log:          log,
		cfg:          cfg,
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)

		r.Post("/api/query", s.handleQuery)
		r.Post("/api/search", s.handleSearch)
		r.Post("/api/answer", s.handleAnswer)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
