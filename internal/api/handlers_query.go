package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clinrag/clinrag/internal/vectorstore"
)

const defaultSearchLimit = 10

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`

	// Optional hard filters applied in the vector store.
	DocType string `json:"type,omitempty"`
	DocID   string `json:"doc_id,omitempty"`
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (*searchRequest, bool) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return nil, false
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	return &req, true
}

func (req *searchRequest) filter() *vectorstore.Filter {
	var f vectorstore.Filter
	if req.DocType != "" {
		f.MatchValue("type", req.DocType)
	}
	if req.DocID != "" {
		f.MatchValue("doc_id", req.DocID)
	}
	if len(f.Must) == 0 {
		return nil
	}
	return &f
}

// handleQuery runs query understanding only: no vector search, no LLM.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	eq := s.enhancer.Enhance(r.Context(), req.Query)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(eq)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	res, err := s.retrieval.Search(r.Context(), req.Query, req.Limit, req.filter())
	if err != nil {
		s.log.Error("search failed", "error", err)
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	res, err := s.retrieval.Answer(r.Context(), req.Query, req.Limit, req.filter())
	if err != nil {
		s.log.Error("answer failed", "error", err)
		jsonError(w, "answer failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
