package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinrag/clinrag/internal/vectorstore"
)

const docScrollPage = 500

// handleListDocuments aggregates stored chunk payloads into one entry
// per ingested document.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	store := s.orchestrator.VectorStore()

	type docEntry struct {
		DocID            string `json:"doc_id"`
		Title            string `json:"title,omitempty"`
		Type             string `json:"type,omitempty"`
		Date             string `json:"date,omitempty"`
		OriginalFilename string `json:"original_filename,omitempty"`
		Chunks           int    `json:"chunks"`
	}

	seen := make(map[string]*docEntry)
	var order []string
	var offset any
	for {
		points, next, err := store.Scroll(r.Context(), nil, docScrollPage, offset)
		if err != nil {
			jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
			return
		}
		for _, pt := range points {
			docID, _ := pt.Payload["doc_id"].(string)
			if docID == "" {
				continue
			}
			entry, ok := seen[docID]
			if !ok {
				entry = &docEntry{DocID: docID}
				entry.Title, _ = pt.Payload["title"].(string)
				entry.Type, _ = pt.Payload["type"].(string)
				entry.Date, _ = pt.Payload["date"].(string)
				entry.OriginalFilename, _ = pt.Payload["original_filename"].(string)
				seen[docID] = entry
				order = append(order, docID)
			}
			entry.Chunks++
		}
		if next == nil || len(points) == 0 {
			break
		}
		offset = next
	}

	docs := make([]*docEntry, 0, len(order))
	for _, id := range order {
		docs = append(docs, seen[id])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

// handleDeleteDocument removes every stored chunk for a document.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if docID == "" {
		jsonError(w, "doc_id is required", http.StatusBadRequest)
		return
	}

	filter := new(vectorstore.Filter).MatchValue("doc_id", docID)
	if err := s.orchestrator.VectorStore().DeleteByFilter(r.Context(), filter); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"doc_id": docID, "deleted": true})
}
