package api

import (
	"encoding/json"
	"net/http"
)

// handleStats reports pipeline liveness for operators.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"collection":  s.orchestrator.VectorStore().Collection(),
		"chunk_mode":  s.cfg.ChunkMode,
	})
}
