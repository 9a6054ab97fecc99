package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/crmarena/dbagent/internal/api/metrics"
)

type QueryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// Query turns a natural-language question into SQL and executes it.
// POST /api/query
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "Question is required", http.StatusBadRequest)
		return
	}

	a, err := h.agent.Get()
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		h.writeError(w, err)
		return
	}

	result, err := a.Answer(r.Context(), strings.TrimSpace(req.Question))
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		h.writeError(w, err)
		return
	}

	metrics.QuestionsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, result)
}

// Schema returns the table → columns mapping for inspection.
// GET /api/schema
func (h *Handlers) Schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.schema)
}
