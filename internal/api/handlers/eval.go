package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/crmarena/dbagent/internal/eval"
)

// LogEvalRun records a manual evaluation run for one of the two transports.
// POST /api/eval/runs
func (h *Handlers) LogEvalRun(w http.ResponseWriter, r *http.Request) {
	var run eval.Run
	if err := json.NewDecoder(r.Body).Decode(&run); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if run.Backend != eval.BackendAPI && run.Backend != eval.BackendMCP {
		http.Error(w, `Backend must be "API" or "MCP"`, http.StatusBadRequest)
		return
	}
	if run.DurationSec < 0 {
		http.Error(w, "Duration must be non-negative", http.StatusBadRequest)
		return
	}

	h.evals.Log(run)
	writeJSON(w, http.StatusCreated, run)
}

// EvalMetrics returns per-backend aggregates over the logged runs.
// GET /api/eval/metrics
func (h *Handlers) EvalMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.evals.Metrics())
}
