// Package handlers implements the HTTP JSON endpoints of the DB agent API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crmarena/dbagent/internal/agent"
	"github.com/crmarena/dbagent/internal/eval"
	"github.com/crmarena/dbagent/internal/querier"
	"github.com/crmarena/dbagent/internal/safety"
	"github.com/crmarena/dbagent/internal/schema"
)

type Handlers struct {
	log    *slog.Logger
	schema *schema.Map
	agent  *agent.Lazy
	evals  *eval.Store
}

func New(log *slog.Logger, m *schema.Map, lazy *agent.Lazy, evals *eval.Store) *Handlers {
	return &Handlers{
		log:    log,
		schema: m,
		agent:  lazy,
		evals:  evals,
	}
}

// errorResponse is the structured failure payload: a category from the error
// taxonomy plus the underlying message.
type errorResponse struct {
	Category string `json:"category"`
	Error    string `json:"error"`
}

// classify maps an error to its taxonomy category and HTTP status.
func classify(err error) (category string, status int) {
	var upstream *agent.UpstreamError
	var execErr *querier.ExecError
	switch {
	case errors.Is(err, safety.ErrNotSelect):
		return "safety_rejection", http.StatusBadRequest
	case errors.As(err, &execErr):
		return "execution_failure", http.StatusBadRequest
	case errors.As(err, &upstream):
		return "upstream_generation_failure", http.StatusBadGateway
	case errors.Is(err, agent.ErrMissingAPIKey):
		return "configuration_failure", http.StatusInternalServerError
	default:
		return "internal", http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	category, status := classify(err)
	h.log.Warn("api: request failed", "category", category, "error", err)
	writeJSON(w, status, errorResponse{Category: category, Error: err.Error()})
}
