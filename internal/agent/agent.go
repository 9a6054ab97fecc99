// Package agent turns natural-language questions into vetted SQL and
// executes them against the CRM database.
//
// Control flow: question → generator (grounded on the introspected schema) →
// candidate SQL → safety gate → querier → tabular result. The generator is an
// external collaborator; the safety gate is the enforcement point and trusts
// nothing the model claims about its own output.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crmarena/dbagent/internal/querier"
	"github.com/crmarena/dbagent/internal/safety"
	"github.com/crmarena/dbagent/internal/schema"
)

type Config struct {
	Logger  *slog.Logger
	LLM     LLM
	Schema  *schema.Map
	Querier *querier.Querier
	MaxRows int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.LLM == nil {
		return fmt.Errorf("llm is required")
	}
	if cfg.Schema == nil {
		return fmt.Errorf("schema is required")
	}
	if cfg.Querier == nil {
		return fmt.Errorf("querier is required")
	}
	if cfg.MaxRows <= 0 {
		return fmt.Errorf("max rows must be positive")
	}
	return nil
}

type Agent struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate agent config: %w", err)
	}
	return &Agent{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// Result is the answer to one question: the final post-sanitization SQL, the
// materialized rows, and the model's stated reasoning. Ephemeral, never
// persisted.
type Result struct {
	SQL       string             `json:"sql"`
	Columns   []string           `json:"columns"`
	Rows      []querier.QueryRow `json:"rows"`
	Reasoning string             `json:"reasoning,omitempty"`
}

// generatorReply is the strict-JSON contract the model must honor.
type generatorReply struct {
	SQL       string `json:"sql"`
	Reasoning string `json:"reasoning"`
}

// Schema returns the schema mapping the agent was grounded on.
func (a *Agent) Schema() *schema.Map {
	return a.cfg.Schema
}

// BuildSQL asks the generator for a statement and runs it through the safety
// gate. A non-JSON reply or an absent sql field is an UpstreamError; a
// statement failing the read-only check is a safety.ErrNotSelect rejection
// and is never executed.
func (a *Agent) BuildSQL(ctx context.Context, question string) (sql, reasoning string, err error) {
	systemPrompt := BuildSystemPrompt(a.cfg.Schema, a.cfg.MaxRows)
	raw, err := a.cfg.LLM.Complete(ctx, systemPrompt, BuildUserPrompt(question))
	if err != nil {
		return "", "", fmt.Errorf("generation failed: %w", err)
	}

	var reply generatorReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &reply); err != nil {
		return "", "", &UpstreamError{Reason: "non-JSON reply", Raw: raw}
	}
	if reply.SQL == "" {
		return "", "", &UpstreamError{Reason: "reply is missing sql", Raw: raw}
	}

	vetted, err := safety.Sanitize(reply.SQL, a.cfg.Schema, a.cfg.MaxRows)
	if err != nil {
		a.log.Warn("agent: rejected generated statement", "sql", reply.SQL, "error", err)
		return "", "", err
	}
	return vetted, reply.Reasoning, nil
}

// Answer runs the full question → SQL → rows flow.
func (a *Agent) Answer(ctx context.Context, question string) (*Result, error) {
	sql, reasoning, err := a.BuildSQL(ctx, question)
	if err != nil {
		return nil, err
	}

	resp, err := a.cfg.Querier.Query(ctx, sql)
	if err != nil {
		return nil, err
	}

	a.log.Info("agent: answered question", "sql", sql, "rows", resp.Count)

	rows := resp.Rows
	if rows == nil {
		rows = []querier.QueryRow{}
	}
	return &Result{
		SQL:       sql,
		Columns:   resp.Columns,
		Rows:      rows,
		Reasoning: reasoning,
	}, nil
}
