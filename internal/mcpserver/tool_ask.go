package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/crmarena/dbagent/internal/agent"
	"github.com/crmarena/dbagent/internal/mcpserver/metrics"
	"github.com/crmarena/dbagent/internal/querier"
)

type AskInput struct {
	Question string `json:"question" jsonschema:"Natural-language question to answer from the CRM database. The question is translated into a single read-only SELECT statement, vetted, executed, and the resulting rows are returned."`
}

type AskOutput struct {
	SQL       string             `json:"sql"`
	Columns   []string           `json:"columns"`
	Rows      []querier.QueryRow `json:"rows"`
	Reasoning string             `json:"reasoning,omitempty"`
}

func RegisterAskTool(log *slog.Logger, server *mcp.Server, lazy *agent.Lazy) error {
	req, err := jsonschema.For[AskInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create ask input schema: %w", err)
	}

	res, err := jsonschema.For[AskOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create ask output schema: %w", err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: "ask",
		Description: `Ask a natural-language question about the CRM database; returns JSON with sql/columns/rows/reasoning.

USAGE RULES:
- Consult the schema tool before asking questions that depend on exact table or column names.
- Only read-only SELECT statements are generated and executed; results are row-capped.
- Reserved-word table names like Case and Order are double-quoted automatically.`,
		InputSchema:  req,
		OutputSchema: res,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, req AskInput) (*mcp.CallToolResult, AskOutput, error) {
		startTime := time.Now()
		res, err := handleAsk(ctx, log, lazy, req)
		duration := time.Since(startTime).Seconds()

		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues("ask", "error").Inc()
			metrics.ToolCallDuration.WithLabelValues("ask").Observe(duration)
			return nil, AskOutput{}, err
		}
		metrics.ToolCallsTotal.WithLabelValues("ask", "success").Inc()
		metrics.ToolCallDuration.WithLabelValues("ask").Observe(duration)
		return nil, res, nil
	})
	return nil
}

func handleAsk(ctx context.Context, log *slog.Logger, lazy *agent.Lazy, req AskInput) (AskOutput, error) {
	log.Debug("mcp/tool: handling ask", "question", req.Question)

	a, err := lazy.Get()
	if err != nil {
		return AskOutput{}, err
	}

	result, err := a.Answer(ctx, req.Question)
	if err != nil {
		return AskOutput{}, fmt.Errorf("failed to answer question: %w", err)
	}

	return AskOutput{
		SQL:       result.SQL,
		Columns:   result.Columns,
		Rows:      result.Rows,
		Reasoning: result.Reasoning,
	}, nil
}
