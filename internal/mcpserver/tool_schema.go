package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/crmarena/dbagent/internal/mcpserver/metrics"
	"github.com/crmarena/dbagent/internal/schema"
)

type SchemaInput struct{}

type SchemaOutput struct {
	// Schema maps each table to its column names in declaration order.
	Schema map[string][]string `json:"schema"`
}

func RegisterSchemaTool(log *slog.Logger, server *mcp.Server, m *schema.Map) error {
	req, err := jsonschema.For[SchemaInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create schema input schema: %w", err)
	}

	res, err := jsonschema.For[SchemaOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create schema output schema: %w", err)
	}

	if m == nil {
		return fmt.Errorf("schema is required")
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "schema",
		Description:  "Return available tables and columns of the CRM database for grounding queries.",
		InputSchema:  req,
		OutputSchema: res,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, req SchemaInput) (*mcp.CallToolResult, SchemaOutput, error) {
		startTime := time.Now()
		log.Debug("mcp/tool: handling schema")

		out := SchemaOutput{Schema: make(map[string][]string, m.Len())}
		for _, t := range m.Tables() {
			out.Schema[t.Name] = t.Columns
		}

		metrics.ToolCallsTotal.WithLabelValues("schema", "success").Inc()
		metrics.ToolCallDuration.WithLabelValues("schema").Observe(time.Since(startTime).Seconds())
		return nil, out, nil
	})

	return nil
}
