package mcpserver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/crmarena/dbagent/internal/agent"
	"github.com/crmarena/dbagent/internal/schema"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

type Config struct {
	Logger *slog.Logger

	// Agent is the lazily-built question answering agent. Construction is
	// deferred until the first ask call so the schema tool works without a
	// generation credential.
	Agent *agent.Lazy

	// Schema is the introspected table → columns mapping served by the
	// schema tool.
	Schema *schema.Map

	Version           string
	ListenAddr        string
	Stdio             bool // serve over stdio instead of streamable HTTP
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	AllowedTokens     []string // Bearer tokens allowed for MCP endpoint authentication
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Agent == nil {
		return fmt.Errorf("agent is required")
	}
	if c.Schema == nil {
		return fmt.Errorf("schema is required")
	}
	if !c.Stdio && c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return nil
}
