package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/crmarena/dbagent/internal/agent"
	"github.com/crmarena/dbagent/internal/config"
	"github.com/crmarena/dbagent/internal/logger"
	"github.com/crmarena/dbagent/internal/mcpserver"
	"github.com/crmarena/dbagent/internal/mcpserver/metrics"
	"github.com/crmarena/dbagent/internal/querier"
	"github.com/crmarena/dbagent/internal/schema"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultListenAddr = "0.0.0.0:8010"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "HTTP server listen address")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to listen on for prometheus metrics (empty disables)")
	stdioFlag := flag.Bool("stdio", false, "serve over stdio instead of streamable HTTP")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(*verboseFlag)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Parse allowed tokens from environment variable (comma-separated).
	// Auth can be explicitly disabled with MCP_AUTH_DISABLED=true.
	var allowedTokens []string
	authDisabled := os.Getenv("MCP_AUTH_DISABLED") == "true"
	if authDisabled {
		log.Info("mcp server: authentication explicitly disabled")
	} else if tokensEnv := os.Getenv("MCP_ALLOWED_TOKENS"); tokensEnv != "" {
		for token := range strings.SplitSeq(tokensEnv, ",") {
			token = strings.TrimSpace(token)
			if token != "" {
				allowedTokens = append(allowedTokens, token)
			}
		}
		if len(allowedTokens) > 0 {
			log.Info("mcp server: token authentication enabled", "token_count", len(allowedTokens))
		}
	} else {
		log.Info("mcp server: authentication disabled (no tokens configured)")
	}

	// Introspect the catalog once at startup; fatal on failure.
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	schemaMap, err := schema.Introspect(ctx, db)
	db.Close()
	if err != nil {
		return fmt.Errorf("failed to introspect schema: %w", err)
	}
	log.Info("mcp server: schema introspected", "db", cfg.DBPath, "tables", schemaMap.Len())

	q, err := querier.New(querier.Config{Logger: log, DBPath: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("failed to create querier: %w", err)
	}

	// The agent is built on the first ask call; the schema tool works
	// without the generation credential.
	lazy := agent.NewLazy(func() (*agent.Agent, error) {
		if config.APIKey() == "" {
			return nil, agent.ErrMissingAPIKey
		}
		return agent.New(agent.Config{
			Logger:  log,
			LLM:     agent.NewAnthropicLLM(log, cfg.Model),
			Schema:  schemaMap,
			Querier: q,
			MaxRows: cfg.MaxRows,
		})
	})

	if *metricsAddrFlag != "" && !*stdioFlag {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, mux); err != nil {
				log.Error("failed to serve prometheus metrics", "error", err)
			}
		}()
	}

	server, err := mcpserver.New(ctx, mcpserver.Config{
		Version:       version,
		ListenAddr:    *listenAddrFlag,
		Stdio:         *stdioFlag,
		Logger:        log,
		Agent:         lazy,
		Schema:        schemaMap,
		AllowedTokens: allowedTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Run(ctx); err != nil {
			serverErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("server: shutting down", "reason", ctx.Err())
		return nil
	case err := <-serverErrCh:
		log.Error("server: server error causing shutdown", "error", err)
		return err
	}
}
