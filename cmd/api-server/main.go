package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/crmarena/dbagent/internal/agent"
	"github.com/crmarena/dbagent/internal/api/handlers"
	"github.com/crmarena/dbagent/internal/api/metrics"
	"github.com/crmarena/dbagent/internal/config"
	"github.com/crmarena/dbagent/internal/eval"
	"github.com/crmarena/dbagent/internal/logger"
	"github.com/crmarena/dbagent/internal/querier"
	"github.com/crmarena/dbagent/internal/schema"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", "", "HTTP server listen address (defaults to :$PORT)")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to listen on for prometheus metrics (empty disables)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(*verboseFlag)

	listenAddr := *listenAddrFlag
	if listenAddr == "" {
		listenAddr = ":" + cfg.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Introspect the catalog once at startup. Failure here is fatal: there
	// is no sensible query generation without schema.
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	schemaMap, err := schema.Introspect(ctx, db)
	db.Close()
	if err != nil {
		return fmt.Errorf("failed to introspect schema: %w", err)
	}
	log.Info("api: schema introspected", "db", cfg.DBPath, "tables", schemaMap.Len())

	q, err := querier.New(querier.Config{Logger: log, DBPath: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("failed to create querier: %w", err)
	}

	// The generator is built lazily on the first /api/query call so
	// schema-only traffic never requires the credential.
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

	h := handlers.New(log, schemaMap, lazy, eval.NewStore())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Post("/api/query", h.Query)
	r.Get("/api/schema", h.Schema)
	r.Post("/api/eval/runs", h.LogEvalRun)
	r.Get("/api/eval/metrics", h.EvalMetrics)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok\n")); err != nil {
			log.Error("failed to write healthz response", "error", err)
		}
	})

	if *metricsAddrFlag != "" {
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

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("api: server listening", "address", listenAddr, "version", version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("api: shutting down", "reason", ctx.Err())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("api: server stopped")
		return nil
	case err := <-serveErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}
