// Package config loads process configuration from the environment.
//
// A .env file in the working directory is honored so local development
// matches production env-var wiring.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath  = "database/crmarena_data.db"
	defaultModel   = "claude-3-5-haiku-20241022"
	defaultMaxRows = 50
	defaultPort    = "8000"

	// EnvAPIKey is the credential consumed by the Anthropic client. It is
	// read lazily by the generator, never at process start, so schema-only
	// flows work without it.
	EnvAPIKey = "ANTHROPIC_API_KEY"

	envDBPath  = "CRM_DB_PATH"
	envModel   = "ANTHROPIC_MODEL"
	envMaxRows = "AGENT_MAX_ROWS"
	envPort    = "PORT"
)

type Config struct {
	// DBPath is the path to the read-only CRM SQLite database file.
	DBPath string
	// Model is the Anthropic model identifier used for SQL generation.
	Model string
	// MaxRows is the row cap injected into generated queries that carry no
	// LIMIT of their own.
	MaxRows int
	// Port is the HTTP API listen port.
	Port string
}

// Load reads configuration from the environment, after loading a .env file
// if one exists. Absent keys fall back to defaults; a malformed AGENT_MAX_ROWS
// is an error rather than a silent default.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DBPath:  defaultDBPath,
		Model:   defaultModel,
		MaxRows: defaultMaxRows,
		Port:    defaultPort,
	}

	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envModel); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(envMaxRows); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid %s value %q: must be a positive integer", envMaxRows, v)
		}
		cfg.MaxRows = n
	}
	if v := os.Getenv(envPort); v != "" {
		cfg.Port = v
	}

	return cfg, nil
}

// APIKey returns the generation credential, if set.
func APIKey() string {
	return os.Getenv(EnvAPIKey)
}
