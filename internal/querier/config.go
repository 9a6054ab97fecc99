package querier

import (
	"fmt"
	"log/slog"
)

type Config struct {
	Logger *slog.Logger

	// DBPath is the SQLite database file to query. The database is
	// read-only from this process's perspective.
	DBPath string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}
