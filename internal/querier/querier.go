// Package querier executes vetted SELECT statements against the CRM SQLite
// database and materializes tabular results.
package querier

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// ExecError wraps a database-level execution failure (syntax error, missing
// table, type mismatch). It is a client-facing bad-request condition, never a
// crash; the underlying database message is surfaced verbatim.
type ExecError struct {
	Err error
}

func (e *ExecError) Error() string {
	return e.Err.Error()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

type Querier struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Querier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate querier config: %w", err)
	}
	return &Querier{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

type QueryResponse struct {
	Columns []string   `json:"columns"`
	Rows    []QueryRow `json:"rows"`
	Count   int        `json:"count"`
}

type QueryRow map[string]any

// Query opens a connection, executes the statement, and returns columns in
// positional order with each row projected into a column-keyed map. The
// connection is opened and closed per call; query volume is low and there is
// no concurrency requirement to amortize setup.
func (q *Querier) Query(ctx context.Context, sqlText string) (QueryResponse, error) {
	db, err := sql.Open("sqlite3", q.cfg.DBPath)
	if err != nil {
		return QueryResponse{}, &ExecError{Err: err}
	}
	defer db.Close()

	q.log.Debug("querier: executing statement", "sql", sqlText)

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return QueryResponse{}, &ExecError{Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResponse{}, &ExecError{Err: err}
	}

	var resultRows []QueryRow
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return QueryResponse{}, &ExecError{Err: err}
		}

		row := make(QueryRow)
		for i, col := range columns {
			val := values[i]
			if val == nil {
				row[col] = nil
			} else {
				switch v := val.(type) {
				case []byte:
					row[col] = string(v)
				default:
					row[col] = val
				}
			}
		}
		resultRows = append(resultRows, row)
	}

	if err := rows.Err(); err != nil {
		return QueryResponse{}, &ExecError{Err: err}
	}

	return QueryResponse{
		Columns: columns,
		Rows:    resultRows,
		Count:   len(resultRows),
	}, nil
}
