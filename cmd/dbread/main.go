// dbread is a small inspection CLI for the CRM SQLite database: it lists
// tables or previews rows from one table.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/crmarena/dbagent/internal/config"
	"github.com/crmarena/dbagent/internal/schema"
)

var (
	dbPath  string
	table   string
	account bool
	limit   int
)

var rootCmd = &cobra.Command{
	Use:   "dbread",
	Short: "Read data from the CRM SQLite database",
	Long:  `dbread lists the tables of the CRM database, or previews a limited number of rows from one table.`,
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite database file (default: CRM_DB_PATH)")
	rootCmd.Flags().StringVar(&table, "table", "", "table name to preview; if omitted, all available tables are listed")
	rootCmd.Flags().BoolVar(&account, "account", false, "shortcut to preview the Account table (same as --table Account)")
	rootCmd.Flags().IntVar(&limit, "limit", 5, "number of rows to fetch from the selected table")
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dbPath = cfg.DBPath
	}
	if account {
		table = "Account"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	m, err := schema.Introspect(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to introspect schema: %w", err)
	}

	if table == "" {
		for _, name := range m.Names() {
			fmt.Println(name)
		}
		return nil
	}

	if _, ok := m.Columns(table); !ok {
		return fmt.Errorf("table %q not found; available: %s", table, strings.Join(m.Names(), ", "))
	}

	// Double quotes keep reserved table names like Case queryable.
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %q LIMIT ?`, table), limit)
	if err != nil {
		return fmt.Errorf("failed to query table: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to get columns: %w", err)
	}

	fmt.Printf("Table: %s\n", table)
	fmt.Printf("Columns: %s\n", strings.Join(columns, ", "))

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			switch val := v.(type) {
			case nil:
				cells[i] = "NULL"
			case []byte:
				cells[i] = string(val)
			default:
				cells[i] = fmt.Sprint(val)
			}
		}
		fmt.Println(strings.Join(cells, " | "))
	}
	return rows.Err()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
