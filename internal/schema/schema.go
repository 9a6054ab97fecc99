// Package schema reads table and column names from the SQLite catalog.
//
// The resulting Map grounds both prompt construction and the reserved-word
// quoting performed by the safety gate. It is built once per process from the
// live catalog and treated as read-only afterward; there is no refresh.
package schema

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Table is a single user table with its columns in catalog-declared order.
type Table struct {
	Name    string
	Columns []string
}

// Map is an ordered table → columns mapping. Tables are in catalog order
// (sqlite_master sorted by name), columns in declaration order.
type Map struct {
	tables []Table
	index  map[string]int
}

// Introspect builds a Map covering every user table in the database. Any
// catalog-read error propagates: there is no sensible query generation
// without schema.
func Introspect(ctx context.Context, db *sql.DB) (*Map, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table list: %w", err)
	}

	m := &Map{index: make(map[string]int, len(names))}
	for _, name := range names {
		columns, err := tableColumns(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of table %s: %w", name, err)
		}
		m.index[name] = len(m.tables)
		m.tables = append(m.tables, Table{Name: name, Columns: columns})
	}
	return m, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	// Double quotes keep reserved-word table names like Case valid here too.
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid          int
			name, ctype  string
			notNull, pk  int
			defaultValue sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// FromTables builds a Map from an explicit table list, preserving order.
func FromTables(tables []Table) *Map {
	m := &Map{
		tables: make([]Table, len(tables)),
		index:  make(map[string]int, len(tables)),
	}
	copy(m.tables, tables)
	for i, t := range tables {
		m.index[t.Name] = i
	}
	return m
}

// Tables returns the tables in catalog order.
func (m *Map) Tables() []Table {
	return m.tables
}

// Names returns the table names in catalog order.
func (m *Map) Names() []string {
	names := make([]string, len(m.tables))
	for i, t := range m.tables {
		names[i] = t.Name
	}
	return names
}

// Columns returns the column names of a table, or false if unknown.
func (m *Map) Columns(table string) ([]string, bool) {
	i, ok := m.index[table]
	if !ok {
		return nil, false
	}
	return m.tables[i].Columns, true
}

// Len returns the number of tables.
func (m *Map) Len() int {
	return len(m.tables)
}

// PromptListing renders the mapping as a bulleted "- Table: col, col" list
// for grounding the generation prompt.
func (m *Map) PromptListing() string {
	var b strings.Builder
	for _, t := range m.tables {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, strings.Join(t.Columns, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// MarshalJSON renders the mapping as a JSON object whose keys appear in
// catalog order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range m.tables {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		columns := t.Columns
		if columns == nil {
			columns = []string{}
		}
		val, err := json.Marshal(columns)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
