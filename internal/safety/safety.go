// Package safety vets model-generated SQL before it reaches the database.
//
// The gate is textual, not parse-aware: a LIMIT inside a string literal or a
// mutation smuggled after a leading SELECT can fool it. That is an accepted
// limitation of the contract; the checks here match the behavior the
// generation prompts were written against.
package safety

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/crmarena/dbagent/internal/schema"
)

// ErrNotSelect marks statements rejected by the read-only check.
var ErrNotSelect = errors.New("only SELECT statements are allowed")

// reservedTables are SQLite keywords that are also valid table names in the
// CRM schema. Occurrences of matching table names must be double-quoted or
// otherwise-correct generated SQL fails to parse. Kept as a fixed narrow set
// rather than the full keyword list so quoting stays predictable.
var reservedTables = map[string]struct{}{
	"case":  {},
	"order": {},
}

var (
	quotePatterns   = map[string]*regexp.Regexp{}
	quotePatternsMu sync.Mutex
)

// quotePattern matches whole-word occurrences of the identifier together
// with any directly adjacent double quotes. RE2 has no lookarounds, so the
// already-quoted check happens on the captured match instead.
func quotePattern(table string) *regexp.Regexp {
	quotePatternsMu.Lock()
	defer quotePatternsMu.Unlock()
	re, ok := quotePatterns[table]
	if !ok {
		re = regexp.MustCompile(`"?\b` + regexp.QuoteMeta(table) + `\b"?`)
		quotePatterns[table] = re
	}
	return re
}

// QuoteReservedTables wraps reserved-word table names in double quotes.
// Matching is case-sensitive to the identifier as it appears in the schema,
// word-bounded, and leaves already-quoted occurrences untouched.
func QuoteReservedTables(sql string, m *schema.Map) string {
	for _, table := range m.Names() {
		if _, ok := reservedTables[strings.ToLower(table)]; !ok {
			continue
		}
		sql = quotePattern(table).ReplaceAllStringFunc(sql, func(match string) string {
			if strings.HasPrefix(match, `"`) || strings.HasSuffix(match, `"`) {
				return match
			}
			return `"` + match + `"`
		})
	}
	return sql
}

// EnsureLimit appends a LIMIT clause unless the statement already contains
// one. The check is a case-insensitive substring test; SQLite accepts LIMIT
// at the end of the query.
func EnsureLimit(sql string, maxRows int) string {
	if strings.Contains(strings.ToLower(sql), "limit") {
		return sql
	}
	trimmed := strings.TrimRight(strings.TrimRight(sql, " \t\r\n"), ";")
	return fmt.Sprintf("%s LIMIT %d", trimmed, maxRows)
}

// EnforceSelectOnly rejects any statement whose trimmed, lower-cased text
// does not start with "select". This is the sole mutation-prevention
// control.
func EnforceSelectOnly(sql string) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(sql)), "select") {
		return ErrNotSelect
	}
	return nil
}

// Sanitize applies the gate to a candidate statement: reserved identifiers
// quoted, row cap enforced, read-only contract checked, in that order. The
// returned SQL is the statement to execute; an error means the statement must
// not run.
func Sanitize(sql string, m *schema.Map, maxRows int) (string, error) {
	sql = QuoteReservedTables(sql, m)
	sql = EnsureLimit(sql, maxRows)
	if err := EnforceSelectOnly(sql); err != nil {
		return "", err
	}
	return sql, nil
}
