package db

import (
	"database/sql"
	"strings"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Rebind converts $N placeholders to the dialect's form. Queries must not
// reuse a placeholder number because sqlite binds "?" positionally. A
// trailing FOR UPDATE is dropped for sqlite, whose writers are already
// serialized.
func (d Dialect) Rebind(query string) string {
	if d != SQLite {
		return query
	}
	query = stripRowLock(query)
	if !strings.Contains(query, "$") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '$' && !inQuote && i+1 < len(query) && isDigit(query[i+1]):
			b.WriteByte('?')
			for i+1 < len(query) && isDigit(query[i+1]) {
				i++
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// TxOptions returns the isolation used for multi-entity writes.
func (d Dialect) TxOptions() *sql.TxOptions {
	if d == Postgres {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func stripRowLock(query string) string {
	trimmed := strings.TrimRight(query, " \t\n;")
	if len(trimmed) < len(rowLock) || !strings.EqualFold(trimmed[len(trimmed)-len(rowLock):], rowLock) {
		return query
	}
	return strings.TrimRight(trimmed[:len(trimmed)-len(rowLock)], " \t\n")
}

const rowLock = "FOR UPDATE"
