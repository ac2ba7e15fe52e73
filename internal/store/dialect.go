package store

import (
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour so queries can paper over placeholder and locking differences.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// rebind rewrites '?' placeholders to $1..$n for PostgreSQL.
func rebind(d Dialect, query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func forUpdateClause(d Dialect) string {
	if d == DialectMySQL || d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}
