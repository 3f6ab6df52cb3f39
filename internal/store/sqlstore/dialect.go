// Package sqlstore holds the database/sql plumbing shared by the SQL
// extractors, the SQL warehouse loader and the SQL run store: driver
// registration, dialect differences and schema migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name   string
	Driver string
	// Goose is the goose dialect name, empty when migrations are unsupported.
	Goose string
	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool
	// Numeric is the column type used for money amounts.
	Numeric string
}

var dialects = map[string]Dialect{
	"sqlite":   {Name: "sqlite", Driver: "sqlite", Goose: "sqlite3", Numeric: "REAL"},
	"postgres": {Name: "postgres", Driver: "pgx", Goose: "postgres", Numbered: true, Numeric: "NUMERIC(18,2)"},
	"duckdb":   {Name: "duckdb", Driver: "duckdb", Numeric: "DECIMAL(18,2)"},
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported SQL dialect %q", name)
	}
	return d, nil
}

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.Numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns count comma-separated bind parameters starting at the
// start-th argument.
func (d Dialect) Placeholders(start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// QuoteIdent quotes a table or column name. All supported engines accept
// double-quoted identifiers.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Open opens and pings a database for the named dialect.
func Open(ctx context.Context, dialect, dsn string) (*sql.DB, Dialect, error) {
	d, err := DialectFor(dialect)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("Open: %w", err)
	}

	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("Open: failed to open %s database: %w", d.Name, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("Open: failed to ping %s database: %w", d.Name, err)
	}

	return db, d, nil
}
