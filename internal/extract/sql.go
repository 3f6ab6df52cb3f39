package extract

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/customer-etl/internal/config"
	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/store/sqlstore"
)

// SQLExtractor runs a query against a sqlite, postgres or duckdb database.
// The connection is opened for each extraction and closed afterwards.
type SQLExtractor struct {
	Name    string
	Dialect string
	DSN     string
	Query   string

	// DB, when set, is used instead of opening DSN. It is not closed.
	DB *sql.DB
}

func (e *SQLExtractor) Extract(ctx context.Context) (domain.Table, error) {
	query := e.Query
	if query == "" {
		query = config.DefaultTransactionQuery
	}

	db := e.DB
	if db == nil {
		opened, _, err := sqlstore.Open(ctx, e.Dialect, e.DSN)
		if err != nil {
			return domain.Table{}, extractError(e.Dialect, "database", err)
		}
		defer opened.Close()
		db = opened
	}

	t, err := QueryTable(ctx, db, e.Name, query)
	if err != nil {
		return domain.Table{}, extractError(e.Dialect, "database", err)
	}
	return t, nil
}

// QueryTable runs query and collects every row of the result.
func QueryTable(ctx context.Context, db *sql.DB, name, query string) (domain.Table, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return domain.Table{}, fmt.Errorf("QueryTable: query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return domain.Table{}, fmt.Errorf("QueryTable: failed to read columns: %w", err)
	}

	t := domain.NewTable(name, columns...)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return domain.Table{}, fmt.Errorf("QueryTable: failed to scan row: %w", err)
		}
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = sqlCell(values[i])
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.Table{}, fmt.Errorf("QueryTable: error iterating rows: %w", err)
	}
	return t, nil
}

// sqlCell normalises driver values: text arrives as []byte from some drivers
// and decimals as driver-specific types with a Float64 method.
func sqlCell(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case interface{ Float64() float64 }:
		return val.Float64()
	default:
		return v
	}
}
