package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/store/sqlstore"
)

// SQLLoader replaces the contents of a summary table in a sqlite, postgres or
// duckdb database. The table is created when missing; the delete and the
// inserts share one transaction so readers never see a partial table.
type SQLLoader struct {
	Dialect string
	DSN     string
	Table   string

	// DB, when set, is used instead of opening DSN. It is not closed.
	DB *sql.DB
}

var summaryColumns = append(append([]string(nil), domain.SummaryColumns...), "run_id", "loaded_at")

func (l *SQLLoader) Load(ctx context.Context, batch Batch) (LoadResult, error) {
	d, err := sqlstore.DialectFor(l.Dialect)
	if err != nil {
		return LoadResult{}, fmt.Errorf("SQLLoader.Load: %w", err)
	}

	db := l.DB
	if db == nil {
		opened, _, err := sqlstore.Open(ctx, l.Dialect, l.DSN)
		if err != nil {
			return LoadResult{}, fmt.Errorf("SQLLoader.Load: %w", err)
		}
		defer opened.Close()
		db = opened
	}

	table := sqlstore.QuoteIdent(l.Table)
	if _, err := db.ExecContext(ctx, createTableSQL(table, d)); err != nil {
		return LoadResult{}, fmt.Errorf("SQLLoader.Load: failed to create table %s: %w", l.Table, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return LoadResult{}, fmt.Errorf("SQLLoader.Load: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return LoadResult{}, fmt.Errorf("SQLLoader.Load: failed to clear %s: %w", l.Table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(summaryColumns, ", "), d.Placeholders(1, len(summaryColumns)))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return LoadResult{}, fmt.Errorf("SQLLoader.Load: prepare insert: %w", err)
	}
	defer stmt.Close()

	loadedAt := batch.CreatedAt.UTC()
	for _, s := range batch.Summaries {
		if _, err := stmt.ExecContext(ctx,
			s.CustomerID, s.FirstName, s.LastName, s.Email, s.Age, s.City,
			s.TotalSpent, s.AvgTransaction, s.TransactionCount,
			batch.RunID, loadedAt,
		); err != nil {
			return LoadResult{}, fmt.Errorf("SQLLoader.Load: insert customer %s: %w", s.CustomerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return LoadResult{}, fmt.Errorf("SQLLoader.Load: commit: %w", err)
	}

	return LoadResult{
		Destinations: []string{fmt.Sprintf("%s:%s", d.Name, l.Table)},
		Rows:         len(batch.Summaries),
	}, nil
}

func createTableSQL(table string, d sqlstore.Dialect) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    customer_id       TEXT PRIMARY KEY,
    first_name        TEXT,
    last_name         TEXT,
    email             TEXT NOT NULL,
    age               INTEGER,
    city              TEXT,
    total_spent       %[2]s NOT NULL,
    avg_transaction   %[2]s NOT NULL,
    transaction_count INTEGER NOT NULL,
    run_id            TEXT,
    loaded_at         TIMESTAMP
)`, table, d.Numeric)
}
