package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate runs all pending run store migrations.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	if d.Goose == "" {
		return fmt.Errorf("Migrate: migrations are not supported for %s", d.Name)
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(d.Goose); err != nil {
		return fmt.Errorf("Migrate: failed to set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("Migrate: failed to run migrations: %w", err)
	}

	return nil
}

// MigrationVersion returns the current migration version.
func MigrationVersion(ctx context.Context, db *sql.DB, d Dialect) (int64, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(d.Goose); err != nil {
		return 0, fmt.Errorf("MigrationVersion: failed to set dialect: %w", err)
	}

	return goose.GetDBVersionContext(ctx, db)
}
