// Package load writes customer summaries to the warehouse and the backup
// file. Each destination kind is one Loader variant.
package load

import (
	"context"
	"fmt"
	"time"

	bq "github.com/dvloznov/customer-etl/internal/bigquery"
	"github.com/dvloznov/customer-etl/internal/config"
	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/gcs"
)

// Batch is the output of one run handed to the loaders.
type Batch struct {
	RunID     string
	CreatedAt time.Time
	Summaries []domain.CustomerSummary
}

// LoadResult describes where a batch ended up.
type LoadResult struct {
	Destinations []string
	Rows         int
}

// Loader persists one batch of summaries.
type Loader interface {
	Load(ctx context.Context, batch Batch) (LoadResult, error)
}

// Deps carries the shared clients loaders may need.
type Deps struct {
	Summaries bq.SummaryRepository
	Storage   gcs.BackupUploader
}

// New builds the warehouse loader for the configured destination.
func New(cfg config.WarehouseConfig, deps Deps) (Loader, error) {
	switch cfg.Type {
	case config.StoreBigQuery:
		if deps.Summaries == nil {
			return nil, fmt.Errorf("New: bigquery warehouse requires a bigquery repository")
		}
		return &BigQueryLoader{Repo: deps.Summaries, Dataset: cfg.Dataset, Table: cfg.Table}, nil
	case config.StoreSQLite, config.StorePostgres, config.StoreDuckDB:
		return &SQLLoader{Dialect: cfg.Type, DSN: cfg.DSN, Table: cfg.Table}, nil
	default:
		return nil, fmt.Errorf("New: unknown warehouse type %q", cfg.Type)
	}
}

// NewBackup builds the backup loader, or nil when backups are disabled.
func NewBackup(cfg config.BackupConfig, deps Deps) Loader {
	if !cfg.Enabled {
		return nil
	}
	b := &BackupLoader{Dir: cfg.Dir, Bucket: cfg.Bucket, Prefix: cfg.Prefix}
	if cfg.Bucket != "" {
		b.Storage = deps.Storage
	}
	return b
}
