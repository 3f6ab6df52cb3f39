// Package extract reads the raw customer and transaction tables from the
// configured sources. Each source kind is one Extractor variant.
package extract

import (
	"context"
	"fmt"
	"net/http"

	bq "github.com/dvloznov/customer-etl/internal/bigquery"
	"github.com/dvloznov/customer-etl/internal/config"
	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/gcs"
)

// Extractor reads one raw table.
type Extractor interface {
	Extract(ctx context.Context) (domain.Table, error)
}

// Deps carries the shared clients extractors may need. Only the clients
// required by the configured source kinds have to be set.
type Deps struct {
	HTTPClient *http.Client
	Storage    gcs.SourceFetcher
	BigQuery   bq.QueryRunner
}

// Error is returned by every extractor when reading its source fails.
type Error struct {
	Kind     string
	Location string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to extract from %s %s: %v", e.Kind, e.Location, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func extractError(kind, location string, err error) error {
	return &Error{Kind: kind, Location: location, Err: err}
}

// New builds the extractor for one source. name becomes the table name.
func New(name string, cfg config.SourceConfig, deps Deps) (Extractor, error) {
	switch cfg.Type {
	case config.SourceCSV:
		return &CSVExtractor{Name: name, Path: cfg.Path}, nil
	case config.SourceSQLite, config.SourcePostgres, config.SourceDuckDB:
		return &SQLExtractor{Name: name, Dialect: cfg.Type, DSN: cfg.DSN, Query: cfg.Query}, nil
	case config.SourceAPI:
		client := deps.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: cfg.Timeout}
		}
		return &APIExtractor{Name: name, URL: cfg.URL, Headers: cfg.Headers, Client: client}, nil
	case config.SourceGCS:
		if deps.Storage == nil {
			return nil, fmt.Errorf("New: gcs source %s requires a storage service", name)
		}
		return &GCSExtractor{Name: name, URI: cfg.URI, Storage: deps.Storage}, nil
	case config.SourceBigQuery:
		if deps.BigQuery == nil {
			return nil, fmt.Errorf("New: bigquery source %s requires a bigquery client", name)
		}
		return &BigQueryExtractor{Name: name, Query: cfg.Query, Runner: deps.BigQuery}, nil
	default:
		return nil, fmt.Errorf("New: unknown source type %q for %s", cfg.Type, name)
	}
}
