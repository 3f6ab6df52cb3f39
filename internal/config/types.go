// Package config loads the pipeline configuration from defaults, an optional
// YAML file, ETL_ environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"fmt"
	"time"
)

// Source kinds understood by the extractor factory.
const (
	SourceCSV      = "csv"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceDuckDB   = "duckdb"
	SourceAPI      = "api"
	SourceGCS      = "gcs"
	SourceBigQuery = "bigquery"
)

// Warehouse and run store kinds.
const (
	StoreNone     = "none"
	StoreBigQuery = "bigquery"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreDuckDB   = "duckdb"
)

// Run lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config holds all pipeline configuration.
type Config struct {
	Sources   SourcesConfig   `koanf:"sources"`
	Warehouse WarehouseConfig `koanf:"warehouse"`
	Backup    BackupConfig    `koanf:"backup"`
	Transform TransformConfig `koanf:"transform"`
	Quality   QualityConfig   `koanf:"quality"`
	RunStore  RunStoreConfig  `koanf:"run_store"`
	Jobs      JobsConfig      `koanf:"jobs"`
	API       APIConfig       `koanf:"api"`
	Log       LogConfig       `koanf:"log"`
}

// SourcesConfig names the two inputs of a run.
type SourcesConfig struct {
	Customers    SourceConfig `koanf:"customers"`
	Transactions SourceConfig `koanf:"transactions"`
}

// SourceConfig describes where one input table comes from. Which fields
// matter depends on Type.
type SourceConfig struct {
	Type string `koanf:"type"`

	// csv
	Path string `koanf:"path"`

	// sqlite, postgres, duckdb, bigquery
	DSN   string `koanf:"dsn"`
	Query string `koanf:"query"`

	// api
	URL     string            `koanf:"url"`
	Headers map[string]string `koanf:"headers"`
	Timeout time.Duration     `koanf:"timeout"`

	// gcs
	URI string `koanf:"uri"`

	// bigquery
	ProjectID string `koanf:"project_id"`
}

// Location returns the human readable origin of the source, used in error
// messages.
func (s SourceConfig) Location() string {
	switch s.Type {
	case SourceCSV:
		return s.Path
	case SourceAPI:
		return s.URL
	case SourceGCS:
		return s.URI
	case SourceBigQuery:
		return s.ProjectID
	default:
		return s.DSN
	}
}

// WarehouseConfig is the destination of the customer summary.
type WarehouseConfig struct {
	Type      string `koanf:"type"`
	DSN       string `koanf:"dsn"`
	Table     string `koanf:"table"`
	ProjectID string `koanf:"project_id"`
	Dataset   string `koanf:"dataset"`
}

// BackupConfig controls the timestamped CSV copy of every loaded summary.
type BackupConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
	// Bucket mirrors the backup file to GCS when set.
	Bucket string `koanf:"bucket"`
	Prefix string `koanf:"prefix"`
}

// TransformConfig parameterises the transform core.
type TransformConfig struct {
	MinTotalSpent float64 `koanf:"min_total_spent"`
	// ReferenceTime pins the "now" used for future-date checks (RFC3339).
	// Empty means the wall clock.
	ReferenceTime string `koanf:"reference_time"`
	MinAge        int    `koanf:"min_age"`
	MaxAge        int    `koanf:"max_age"`
}

// ReferenceClock returns the fixed reference time, or ok=false when the wall
// clock should be used.
func (t TransformConfig) ReferenceClock() (ref time.Time, ok bool, err error) {
	if t.ReferenceTime == "" {
		return time.Time{}, false, nil
	}
	ref, err = time.Parse(time.RFC3339, t.ReferenceTime)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("transform.reference_time: %w", err)
	}
	return ref, true, nil
}

// QualityConfig holds the thresholds of the quality gate.
type QualityConfig struct {
	Enforce         bool    `koanf:"enforce"`
	MaxNullFraction float64 `koanf:"max_null_fraction"`
	MaxDuplicates   int     `koanf:"max_duplicates"`
}

// RunStoreConfig is where run statistics and quality reports are recorded.
type RunStoreConfig struct {
	Type      string `koanf:"type"`
	DSN       string `koanf:"dsn"`
	ProjectID string `koanf:"project_id"`
	Dataset   string `koanf:"dataset"`
}

// JobsConfig controls scheduled and queued pipeline runs.
type JobsConfig struct {
	ScheduleInterval time.Duration `koanf:"schedule_interval"`
	MaxRetries       int           `koanf:"max_retries"`
	RetryDelay       time.Duration `koanf:"retry_delay"`
	Workers          int           `koanf:"workers"`
	QueueSize        int           `koanf:"queue_size"`
	Lock             string        `koanf:"lock"`
	RedisAddr        string        `koanf:"redis_addr"`
	LockTTL          time.Duration `koanf:"lock_ttl"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Port   string `koanf:"port"`
	APIKey string `koanf:"api_key"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
