package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	sourceTypes    = []string{SourceCSV, SourceSQLite, SourcePostgres, SourceDuckDB, SourceAPI, SourceGCS, SourceBigQuery}
	warehouseTypes = []string{StoreBigQuery, StoreSQLite, StorePostgres, StoreDuckDB}
	runStoreTypes  = []string{StoreNone, StoreBigQuery, StoreSQLite, StorePostgres}
	lockTypes      = []string{LockMemory, LockRedis}
)

// Validate checks that the configuration is complete and consistent. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.Sources.Customers.validate("sources.customers")...)
	errs = append(errs, c.Sources.Transactions.validate("sources.transactions")...)

	if !oneOf(c.Warehouse.Type, warehouseTypes) {
		errs = append(errs, unknownType("warehouse.type", c.Warehouse.Type, warehouseTypes))
	}
	if c.Warehouse.Table == "" {
		errs = append(errs, fmt.Errorf("warehouse.table is required"))
	}
	if c.Warehouse.Type == StoreBigQuery {
		if c.Warehouse.ProjectID == "" || c.Warehouse.Dataset == "" {
			errs = append(errs, fmt.Errorf("warehouse.project_id and warehouse.dataset are required for bigquery"))
		}
	} else if c.Warehouse.Type != "" && c.Warehouse.DSN == "" {
		errs = append(errs, fmt.Errorf("warehouse.dsn is required for %s", c.Warehouse.Type))
	}

	if c.Backup.Enabled && c.Backup.Dir == "" {
		errs = append(errs, fmt.Errorf("backup.dir is required when backup is enabled"))
	}

	if c.Transform.MinTotalSpent < 0 {
		errs = append(errs, fmt.Errorf("transform.min_total_spent must not be negative"))
	}
	if c.Transform.MinAge < 0 || c.Transform.MaxAge < c.Transform.MinAge {
		errs = append(errs, fmt.Errorf("transform age range [%d, %d] is invalid", c.Transform.MinAge, c.Transform.MaxAge))
	}
	if _, _, err := c.Transform.ReferenceClock(); err != nil {
		errs = append(errs, err)
	}

	if c.Quality.MaxNullFraction < 0 || c.Quality.MaxNullFraction > 1 {
		errs = append(errs, fmt.Errorf("quality.max_null_fraction must be within [0, 1]"))
	}
	if c.Quality.MaxDuplicates < 0 {
		errs = append(errs, fmt.Errorf("quality.max_duplicates must not be negative"))
	}

	if !oneOf(c.RunStore.Type, runStoreTypes) {
		errs = append(errs, unknownType("run_store.type", c.RunStore.Type, runStoreTypes))
	}
	switch c.RunStore.Type {
	case StoreBigQuery:
		if c.RunStore.ProjectID == "" || c.RunStore.Dataset == "" {
			errs = append(errs, fmt.Errorf("run_store.project_id and run_store.dataset are required for bigquery"))
		}
	case StoreSQLite, StorePostgres:
		if c.RunStore.DSN == "" {
			errs = append(errs, fmt.Errorf("run_store.dsn is required for %s", c.RunStore.Type))
		}
	}

	if c.Jobs.ScheduleInterval < 0 {
		errs = append(errs, fmt.Errorf("jobs.schedule_interval must not be negative"))
	}
	if c.Jobs.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("jobs.max_retries must not be negative"))
	}
	if c.Jobs.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("jobs.retry_delay must not be negative"))
	}
	if c.Jobs.Workers < 1 {
		errs = append(errs, fmt.Errorf("jobs.workers must be at least 1"))
	}
	if !oneOf(c.Jobs.Lock, lockTypes) {
		errs = append(errs, unknownType("jobs.lock", c.Jobs.Lock, lockTypes))
	}
	if c.Jobs.Lock == LockRedis && c.Jobs.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("jobs.redis_addr is required for the redis lock"))
	}

	return errors.Join(errs...)
}

func (s SourceConfig) validate(name string) []error {
	var errs []error
	if !oneOf(s.Type, sourceTypes) {
		return append(errs, unknownType(name+".type", s.Type, sourceTypes))
	}
	var missing string
	switch s.Type {
	case SourceCSV:
		if s.Path == "" {
			missing = "path"
		}
	case SourceAPI:
		if s.URL == "" {
			missing = "url"
		}
	case SourceGCS:
		if !strings.HasPrefix(s.URI, "gs://") {
			errs = append(errs, fmt.Errorf("%s.uri must be a gs:// URI, got %q", name, s.URI))
		}
	case SourceBigQuery:
		if s.ProjectID == "" {
			missing = "project_id"
		} else if s.Query == "" {
			missing = "query"
		}
	default:
		if s.DSN == "" {
			missing = "dsn"
		}
	}
	if missing != "" {
		errs = append(errs, fmt.Errorf("%s.%s is required for %s sources", name, missing, s.Type))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must not be negative", name))
	}
	return errs
}

func unknownType(key, got string, allowed []string) error {
	return fmt.Errorf("unknown %s %q (available: %s)", key, got, strings.Join(allowed, ", "))
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
