package config

import "time"

// Default configuration values.
const (
	DefaultCustomersPath    = "data/input/customers.csv"
	DefaultTransactionsDSN  = "data/input/transactions.db"
	DefaultTransactionQuery = "SELECT * FROM transactions"
	DefaultWarehouseTable   = "customer_summary"
	DefaultWarehouseDSN     = "data/output/warehouse.db"
	DefaultBackupDir        = "data/output"
	DefaultMinTotalSpent    = 500.0
	DefaultMinAge           = 18
	DefaultMaxAge           = 120
	DefaultMaxNullFraction  = 0.05
	DefaultScheduleInterval = 24 * time.Hour
	DefaultMaxRetries       = 2
	DefaultRetryDelay       = 5 * time.Minute
	DefaultWorkers          = 1
	DefaultQueueSize        = 100
	DefaultLockTTL          = 2 * time.Hour
	DefaultAPITimeout       = 30 * time.Second
	DefaultPort             = "8080"
)

// defaults is the lowest-precedence layer of the configuration.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"sources.customers.type":       SourceCSV,
		"sources.customers.path":       DefaultCustomersPath,
		"sources.customers.timeout":    DefaultAPITimeout.String(),
		"sources.transactions.type":    SourceSQLite,
		"sources.transactions.dsn":     DefaultTransactionsDSN,
		"sources.transactions.query":   DefaultTransactionQuery,
		"sources.transactions.timeout": DefaultAPITimeout.String(),

		"warehouse.type":  StoreSQLite,
		"warehouse.dsn":   DefaultWarehouseDSN,
		"warehouse.table": DefaultWarehouseTable,

		"backup.enabled": true,
		"backup.dir":     DefaultBackupDir,
		"backup.prefix":  "backups",

		"transform.min_total_spent": DefaultMinTotalSpent,
		"transform.reference_time":  "",
		"transform.min_age":         DefaultMinAge,
		"transform.max_age":         DefaultMaxAge,

		"quality.enforce":           false,
		"quality.max_null_fraction": DefaultMaxNullFraction,
		"quality.max_duplicates":    0,

		"run_store.type": StoreNone,

		"jobs.schedule_interval": DefaultScheduleInterval.String(),
		"jobs.max_retries":       DefaultMaxRetries,
		"jobs.retry_delay":       DefaultRetryDelay.String(),
		"jobs.workers":           DefaultWorkers,
		"jobs.queue_size":        DefaultQueueSize,
		"jobs.lock":              LockMemory,
		"jobs.lock_ttl":          DefaultLockTTL.String(),

		"api.port": DefaultPort,

		"log.level":  "info",
		"log.format": "console",
	}
}
