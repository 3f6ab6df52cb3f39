package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/customer-etl/internal/logger"
	"github.com/dvloznov/customer-etl/internal/store/sqlstore"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// dataset identifies the BigQuery dataset being migrated.
type dataset struct {
	ProjectID string
	DatasetID string
}

func (d dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}

// Pattern to match migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

var (
	target        = flag.String("target", "bigquery", "What to migrate: bigquery or sql (run store)")
	projectID     = flag.String("project", "", "GCP project ID (required for bigquery)")
	datasetID     = flag.String("dataset", "customer_etl", "BigQuery dataset ID")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to BigQuery migrations directory")
	dialect       = flag.String("dialect", "sqlite", "Run store dialect for -target sql (sqlite or postgres)")
	dsn           = flag.String("dsn", "", "Run store DSN for -target sql")
)

func main() {
	flag.Parse()

	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	var err error
	switch *target {
	case "bigquery":
		err = migrateBigQuery(ctx, log)
	case "sql":
		err = migrateRunStore(ctx, log)
	default:
		err = fmt.Errorf("unknown target %q (available: bigquery, sql)", *target)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

// migrateRunStore applies the embedded goose migrations of the SQL run store.
func migrateRunStore(ctx context.Context, log zerolog.Logger) error {
	if *dsn == "" {
		return fmt.Errorf("-dsn flag is required for the sql target")
	}

	store, err := sqlstore.OpenRunStore(ctx, *dialect, *dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	version, err := store.Version(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("dialect", *dialect).Int64("version", version).Msg("Run store is up to date")
	return nil
}

func migrateBigQuery(ctx context.Context, log zerolog.Logger) error {
	// Validate required flags
	if *projectID == "" {
		return fmt.Errorf("-project flag is required. Please specify your GCP project ID")
	}
	ds := dataset{ProjectID: *projectID, DatasetID: *datasetID}

	// Create BigQuery client
	client, err := bigquery.NewClient(ctx, ds.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	defer client.Close()

	log.Info().Str("project", ds.ProjectID).Str("dataset", ds.DatasetID).Msg("Connected to BigQuery")

	// Ensure schema_migrations table exists
	if err := ensureSchemaMigrationsTable(ctx, client, ds); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	dir, err := findMigrationsDir(*migrationsDir)
	if err != nil {
		return err
	}
	migrations, err := readMigrations(dir, ds)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	applied, err := getAppliedMigrations(ctx, client, ds)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	for _, m := range checksumMismatches(migrations, applied) {
		log.Warn().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration was modified after it ran")
	}

	pending := pendingMigrations(migrations, applied)
	for _, migration := range pending {
		mlog := log.With().Str("migration", fmt.Sprintf("%04d_%s", migration.Version, migration.Name)).Logger()
		mlog.Info().Msg("Applying migration")

		if err := runQuery(ctx, client.Query(migration.SQL)); err != nil {
			return fmt.Errorf("failed to execute migration %04d_%s: %w", migration.Version, migration.Name, err)
		}

		if err := recordMigration(ctx, client, ds, migration); err != nil {
			return fmt.Errorf("failed to record migration %04d_%s: %w", migration.Version, migration.Name, err)
		}

		mlog.Info().Msg("Migration applied")
	}

	if len(pending) == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	} else {
		log.Info().Int("count", len(pending)).Msg("Successfully applied migrations")
	}
	return nil
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, ds dataset) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, ds.table("schema_migrations"))

	return runQuery(ctx, client.Query(sql))
}

// findMigrationsDir resolves dir relative to the working directory, falling
// back to the repository root when run from cmd/migrate.
func findMigrationsDir(dir string) (string, error) {
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	alt := filepath.Join("..", "..", dir)
	if _, err := os.Stat(alt); err == nil {
		return alt, nil
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}

// readMigrations reads all migration files from dir, sorted by version.
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders are replaced with ds.
func readMigrations(dir string, ds dataset) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", ds.ProjectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", ds.DatasetID)

		// The checksum covers the file before substitution so the same
		// migration matches across projects.
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// pendingMigrations returns the migrations whose version was not applied yet.
func pendingMigrations(migrations []Migration, applied []AppliedMigration) []Migration {
	appliedVersions := make(map[int]bool, len(applied))
	for _, am := range applied {
		appliedVersions[am.Version] = true
	}

	var pending []Migration
	for _, m := range migrations {
		if !appliedVersions[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// checksumMismatches returns applied migrations whose file content changed.
func checksumMismatches(migrations []Migration, applied []AppliedMigration) []Migration {
	checksums := make(map[int]string, len(applied))
	for _, am := range applied {
		checksums[am.Version] = am.Checksum
	}

	var changed []Migration
	for _, m := range migrations {
		if sum, ok := checksums[m.Version]; ok && sum != "" && sum != m.Checksum {
			changed = append(changed, m)
		}
	}
	return changed
}

// getAppliedMigrations retrieves the list of already applied migrations
func getAppliedMigrations(ctx context.Context, client *bigquery.Client, ds dataset) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, ds.table("schema_migrations"))

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		// If table doesn't exist yet, return empty list
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func recordMigration(ctx context.Context, client *bigquery.Client, ds dataset, migration Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, ds.table("schema_migrations"))

	query := client.Query(sql)
	query.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	}

	return runQuery(ctx, query)
}

// runQuery runs a DDL or DML statement and waits for it to finish.
func runQuery(ctx context.Context, query *bigquery.Query) error {
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
