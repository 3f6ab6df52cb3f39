package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/google/uuid"
)

// RunStore persists run statistics and quality reports in a SQL database.
type RunStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewRunStore wraps an open database. Call Migrate before first use.
func NewRunStore(db *sql.DB, d Dialect) *RunStore {
	return &RunStore{db: db, dialect: d}
}

// OpenRunStore opens the database, applies migrations and returns the store.
func OpenRunStore(ctx context.Context, dialect, dsn string) (*RunStore, error) {
	db, d, err := Open(ctx, dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("OpenRunStore: %w", err)
	}
	if err := Migrate(ctx, db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenRunStore: %w", err)
	}
	return NewRunStore(db, d), nil
}

// Version returns the applied schema version.
func (s *RunStore) Version(ctx context.Context) (int64, error) {
	v, err := MigrationVersion(ctx, s.db, s.dialect)
	if err != nil {
		return 0, fmt.Errorf("Version: %w", err)
	}
	return v, nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores the final statistics of a run and its quality reports in
// one transaction.
func (s *RunStore) RecordRun(ctx context.Context, stats domain.RunStats, reports []domain.DataQualityReport) error {
	errs := stats.Errors
	if errs == nil {
		errs = []string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("RecordRun: marshal errors: %w", err)
	}

	var finished sql.NullTime
	if !stats.EndTime.IsZero() {
		finished = sql.NullTime{Time: stats.EndTime.UTC(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("RecordRun: begin transaction: %w", err)
	}
	defer tx.Rollback()

	d := s.dialect
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO etl_runs (run_id, started_at, finished_at, status, records_extracted, records_transformed, records_loaded, errors) VALUES (%s)`,
		d.Placeholders(1, 8)),
		stats.RunID, stats.StartTime.UTC(), finished, string(stats.Status),
		stats.RecordsExtracted, stats.RecordsTransformed, stats.RecordsLoaded, string(errsJSON),
	)
	if err != nil {
		return fmt.Errorf("RecordRun: insert run %s: %w", stats.RunID, err)
	}

	insertReport := fmt.Sprintf(
		`INSERT INTO quality_reports (report_id, run_id, dataset, total_records, duplicate_records, missing_values, data_types, generated_at) VALUES (%s)`,
		d.Placeholders(1, 8))
	for _, r := range reports {
		missing, err := json.Marshal(r.MissingValues)
		if err != nil {
			return fmt.Errorf("RecordRun: marshal missing values: %w", err)
		}
		types, err := json.Marshal(r.DataTypes)
		if err != nil {
			return fmt.Errorf("RecordRun: marshal data types: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertReport,
			uuid.NewString(), stats.RunID, r.Dataset, r.TotalRecords, r.DuplicateRecords,
			string(missing), string(types), r.GeneratedAt.UTC(),
		); err != nil {
			return fmt.Errorf("RecordRun: insert %s quality report: %w", r.Dataset, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("RecordRun: commit: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]domain.RunStats, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT run_id, started_at, finished_at, status, records_extracted, records_transformed, records_loaded, errors FROM etl_runs ORDER BY started_at DESC LIMIT %s`,
		s.dialect.Placeholder(1)), limit)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunStats
	for rows.Next() {
		var (
			run      domain.RunStats
			started  time.Time
			finished sql.NullTime
			status   string
			errsJSON string
		)
		if err := rows.Scan(&run.RunID, &started, &finished, &status,
			&run.RecordsExtracted, &run.RecordsTransformed, &run.RecordsLoaded, &errsJSON); err != nil {
			return nil, fmt.Errorf("ListRuns: scan: %w", err)
		}
		run.StartTime = started
		if finished.Valid {
			run.EndTime = finished.Time
		}
		run.Status = domain.RunStatus(status)
		if errsJSON != "" {
			if err := json.Unmarshal([]byte(errsJSON), &run.Errors); err != nil {
				return nil, fmt.Errorf("ListRuns: decode errors of run %s: %w", run.RunID, err)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRuns: rows: %w", err)
	}

	return runs, nil
}

// QualityReports returns the reports recorded for a run.
func (s *RunStore) QualityReports(ctx context.Context, runID string) ([]domain.DataQualityReport, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT dataset, total_records, duplicate_records, missing_values, data_types, generated_at FROM quality_reports WHERE run_id = %s ORDER BY dataset`,
		s.dialect.Placeholder(1)), runID)
	if err != nil {
		return nil, fmt.Errorf("QualityReports: query: %w", err)
	}
	defer rows.Close()

	var reports []domain.DataQualityReport
	for rows.Next() {
		var (
			r              domain.DataQualityReport
			missing, types string
		)
		if err := rows.Scan(&r.Dataset, &r.TotalRecords, &r.DuplicateRecords, &missing, &types, &r.GeneratedAt); err != nil {
			return nil, fmt.Errorf("QualityReports: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(missing), &r.MissingValues); err != nil {
			return nil, fmt.Errorf("QualityReports: decode missing values: %w", err)
		}
		if err := json.Unmarshal([]byte(types), &r.DataTypes); err != nil {
			return nil, fmt.Errorf("QualityReports: decode data types: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("QualityReports: rows: %w", err)
	}

	return reports, nil
}
