package bigquery

import (
	"context"
	"fmt"

	bq "github.com/dvloznov/customer-etl/internal/bigquery"
	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/google/uuid"
)

// RunRecorder stores run statistics and quality reports in the
// pipeline_runs and quality_reports tables.
type RunRecorder struct {
	repo RunRepository
}

// NewRunRecorder creates a recorder backed by repo.
func NewRunRecorder(repo RunRepository) *RunRecorder {
	return &RunRecorder{repo: repo}
}

// RecordRun inserts the run row, then its quality reports.
func (r *RunRecorder) RecordRun(ctx context.Context, stats domain.RunStats, reports []domain.DataQualityReport) error {
	row, err := bq.NewPipelineRunRow(stats)
	if err != nil {
		return fmt.Errorf("RecordRun: %w", err)
	}
	if err := r.repo.InsertPipelineRun(ctx, row); err != nil {
		return fmt.Errorf("RecordRun: %w", err)
	}

	rows := make([]*QualityReportRow, 0, len(reports))
	for _, rep := range reports {
		qr, err := bq.NewQualityReportRow(uuid.NewString(), stats.RunID, rep)
		if err != nil {
			return fmt.Errorf("RecordRun: %w", err)
		}
		rows = append(rows, qr)
	}
	if err := r.repo.InsertQualityReports(ctx, rows); err != nil {
		return fmt.Errorf("RecordRun: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRecorder) ListRuns(ctx context.Context, limit int) ([]domain.RunStats, error) {
	rows, err := r.repo.ListPipelineRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	runs := make([]domain.RunStats, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.ToRunStats())
	}
	return runs, nil
}
