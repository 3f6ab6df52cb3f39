package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/customer-etl/internal/domain"
)

// Table names inside the configured dataset.
const (
	PipelineRunsTable   = "pipeline_runs"
	QualityReportsTable = "quality_reports"
)

// SummaryRepository writes aggregated customer summaries to the warehouse.
type SummaryRepository interface {
	// InsertCustomerSummaries streams rows into the given table of the dataset.
	InsertCustomerSummaries(ctx context.Context, table string, rows []*CustomerSummaryRow) error
}

// RunRepository records pipeline runs and the quality reports they produced.
type RunRepository interface {
	// InsertPipelineRun inserts the final state of one run.
	InsertPipelineRun(ctx context.Context, row *PipelineRunRow) error

	// InsertQualityReports inserts a batch of quality reports.
	InsertQualityReports(ctx context.Context, rows []*QualityReportRow) error

	// ListPipelineRuns returns the most recent runs, newest first.
	ListPipelineRuns(ctx context.Context, limit int) ([]*PipelineRunRow, error)
}

// QueryRunner reads the result of a SQL query as a raw table.
type QueryRunner interface {
	QueryTable(ctx context.Context, name, query string) (domain.Table, error)
}

// CustomerSummaryRow represents one aggregated customer in BigQuery.
type CustomerSummaryRow struct {
	RunID   string     `bigquery:"run_id"`
	RunDate civil.Date `bigquery:"run_date"`

	CustomerID string              `bigquery:"customer_id"`
	FirstName  bigquery.NullString `bigquery:"first_name"`
	LastName   bigquery.NullString `bigquery:"last_name"`
	Email      string              `bigquery:"email"`
	Age        int64               `bigquery:"age"`
	City       bigquery.NullString `bigquery:"city"`

	TotalSpent       *big.Rat `bigquery:"total_spent"`     // NUMERIC
	AvgTransaction   *big.Rat `bigquery:"avg_transaction"` // NUMERIC
	TransactionCount int64    `bigquery:"transaction_count"`

	LoadedTS time.Time `bigquery:"loaded_ts"`
}

// NewCustomerSummaryRow converts a summary into its warehouse row.
func NewCustomerSummaryRow(s domain.CustomerSummary, runID string, loadedAt time.Time) *CustomerSummaryRow {
	return &CustomerSummaryRow{
		RunID:            runID,
		RunDate:          civil.DateOf(loadedAt),
		CustomerID:       s.CustomerID,
		FirstName:        nullString(s.FirstName),
		LastName:         nullString(s.LastName),
		Email:            s.Email,
		Age:              int64(s.Age),
		City:             nullString(s.City),
		TotalSpent:       ratFromCents(s.TotalSpent),
		AvgTransaction:   ratFromCents(s.AvgTransaction),
		TransactionCount: int64(s.TransactionCount),
		LoadedTS:         loadedAt,
	}
}

// ToSummary converts a warehouse row back into a summary.
func (r *CustomerSummaryRow) ToSummary() domain.CustomerSummary {
	return domain.CustomerSummary{
		CustomerID:       r.CustomerID,
		FirstName:        r.FirstName.StringVal,
		LastName:         r.LastName.StringVal,
		Email:            r.Email,
		Age:              int(r.Age),
		City:             r.City.StringVal,
		TotalSpent:       ratFloat(r.TotalSpent),
		AvgTransaction:   ratFloat(r.AvgTransaction),
		TransactionCount: int(r.TransactionCount),
	}
}

// PipelineRunRow represents one pipeline run in BigQuery.
type PipelineRunRow struct {
	RunID string `bigquery:"run_id"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	Status string `bigquery:"status"`

	RecordsExtracted   int64 `bigquery:"records_extracted"`
	RecordsTransformed int64 `bigquery:"records_transformed"`
	RecordsLoaded      int64 `bigquery:"records_loaded"`

	Errors []string `bigquery:"errors"` // REPEATED STRING

	Metadata bigquery.NullJSON `bigquery:"metadata"`
}

// NewPipelineRunRow converts run statistics into their warehouse row. The
// run duration is kept in metadata.
func NewPipelineRunRow(s domain.RunStats) (*PipelineRunRow, error) {
	metadata, err := json.Marshal(map[string]any{
		"duration_seconds": s.Duration().Seconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("NewPipelineRunRow: marshal metadata: %w", err)
	}
	row := &PipelineRunRow{
		RunID:              s.RunID,
		StartedTS:          s.StartTime,
		Status:             string(s.Status),
		RecordsExtracted:   int64(s.RecordsExtracted),
		RecordsTransformed: int64(s.RecordsTransformed),
		RecordsLoaded:      int64(s.RecordsLoaded),
		Errors:             append([]string{}, s.Errors...),
		Metadata:           bigquery.NullJSON{JSONVal: string(metadata), Valid: true},
	}
	if !s.EndTime.IsZero() {
		row.FinishedTS = bigquery.NullTimestamp{Timestamp: s.EndTime, Valid: true}
	}
	return row, nil
}

// ToRunStats converts a warehouse row back into run statistics.
func (r *PipelineRunRow) ToRunStats() domain.RunStats {
	s := domain.RunStats{
		RunID:              r.RunID,
		StartTime:          r.StartedTS,
		Status:             domain.RunStatus(r.Status),
		RecordsExtracted:   int(r.RecordsExtracted),
		RecordsTransformed: int(r.RecordsTransformed),
		RecordsLoaded:      int(r.RecordsLoaded),
	}
	if r.FinishedTS.Valid {
		s.EndTime = r.FinishedTS.Timestamp
	}
	if len(r.Errors) > 0 {
		s.Errors = append([]string(nil), r.Errors...)
	}
	return s
}

// QualityReportRow represents one data quality report in BigQuery.
type QualityReportRow struct {
	ReportID string `bigquery:"report_id"`
	RunID    string `bigquery:"run_id"`
	Dataset  string `bigquery:"dataset"`

	TotalRecords     int64 `bigquery:"total_records"`
	DuplicateRecords int64 `bigquery:"duplicate_records"`

	MissingValues bigquery.NullJSON `bigquery:"missing_values"`
	DataTypes     bigquery.NullJSON `bigquery:"data_types"`

	GeneratedTS time.Time `bigquery:"generated_ts"`
}

// NewQualityReportRow converts a quality report into its warehouse row.
func NewQualityReportRow(reportID, runID string, r domain.DataQualityReport) (*QualityReportRow, error) {
	missing, err := json.Marshal(r.MissingValues)
	if err != nil {
		return nil, fmt.Errorf("NewQualityReportRow: marshal missing values: %w", err)
	}
	types, err := json.Marshal(r.DataTypes)
	if err != nil {
		return nil, fmt.Errorf("NewQualityReportRow: marshal data types: %w", err)
	}
	return &QualityReportRow{
		ReportID:         reportID,
		RunID:            runID,
		Dataset:          r.Dataset,
		TotalRecords:     int64(r.TotalRecords),
		DuplicateRecords: int64(r.DuplicateRecords),
		MissingValues:    bigquery.NullJSON{JSONVal: string(missing), Valid: true},
		DataTypes:        bigquery.NullJSON{JSONVal: string(types), Valid: true},
		GeneratedTS:      r.GeneratedAt,
	}, nil
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// ratFromCents converts a two-decimal amount to an exact NUMERIC value.
func ratFromCents(v float64) *big.Rat {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', 2, 64))
	if !ok {
		return new(big.Rat)
	}
	return r
}

func ratFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}
