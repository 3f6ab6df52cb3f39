package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/customer-etl/internal/bigquery"
	"github.com/dvloznov/customer-etl/internal/domain"
)

// Re-export interfaces and rows from the shared package
type (
	SummaryRepository  = bq.SummaryRepository
	RunRepository      = bq.RunRepository
	QueryRunner        = bq.QueryRunner
	CustomerSummaryRow = bq.CustomerSummaryRow
	PipelineRunRow     = bq.PipelineRunRow
	QualityReportRow   = bq.QualityReportRow
)

// BigQueryRepository is the concrete implementation of the warehouse, run
// history and query interfaces. It holds a shared BigQuery client bound to one
// dataset to avoid creating a new connection for each operation.
type BigQueryRepository struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryRepository creates a repository for projectID/dataset with a
// shared BigQuery client.
func NewBigQueryRepository(ctx context.Context, projectID, dataset string) (*BigQueryRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{
		client:  client,
		dataset: dataset,
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertCustomerSummaries delegates to InsertCustomerSummariesWithClient with the shared client.
func (r *BigQueryRepository) InsertCustomerSummaries(ctx context.Context, table string, rows []*CustomerSummaryRow) error {
	return InsertCustomerSummariesWithClient(ctx, r.client, r.dataset, table, rows)
}

// InsertPipelineRun delegates to InsertPipelineRunWithClient with the shared client.
func (r *BigQueryRepository) InsertPipelineRun(ctx context.Context, row *PipelineRunRow) error {
	return InsertPipelineRunWithClient(ctx, r.client, r.dataset, row)
}

// InsertQualityReports delegates to InsertQualityReportsWithClient with the shared client.
func (r *BigQueryRepository) InsertQualityReports(ctx context.Context, rows []*QualityReportRow) error {
	return InsertQualityReportsWithClient(ctx, r.client, r.dataset, rows)
}

// ListPipelineRuns delegates to ListPipelineRunsWithClient with the shared client.
func (r *BigQueryRepository) ListPipelineRuns(ctx context.Context, limit int) ([]*PipelineRunRow, error) {
	return ListPipelineRunsWithClient(ctx, r.client, r.dataset, limit)
}

// QueryTable delegates to QueryTableWithClient with the shared client.
func (r *BigQueryRepository) QueryTable(ctx context.Context, name, query string) (domain.Table, error) {
	return QueryTableWithClient(ctx, r.client, name, query)
}

var (
	_ SummaryRepository = (*BigQueryRepository)(nil)
	_ RunRepository     = (*BigQueryRepository)(nil)
	_ QueryRunner       = (*BigQueryRepository)(nil)
)
