package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/customer-etl/internal/bigquery"
	"google.golang.org/api/iterator"
)

// maxErrorLen truncates each recorded error message.
const maxErrorLen = 2000

// InsertPipelineRunWithClient inserts the final state of a run into
// <dataset>.pipeline_runs. Uses DML INSERT so the row is queryable at once.
func InsertPipelineRunWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *PipelineRunRow) error {
	errs := make([]string, 0, len(row.Errors))
	for _, e := range row.Errors {
		if len(e) > maxErrorLen {
			e = e[:maxErrorLen]
		}
		errs = append(errs, e)
	}

	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s.%s (
			run_id, started_ts, finished_ts, status,
			records_extracted, records_transformed, records_loaded,
			errors, metadata
		)
		VALUES (
			@run_id, @started_ts, @finished_ts, @status,
			@records_extracted, @records_transformed, @records_loaded,
			@errors, PARSE_JSON(@metadata)
		)
	`, dataset, bq.PipelineRunsTable))

	metadata := "{}"
	if row.Metadata.Valid {
		metadata = row.Metadata.JSONVal
	}

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "started_ts", Value: row.StartedTS},
		{Name: "finished_ts", Value: row.FinishedTS},
		{Name: "status", Value: row.Status},
		{Name: "records_extracted", Value: row.RecordsExtracted},
		{Name: "records_transformed", Value: row.RecordsTransformed},
		{Name: "records_loaded", Value: row.RecordsLoaded},
		{Name: "errors", Value: errs},
		{Name: "metadata", Value: metadata},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertPipelineRun: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertPipelineRun: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertPipelineRun: job error: %w", err)
	}

	return nil
}

// ListPipelineRunsWithClient returns the latest runs ordered by start time,
// newest first, using the provided BigQuery client.
func ListPipelineRunsWithClient(ctx context.Context, client *bigquery.Client, dataset string, limit int) ([]*PipelineRunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			started_ts,
			finished_ts,
			status,
			records_extracted,
			records_transformed,
			records_loaded,
			errors,
			metadata
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, dataset, bq.PipelineRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPipelineRuns: query read: %w", err)
	}

	var rows []*PipelineRunRow
	for {
		var r PipelineRunRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListPipelineRuns: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
