package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/customer-etl/internal/bigquery"
)

// InsertQualityReportsWithClient streams quality reports into
// <dataset>.quality_reports using the provided BigQuery client.
func InsertQualityReportsWithClient(ctx context.Context, client *bigquery.Client, dataset string, rows []*QualityReportRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(dataset).Table(bq.QualityReportsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertQualityReports: inserting rows: %w", err)
	}

	return nil
}
