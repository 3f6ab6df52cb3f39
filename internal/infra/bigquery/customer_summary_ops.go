package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// insertBatchSize caps the rows sent in one streaming insert request.
const insertBatchSize = 500

// InsertCustomerSummaries inserts summary rows into <dataset>.<table>.
func InsertCustomerSummaries(ctx context.Context, projectID, dataset, table string, rows []*CustomerSummaryRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertCustomerSummaries: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertCustomerSummariesWithClient(ctx, client, dataset, table, rows)
}

// InsertCustomerSummariesWithClient streams summary rows into <dataset>.<table>
// using the provided BigQuery client, in batches of insertBatchSize.
func InsertCustomerSummariesWithClient(ctx context.Context, client *bigquery.Client, dataset, table string, rows []*CustomerSummaryRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(dataset).Table(table).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("InsertCustomerSummaries: inserting rows %d-%d: %w", start, end, err)
		}
	}

	return nil
}
