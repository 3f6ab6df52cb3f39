package load

import (
	"context"
	"fmt"

	bq "github.com/dvloznov/customer-etl/internal/bigquery"
)

// BigQueryLoader appends the batch to a BigQuery table. Rows carry the run id
// and run date so each run stays addressable.
type BigQueryLoader struct {
	Repo    bq.SummaryRepository
	Dataset string
	Table   string
}

func (l *BigQueryLoader) Load(ctx context.Context, batch Batch) (LoadResult, error) {
	rows := make([]*bq.CustomerSummaryRow, 0, len(batch.Summaries))
	for _, s := range batch.Summaries {
		rows = append(rows, bq.NewCustomerSummaryRow(s, batch.RunID, batch.CreatedAt))
	}

	if err := l.Repo.InsertCustomerSummaries(ctx, l.Table, rows); err != nil {
		return LoadResult{}, fmt.Errorf("BigQueryLoader.Load: %w", err)
	}

	return LoadResult{
		Destinations: []string{fmt.Sprintf("bigquery:%s.%s", l.Dataset, l.Table)},
		Rows:         len(rows),
	}, nil
}
