package extract

import (
	"context"

	bq "github.com/dvloznov/customer-etl/internal/bigquery"
	"github.com/dvloznov/customer-etl/internal/domain"
)

// BigQueryExtractor runs a query in BigQuery.
type BigQueryExtractor struct {
	Name   string
	Query  string
	Runner bq.QueryRunner
}

func (e *BigQueryExtractor) Extract(ctx context.Context) (domain.Table, error) {
	t, err := e.Runner.QueryTable(ctx, e.Name, e.Query)
	if err != nil {
		return domain.Table{}, extractError("BigQuery", "query", err)
	}
	return t, nil
}
