package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/customer-etl/internal/domain"
	"google.golang.org/api/iterator"
)

// QueryTableWithClient runs query and returns the result as a raw table named
// name. Column order follows the result schema.
func QueryTableWithClient(ctx context.Context, client *bigquery.Client, name, query string) (domain.Table, error) {
	it, err := client.Query(query).Read(ctx)
	if err != nil {
		return domain.Table{}, fmt.Errorf("QueryTable: query read: %w", err)
	}

	t := domain.NewTable(name)
	for {
		var values map[string]bigquery.Value
		err := it.Next(&values)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("QueryTable: iter next: %w", err)
		}

		row := make(domain.Row, len(values))
		for col, v := range values {
			row[col] = cellValue(v)
		}
		t.Rows = append(t.Rows, row)
	}

	for _, field := range it.Schema {
		t.Columns = append(t.Columns, field.Name)
	}

	return t, nil
}

// cellValue converts BigQuery values into the cell kinds the transform core
// understands.
func cellValue(v bigquery.Value) any {
	switch val := v.(type) {
	case *big.Rat:
		if val == nil {
			return nil
		}
		f, _ := val.Float64()
		return f
	case []bigquery.Value, map[string]bigquery.Value:
		return fmt.Sprint(val)
	default:
		return val
	}
}
