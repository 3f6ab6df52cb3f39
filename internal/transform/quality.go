package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/customer-etl/internal/domain"
)

// Inferred column types reported by GenerateQualityReport.
const (
	TypeInt      = "int64"
	TypeFloat    = "float64"
	TypeBool     = "bool"
	TypeDatetime = "datetime"
	TypeString   = "string"
	TypeMixed    = "mixed"
	TypeNull     = "null"
)

// GenerateQualityReport profiles a table: row count, nulls per column,
// full-row duplicates beyond the first occurrence and an inferred type per
// column. It never filters and never fails; generatedAt is stamped on the
// report as given.
func GenerateQualityReport(t domain.Table, dataset string, generatedAt time.Time) domain.DataQualityReport {
	report := domain.DataQualityReport{
		Dataset:       dataset,
		TotalRecords:  len(t.Rows),
		MissingValues: make(map[string]int, len(t.Columns)),
		DataTypes:     make(map[string]string, len(t.Columns)),
		GeneratedAt:   generatedAt,
	}

	types := make(map[string]string, len(t.Columns))
	for _, col := range t.Columns {
		report.MissingValues[col] = 0
		types[col] = TypeNull
	}

	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		for _, col := range t.Columns {
			v := row[col]
			if isNull(v) {
				report.MissingValues[col]++
				continue
			}
			types[col] = mergeType(types[col], kindOf(v))
		}

		key := rowKey(t.Columns, row)
		if _, dup := seen[key]; dup {
			report.DuplicateRecords++
			continue
		}
		seen[key] = struct{}{}
	}

	for col, typ := range types {
		report.DataTypes[col] = typ
	}
	return report
}

func isNull(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	}
	return false
}

func kindOf(v any) string {
	switch val := v.(type) {
	case bool:
		return TypeBool
	case float32, float64:
		return TypeFloat
	case time.Time, civil.Date, civil.DateTime:
		return TypeDatetime
	case string, []byte:
		return TypeString
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return TypeInt
		}
		return TypeFloat
	}
	if _, ok := asInt64(v); ok {
		return TypeInt
	}
	if _, ok := v.(uint64); ok {
		return TypeInt
	}
	return TypeMixed
}

// mergeType widens the running column type with a newly observed kind.
// Integers and floats widen to float; any other disagreement is mixed.
func mergeType(current, observed string) string {
	switch {
	case current == TypeNull:
		return observed
	case current == observed:
		return current
	case (current == TypeInt && observed == TypeFloat) || (current == TypeFloat && observed == TypeInt):
		return TypeFloat
	default:
		return TypeMixed
	}
}

func rowKey(columns []string, row domain.Row) string {
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		v := row[col]
		if isNull(v) {
			b.WriteString("<nil>")
			continue
		}
		fmt.Fprintf(&b, "%T:%v", v, v)
	}
	return b.String()
}

// CustomersTable renders canonical customers back into a table with the
// customer columns. Empty text fields and missing ages become nil.
func CustomersTable(name string, customers []domain.CustomerRecord) domain.Table {
	t := domain.NewTable(name, domain.CustomerColumns...)
	t.Rows = make([]domain.Row, 0, len(customers))
	for _, c := range customers {
		row := domain.Row{
			domain.ColCustomerID: nullIfEmpty(c.CustomerID),
			domain.ColFirstName:  nullIfEmpty(c.FirstName),
			domain.ColLastName:   nullIfEmpty(c.LastName),
			domain.ColEmail:      nullIfEmpty(c.Email),
			domain.ColAge:        nil,
			domain.ColCity:       nullIfEmpty(c.City),
		}
		if c.Age != nil {
			row[domain.ColAge] = *c.Age
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// TransactionsTable renders canonical transactions back into a table with
// the transaction columns.
func TransactionsTable(name string, transactions []domain.TransactionRecord) domain.Table {
	t := domain.NewTable(name, domain.TransactionColumns...)
	t.Rows = make([]domain.Row, 0, len(transactions))
	for _, tx := range transactions {
		t.Rows = append(t.Rows, domain.Row{
			domain.ColTransactionID:   nullIfEmpty(tx.TransactionID),
			domain.ColCustomerID:      nullIfEmpty(tx.CustomerID),
			domain.ColAmount:          tx.Amount,
			domain.ColProduct:         nullIfEmpty(tx.Product),
			domain.ColTransactionDate: tx.TransactionDate,
		})
	}
	return t
}

// SummaryTable renders aggregated summaries as a table in SummaryColumns order.
func SummaryTable(name string, summaries []domain.CustomerSummary) domain.Table {
	t := domain.NewTable(name, domain.SummaryColumns...)
	t.Rows = make([]domain.Row, 0, len(summaries))
	for _, s := range summaries {
		t.Rows = append(t.Rows, domain.Row{
			domain.ColCustomerID: s.CustomerID,
			domain.ColFirstName:  nullIfEmpty(s.FirstName),
			domain.ColLastName:   nullIfEmpty(s.LastName),
			domain.ColEmail:      s.Email,
			domain.ColAge:        s.Age,
			domain.ColCity:       nullIfEmpty(s.City),
			"total_spent":        s.TotalSpent,
			"avg_transaction":    s.AvgTransaction,
			"transaction_count":  s.TransactionCount,
		})
	}
	return t
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
