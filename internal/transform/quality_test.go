package transform

import (
	"math"
	"testing"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateQualityReport(t *testing.T) {
	raw := customerTable(
		customerRow(1, "alice", "smith", "a@b.com", 30, "ny"),
		customerRow(2, "bob", "jones", "not-an-email", 40, "la"),
		customerRow(1, "alice", "smith", "a@b.com", 30, "ny"),
		domain.Row{
			domain.ColCustomerID: 3, domain.ColFirstName: nil, domain.ColLastName: "x",
			domain.ColEmail: nil, domain.ColAge: 25.5, domain.ColCity: "sf",
		},
	)

	report := GenerateQualityReport(raw, "customers", referenceTime)

	assert.Equal(t, "customers", report.Dataset)
	assert.Equal(t, 4, report.TotalRecords)
	assert.Equal(t, 1, report.DuplicateRecords)
	assert.Equal(t, 1, report.MissingValues[domain.ColFirstName])
	assert.Equal(t, 1, report.MissingValues[domain.ColEmail])
	assert.Equal(t, 0, report.MissingValues[domain.ColCity])
	assert.Equal(t, TypeInt, report.DataTypes[domain.ColCustomerID])
	assert.Equal(t, TypeFloat, report.DataTypes[domain.ColAge])
	assert.Equal(t, TypeString, report.DataTypes[domain.ColEmail])
	assert.Equal(t, referenceTime, report.GeneratedAt)
	assert.Equal(t, 2, report.TotalMissing())
}

func TestGenerateQualityReport_Types(t *testing.T) {
	tbl := domain.NewTable("mixed", "ints", "mixed", "dates", "empty", "flags")
	tbl.Rows = []domain.Row{
		{"ints": 1, "mixed": "a", "dates": time.Now(), "empty": nil, "flags": true},
		{"ints": int64(2), "mixed": 3, "dates": time.Now(), "empty": math.NaN(), "flags": false},
	}

	report := GenerateQualityReport(tbl, "mixed", time.Time{})

	assert.Equal(t, TypeInt, report.DataTypes["ints"])
	assert.Equal(t, TypeMixed, report.DataTypes["mixed"])
	assert.Equal(t, TypeDatetime, report.DataTypes["dates"])
	assert.Equal(t, TypeNull, report.DataTypes["empty"])
	assert.Equal(t, TypeBool, report.DataTypes["flags"])
	assert.Equal(t, 2, report.MissingValues["empty"])
	assert.Equal(t, 0, report.DuplicateRecords)
}

func TestGenerateQualityReport_Empty(t *testing.T) {
	report := GenerateQualityReport(customerTable(), "customers", referenceTime)

	assert.Equal(t, 0, report.TotalRecords)
	assert.Equal(t, 0, report.DuplicateRecords)
	assert.Zero(t, report.NullFraction())
	assert.Len(t, report.DataTypes, len(domain.CustomerColumns))
}

func TestQualityReport_CountsMalformedEmailBeforeValidation(t *testing.T) {
	raw := customerTable(
		customerRow(1, "alice", "smith", "a@b.com", 30, "ny"),
		customerRow(2, "eve", "adams", "not-an-email", 30, "ny"),
	)

	report := GenerateQualityReport(raw, "customers", referenceTime)
	assert.Equal(t, 2, report.TotalRecords)

	clean, err := CleanCustomers(raw)
	require.NoError(t, err)
	valid := NewValidator(WithReferenceTime(referenceTime)).ValidateCustomers(clean)
	require.Len(t, valid, 1)
	assert.Equal(t, "1", valid[0].CustomerID)
}

func TestSummaryTable(t *testing.T) {
	tbl := SummaryTable("customer_summary", []domain.CustomerSummary{
		{CustomerID: "1", FirstName: "Alice", Email: "a@b.com", Age: 30, TotalSpent: 550, AvgTransaction: 275, TransactionCount: 2},
	})

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, domain.SummaryColumns, tbl.Columns)
	assert.Nil(t, tbl.Rows[0][domain.ColLastName])
	assert.Equal(t, 550.0, tbl.Rows[0]["total_spent"])

	report := GenerateQualityReport(tbl, DatasetSummary, referenceTime)
	assert.InDelta(t, 2.0/9.0, report.NullFraction(), 1e-9)
}
