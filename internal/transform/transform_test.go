package transform

import (
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformer_Run(t *testing.T) {
	customers := customerTable(
		customerRow(1, " alice ", "SMITH", " A@B.COM ", 30, "ny"),
		customerRow(2, "bob", "jones", "not-an-email", 40, "la"),
		customerRow(3, "young", "kid", "kid@example.com", 12, "sf"),
		customerRow(1, "dup", "dup", "dup@example.com", 30, "ny"),
	)
	transactions := transactionTable(
		txRow(1, 1, 300, "widget", "2024-01-01"),
		txRow(2, 1, 250, "gadget", "2024-01-02"),
		txRow(3, 1, 1000, "future", "2030-01-01"),
		txRow(4, 1, -20, "refund", "2024-01-03"),
		txRow(5, 2, 900, "widget", "2024-01-01"),
		txRow(6, 3, 900, "widget", "2024-01-01"),
		txRow(7, 99, 900, "orphan", "2024-01-01"),
	)

	tr := NewTransformer(WithReferenceTime(referenceTime))
	res, err := tr.Run(customers, transactions)
	require.NoError(t, err)

	require.Len(t, res.Summaries, 1)
	assert.Equal(t, domain.CustomerSummary{
		CustomerID:       "1",
		FirstName:        "Alice",
		LastName:         "Smith",
		Email:            "a@b.com",
		Age:              30,
		City:             "Ny",
		TotalSpent:       550,
		AvgTransaction:   275,
		TransactionCount: 2,
	}, res.Summaries[0])

	assert.Equal(t, StageCounts{
		CustomersRaw:        4,
		CustomersCleaned:    3,
		CustomersValid:      1,
		TransactionsRaw:     7,
		TransactionsCleaned: 6,
		TransactionsValid:   5,
		Summaries:           1,
	}, res.Counts)

	assert.Equal(t, DatasetCustomers, res.CustomerReport.Dataset)
	assert.Equal(t, 4, res.CustomerReport.TotalRecords)
	assert.Equal(t, 7, res.TransactionReport.TotalRecords)
	assert.Equal(t, referenceTime, res.CustomerReport.GeneratedAt)
}

func TestTransformer_RunEmpty(t *testing.T) {
	res, err := NewTransformer().Run(customerTable(), transactionTable())
	require.NoError(t, err)
	assert.Empty(t, res.Summaries)
	assert.Equal(t, StageCounts{}, res.Counts)
}

func TestTransformer_RunSchemaError(t *testing.T) {
	badTransactions := domain.NewTable("transactions", domain.ColTransactionID)

	res, err := NewTransformer().Run(customerTable(), badTransactions)
	assert.Nil(t, res)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "transactions", schemaErr.Dataset)
}

func TestTransformer_MinTotalSpent(t *testing.T) {
	customers := customerTable(customerRow(1, "a", "b", "a@b.com", 30, "c"))
	transactions := transactionTable(txRow(1, 1, 100, "x", "2024-01-01"))

	tr := NewTransformer(WithReferenceTime(referenceTime))
	tr.MinTotalSpent = 50

	res, err := tr.Run(customers, transactions)
	require.NoError(t, err)
	require.Len(t, res.Summaries, 1)
	assert.Equal(t, 100.0, res.Summaries[0].TotalSpent)
}

func TestTransformer_ClockPinnedPerRun(t *testing.T) {
	calls := 0
	clock := func() time.Time {
		calls++
		return referenceTime
	}

	_, err := NewTransformer(WithClock(clock)).Run(
		customerTable(customerRow(1, "a", "b", "a@b.com", 30, "c")),
		transactionTable(txRow(1, 1, 600, "x", "2024-01-01")),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
