package transform

import (
	"testing"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customer(id string) domain.CustomerRecord {
	return domain.CustomerRecord{
		CustomerID: id,
		FirstName:  "First" + id,
		LastName:   "Last" + id,
		Email:      "c" + id + "@example.com",
		Age:        intPtr(30),
		City:       "City",
	}
}

func tx(id, customerID string, amount float64) domain.TransactionRecord {
	return domain.TransactionRecord{
		TransactionID:   id,
		CustomerID:      customerID,
		Amount:          amount,
		Product:         "Widget",
		TransactionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAggregate_Threshold(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		include bool
	}{
		{"exactly threshold", []float64{250, 250}, false},
		{"one cent over", []float64{250, 250.01}, true},
		{"below", []float64{100}, false},
		{"rounds down to threshold", []float64{500.004}, false},
		{"single large", []float64{1000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var txs []domain.TransactionRecord
			for i, a := range tt.amounts {
				txs = append(txs, tx(string(rune('a'+i)), "1", a))
			}
			got := Aggregate([]domain.CustomerRecord{customer("1")}, txs, DefaultMinTotalSpent)
			if tt.include {
				assert.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestAggregate_Statistics(t *testing.T) {
	got := Aggregate(
		[]domain.CustomerRecord{customer("1")},
		[]domain.TransactionRecord{tx("a", "1", 100.10), tx("b", "1", 200.20), tx("c", "1", 300.33)},
		0,
	)

	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, 600.63, s.TotalSpent)
	assert.Equal(t, 200.21, s.AvgTransaction)
	assert.Equal(t, 3, s.TransactionCount)
	assert.Equal(t, "First1", s.FirstName)
	assert.Equal(t, 30, s.Age)
}

func TestAggregate_RoundsHalfToEven(t *testing.T) {
	got := Aggregate(
		[]domain.CustomerRecord{customer("1")},
		[]domain.TransactionRecord{tx("a", "1", 500.25), tx("b", "1", 500.00)},
		0,
	)

	require.Len(t, got, 1)
	assert.Equal(t, 1000.25, got[0].TotalSpent)
	assert.Equal(t, 500.12, got[0].AvgTransaction)

	assert.Equal(t, 0.12, round2(0.125))
	assert.Equal(t, 0.38, round2(0.375))
	assert.Equal(t, 2.5, round2(2.5))
}

func TestAggregate_InnerJoin(t *testing.T) {
	customers := []domain.CustomerRecord{customer("1"), customer("2"), customer("3")}
	txs := []domain.TransactionRecord{
		tx("a", "1", 600),
		tx("b", "2", 700),
		tx("c", "99", 5000), // orphan
	}

	got := Aggregate(customers, txs, DefaultMinTotalSpent)

	require.Len(t, got, 2)
	validCustomers := map[string]bool{"1": true, "2": true, "3": true}
	validTxCustomers := map[string]bool{}
	for _, tr := range txs {
		validTxCustomers[tr.CustomerID] = true
	}
	for _, s := range got {
		assert.True(t, validCustomers[s.CustomerID], "customer %s not in customer set", s.CustomerID)
		assert.True(t, validTxCustomers[s.CustomerID], "customer %s has no transactions", s.CustomerID)
	}
}

func TestAggregate_DeterministicOrder(t *testing.T) {
	customers := []domain.CustomerRecord{customer("10"), customer("2"), customer("b"), customer("a"), customer("1")}
	txs := []domain.TransactionRecord{
		tx("1", "b", 600), tx("2", "10", 600), tx("3", "a", 600), tx("4", "2", 600), tx("5", "1", 600),
	}

	for i := 0; i < 5; i++ {
		got := Aggregate(customers, txs, DefaultMinTotalSpent)
		ids := make([]string, 0, len(got))
		for _, s := range got {
			ids = append(ids, s.CustomerID)
		}
		assert.Equal(t, []string{"1", "2", "10", "a", "b"}, ids)
	}
}

func TestAggregate_DeterministicOrder_EquivalentNumericIDs(t *testing.T) {
	ids := []string{"1", "01", "001", "+1", "0001", "2"}
	var customers []domain.CustomerRecord
	var txs []domain.TransactionRecord
	for i, id := range ids {
		customers = append(customers, customer(id))
		txs = append(txs, tx(string(rune('a'+i)), id, 600))
	}

	want := []string{"+1", "0001", "001", "01", "1", "2"}
	for i := 0; i < 10; i++ {
		got := Aggregate(customers, txs, DefaultMinTotalSpent)
		order := make([]string, 0, len(got))
		for _, s := range got {
			order = append(order, s.CustomerID)
		}
		assert.Equal(t, want, order)
	}
	assert.False(t, lessID("1", "01"))
	assert.True(t, lessID("01", "1"))
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil, nil, DefaultMinTotalSpent))
	assert.Empty(t, Aggregate([]domain.CustomerRecord{customer("1")}, nil, DefaultMinTotalSpent))
	assert.Empty(t, Aggregate(nil, []domain.TransactionRecord{tx("a", "1", 900)}, DefaultMinTotalSpent))
}
