// Package transform is the cleaning, validation and aggregation core of the
// ETL pipeline. Every function here is pure: inputs are never mutated, no I/O
// happens, and results depend only on the inputs and the validator clock.
package transform

import (
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
)

// Dataset names used in quality reports.
const (
	DatasetCustomers    = "customers"
	DatasetTransactions = "transactions"
	DatasetSummary      = "customer_summary"
)

// StageCounts records how many records survived each stage.
type StageCounts struct {
	CustomersRaw        int `json:"customers_raw"`
	CustomersCleaned    int `json:"customers_cleaned"`
	CustomersValid      int `json:"customers_valid"`
	TransactionsRaw     int `json:"transactions_raw"`
	TransactionsCleaned int `json:"transactions_cleaned"`
	TransactionsValid   int `json:"transactions_valid"`
	Summaries           int `json:"summaries"`
}

// Result is the output of one transform run.
type Result struct {
	Summaries         []domain.CustomerSummary
	Counts            StageCounts
	CustomerReport    domain.DataQualityReport
	TransactionReport domain.DataQualityReport
}

// Transformer sequences Cleaner, Validator and Aggregator over one pair of
// input tables.
type Transformer struct {
	Validator     *Validator
	MinTotalSpent float64
}

// NewTransformer creates a Transformer with the default threshold and a
// validator built from opts.
func NewTransformer(opts ...ValidatorOption) *Transformer {
	return &Transformer{
		Validator:     NewValidator(opts...),
		MinTotalSpent: DefaultMinTotalSpent,
	}
}

// Run cleans, validates and aggregates the two tables. The quality reports
// describe the raw inputs, before any row was excluded. A SchemaError from
// either table aborts the run before aggregation.
func (t *Transformer) Run(customers, transactions domain.Table) (*Result, error) {
	v := t.Validator
	if v == nil {
		v = NewValidator()
	}
	now := v.now()

	customersClean, err := CleanCustomers(customers)
	if err != nil {
		return nil, err
	}
	transactionsClean, err := CleanTransactions(transactions)
	if err != nil {
		return nil, err
	}

	pinned := *v
	pinned.Now = func() time.Time { return now }

	customersValid := pinned.ValidateCustomers(customersClean)
	transactionsValid := pinned.ValidateTransactions(transactionsClean)
	summaries := Aggregate(customersValid, transactionsValid, t.MinTotalSpent)

	return &Result{
		Summaries: summaries,
		Counts: StageCounts{
			CustomersRaw:        customers.Len(),
			CustomersCleaned:    len(customersClean),
			CustomersValid:      len(customersValid),
			TransactionsRaw:     transactions.Len(),
			TransactionsCleaned: len(transactionsClean),
			TransactionsValid:   len(transactionsValid),
			Summaries:           len(summaries),
		},
		CustomerReport:    GenerateQualityReport(customers, DatasetCustomers, now),
		TransactionReport: GenerateQualityReport(transactions, DatasetTransactions, now),
	}, nil
}
