package domain

import (
	"time"
)

// Column names of the customer dataset.
const (
	ColCustomerID = "customer_id"
	ColFirstName  = "first_name"
	ColLastName   = "last_name"
	ColEmail      = "email"
	ColAge        = "age"
	ColCity       = "city"
)

// Column names of the transaction dataset.
const (
	ColTransactionID   = "transaction_id"
	ColAmount          = "amount"
	ColProduct         = "product"
	ColTransactionDate = "transaction_date"
)

// CustomerColumns lists the columns every customer source must supply.
var CustomerColumns = []string{ColCustomerID, ColFirstName, ColLastName, ColEmail, ColAge, ColCity}

// TransactionColumns lists the columns every transaction source must supply.
var TransactionColumns = []string{ColTransactionID, ColCustomerID, ColAmount, ColProduct, ColTransactionDate}

// SummaryColumns is the column order of the aggregated output table.
var SummaryColumns = []string{
	ColCustomerID, ColFirstName, ColLastName, ColEmail, ColAge, ColCity,
	"total_spent", "avg_transaction", "transaction_count",
}

// CustomerRecord is one canonical customer row.
type CustomerRecord struct {
	CustomerID string
	FirstName  string
	LastName   string
	Email      string
	Age        *int // nil when the source value was missing or not a number
	City       string
}

// TransactionRecord is one canonical transaction row.
// CustomerID is a loose reference; orphans are dropped at join time.
type TransactionRecord struct {
	TransactionID   string
	CustomerID      string
	Amount          float64
	Product         string
	TransactionDate time.Time
}

// CustomerSummary is the per-customer spending aggregate produced by the
// transform core. Values are rounded to two decimals.
type CustomerSummary struct {
	CustomerID       string  `json:"customer_id"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email"`
	Age              int     `json:"age"`
	City             string  `json:"city"`
	TotalSpent       float64 `json:"total_spent"`
	AvgTransaction   float64 `json:"avg_transaction"`
	TransactionCount int     `json:"transaction_count"`
}
