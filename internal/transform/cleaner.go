package transform

import (
	"errors"
	"strings"

	"github.com/dvloznov/customer-etl/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CleanCustomers normalises a raw customer table into canonical records.
//
// Rows are deduplicated by customer_id before anything else, keeping the
// first occurrence in input order. Name and city fields are trimmed and
// title-cased, email is trimmed and lower-cased, and rows left without a
// customer_id or email are dropped. Because deduplication runs first, a
// first-seen row without an email removes its customer_id entirely.
//
// The input table is not modified.
func CleanCustomers(raw domain.Table) ([]domain.CustomerRecord, error) {
	dataset := datasetName(raw, "customers")
	if missing := raw.MissingColumns(domain.CustomerColumns...); len(missing) > 0 {
		return nil, missingColumnsError(dataset, missing)
	}

	titler := cases.Title(language.Und)
	seen := make(map[string]struct{}, len(raw.Rows))
	out := make([]domain.CustomerRecord, 0, len(raw.Rows))

	for _, row := range raw.Rows {
		id, err := idValue(row[domain.ColCustomerID])
		if err != nil {
			return nil, cellError(dataset, domain.ColCustomerID, row, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		rec := domain.CustomerRecord{CustomerID: id}
		for _, f := range []struct {
			col string
			dst *string
		}{
			{domain.ColFirstName, &rec.FirstName},
			{domain.ColLastName, &rec.LastName},
			{domain.ColCity, &rec.City},
		} {
			s, err := textValue(row[f.col])
			if err != nil {
				return nil, cellError(dataset, f.col, row, err)
			}
			*f.dst = titler.String(strings.TrimSpace(s))
		}

		email, err := textValue(row[domain.ColEmail])
		if err != nil {
			return nil, cellError(dataset, domain.ColEmail, row, err)
		}
		rec.Email = strings.ToLower(strings.TrimSpace(email))

		rec.Age, err = intValue(row[domain.ColAge])
		if err != nil {
			return nil, cellError(dataset, domain.ColAge, row, err)
		}

		if rec.CustomerID == "" || rec.Email == "" {
			continue
		}
		out = append(out, rec)
	}

	return out, nil
}

// CleanTransactions normalises a raw transaction table into canonical records.
//
// Rows with an unparseable transaction_date or a missing or non-positive
// amount are excluded first. Product names are trimmed and title-cased, then
// rows are deduplicated by transaction_id keeping the first surviving
// occurrence in input order. Finally rows without a transaction_id or
// customer_id are dropped.
//
// The input table is not modified.
func CleanTransactions(raw domain.Table) ([]domain.TransactionRecord, error) {
	dataset := datasetName(raw, "transactions")
	if missing := raw.MissingColumns(domain.TransactionColumns...); len(missing) > 0 {
		return nil, missingColumnsError(dataset, missing)
	}

	titler := cases.Title(language.Und)
	seen := make(map[string]struct{}, len(raw.Rows))
	out := make([]domain.TransactionRecord, 0, len(raw.Rows))

	for _, row := range raw.Rows {
		date, ok, err := timeValue(row[domain.ColTransactionDate])
		if err != nil {
			return nil, cellError(dataset, domain.ColTransactionDate, row, err)
		}
		if !ok {
			continue
		}

		amount, ok, err := numberValue(row[domain.ColAmount])
		if err != nil {
			return nil, cellError(dataset, domain.ColAmount, row, err)
		}
		if !ok || amount <= 0 {
			continue
		}

		product, err := textValue(row[domain.ColProduct])
		if err != nil {
			return nil, cellError(dataset, domain.ColProduct, row, err)
		}

		txID, err := idValue(row[domain.ColTransactionID])
		if err != nil {
			return nil, cellError(dataset, domain.ColTransactionID, row, err)
		}
		if _, dup := seen[txID]; dup {
			continue
		}
		seen[txID] = struct{}{}

		customerID, err := idValue(row[domain.ColCustomerID])
		if err != nil {
			return nil, cellError(dataset, domain.ColCustomerID, row, err)
		}

		if txID == "" || customerID == "" {
			continue
		}
		out = append(out, domain.TransactionRecord{
			TransactionID:   txID,
			CustomerID:      customerID,
			Amount:          amount,
			Product:         titler.String(strings.TrimSpace(product)),
			TransactionDate: date,
		})
	}

	return out, nil
}

func cellError(dataset, column string, row domain.Row, err error) error {
	if errors.Is(err, errIncompatible) {
		return incompatibleTypeError(dataset, column, row[column])
	}
	return err
}

func datasetName(t domain.Table, fallback string) string {
	if t.Name != "" {
		return t.Name
	}
	return fallback
}
