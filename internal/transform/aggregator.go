package transform

import (
	"math"
	"sort"
	"strconv"

	"github.com/dvloznov/customer-etl/internal/domain"
)

// DefaultMinTotalSpent is the spend a customer must exceed to be summarised.
const DefaultMinTotalSpent = 500.0

// Aggregate inner-joins customers and transactions on customer_id and
// returns one summary per customer whose rounded total spend is strictly
// greater than minTotalSpent.
//
// Transactions without a matching customer and customers without
// transactions are excluded. Sums and means are rounded to two decimals once,
// after aggregation, ties to even. Output is ordered by customer_id ascending, numerically
// when both ids are integers.
func Aggregate(customers []domain.CustomerRecord, transactions []domain.TransactionRecord, minTotalSpent float64) []domain.CustomerSummary {
	byID := make(map[string]domain.CustomerRecord, len(customers))
	for _, c := range customers {
		if _, ok := byID[c.CustomerID]; !ok {
			byID[c.CustomerID] = c
		}
	}

	type group struct {
		sum   float64
		count int
	}
	groups := make(map[string]*group)
	for _, t := range transactions {
		if _, ok := byID[t.CustomerID]; !ok {
			continue
		}
		g := groups[t.CustomerID]
		if g == nil {
			g = &group{}
			groups[t.CustomerID] = g
		}
		g.sum += t.Amount
		g.count++
	}

	out := make([]domain.CustomerSummary, 0, len(groups))
	for id, g := range groups {
		total := round2(g.sum)
		if total <= minTotalSpent {
			continue
		}
		c := byID[id]
		age := 0
		if c.Age != nil {
			age = *c.Age
		}
		out = append(out, domain.CustomerSummary{
			CustomerID:       c.CustomerID,
			FirstName:        c.FirstName,
			LastName:         c.LastName,
			Email:            c.Email,
			Age:              age,
			City:             c.City,
			TotalSpent:       total,
			AvgTransaction:   round2(g.sum / float64(g.count)),
			TransactionCount: g.count,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return lessID(out[i].CustomerID, out[j].CustomerID)
	})
	return out
}

// round2 rounds to two decimals with ties going to the even cent.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// lessID orders identifiers numerically when both parse as integers and
// lexically otherwise. Ids with the same numeric value ("1", "01", "+1")
// fall back to lexical order.
func lessID(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
