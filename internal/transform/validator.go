package transform

import (
	"regexp"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
)

// Default age bounds, inclusive.
const (
	DefaultMinAge = 18
	DefaultMaxAge = 120
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validator filters canonical records against business rules.
// Failing records are dropped, never reported as errors.
type Validator struct {
	// Now is the cutoff for transaction dates. Defaults to time.Now.
	Now    func() time.Time
	MinAge int
	MaxAge int
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithReferenceTime pins the transaction date cutoff to t, making validation
// reproducible across runs.
func WithReferenceTime(t time.Time) ValidatorOption {
	return func(v *Validator) {
		v.Now = func() time.Time { return t }
	}
}

// WithClock uses fn as the transaction date cutoff source.
func WithClock(fn func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if fn != nil {
			v.Now = fn
		}
	}
}

// WithAgeRange overrides the inclusive age bounds.
func WithAgeRange(minAge, maxAge int) ValidatorOption {
	return func(v *Validator) {
		v.MinAge = minAge
		v.MaxAge = maxAge
	}
}

// NewValidator creates a Validator using the wall clock and default age
// bounds unless overridden.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		Now:    time.Now,
		MinAge: DefaultMinAge,
		MaxAge: DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateCustomers keeps customers with a well-formed email and an age
// within [MinAge, MaxAge]. A missing age fails the range check.
func (v *Validator) ValidateCustomers(customers []domain.CustomerRecord) []domain.CustomerRecord {
	out := make([]domain.CustomerRecord, 0, len(customers))
	for _, c := range customers {
		if !emailPattern.MatchString(c.Email) {
			continue
		}
		if c.Age == nil || *c.Age < v.MinAge || *c.Age > v.MaxAge {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ValidateTransactions keeps transactions with a positive amount that are not
// dated after the validator's reference time.
func (v *Validator) ValidateTransactions(transactions []domain.TransactionRecord) []domain.TransactionRecord {
	now := v.now()
	out := make([]domain.TransactionRecord, 0, len(transactions))
	for _, t := range transactions {
		if t.Amount <= 0 {
			continue
		}
		if t.TransactionDate.After(now) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (v *Validator) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}
