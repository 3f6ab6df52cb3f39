// Package quality applies acceptance thresholds to data quality reports.
package quality

import (
	"fmt"
	"strings"

	"github.com/dvloznov/customer-etl/internal/config"
	"github.com/dvloznov/customer-etl/internal/domain"
)

// Thresholds are the limits a dataset must stay within.
type Thresholds struct {
	MaxNullFraction float64
	MaxDuplicates   int
}

// DefaultThresholds allow at most 5% null cells and no duplicate rows.
var DefaultThresholds = Thresholds{MaxNullFraction: config.DefaultMaxNullFraction, MaxDuplicates: 0}

// FromConfig returns the thresholds of the quality section.
func FromConfig(cfg config.QualityConfig) Thresholds {
	return Thresholds{MaxNullFraction: cfg.MaxNullFraction, MaxDuplicates: cfg.MaxDuplicates}
}

// Violation is one threshold a dataset exceeded.
type Violation struct {
	Check    string
	Actual   float64
	Limit    float64
	Describe string
}

// ViolationError is returned when a report exceeds its thresholds.
type ViolationError struct {
	Dataset    string
	Violations []Violation
}

func (e *ViolationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Describe
	}
	return fmt.Sprintf("data quality check failed for %s: %s", e.Dataset, strings.Join(parts, "; "))
}

// Evaluate checks one report and returns a *ViolationError listing every
// exceeded threshold, or nil.
func (t Thresholds) Evaluate(r domain.DataQualityReport) error {
	var violations []Violation

	if frac := r.NullFraction(); frac > t.MaxNullFraction {
		violations = append(violations, Violation{
			Check:    "null_fraction",
			Actual:   frac,
			Limit:    t.MaxNullFraction,
			Describe: fmt.Sprintf("null fraction %.4f exceeds %.4f", frac, t.MaxNullFraction),
		})
	}
	if r.DuplicateRecords > t.MaxDuplicates {
		violations = append(violations, Violation{
			Check:    "duplicates",
			Actual:   float64(r.DuplicateRecords),
			Limit:    float64(t.MaxDuplicates),
			Describe: fmt.Sprintf("%d duplicate records exceed %d", r.DuplicateRecords, t.MaxDuplicates),
		})
	}

	if len(violations) == 0 {
		return nil
	}
	return &ViolationError{Dataset: r.Dataset, Violations: violations}
}
