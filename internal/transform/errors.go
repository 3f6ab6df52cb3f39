package transform

import (
	"fmt"
	"strings"
)

// SchemaError reports a structurally invalid input table: a required column
// is missing or holds values of a kind that can never be coerced to the
// column's type. It is fatal for the call that returns it.
type SchemaError struct {
	Dataset string
	Column  string
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("schema error in %s: column %q: %s", e.Dataset, e.Column, e.Reason)
}

func missingColumnsError(dataset string, missing []string) *SchemaError {
	return &SchemaError{
		Dataset: dataset,
		Column:  strings.Join(missing, ", "),
		Reason:  "required column missing",
	}
}

func incompatibleTypeError(dataset, column string, v any) *SchemaError {
	return &SchemaError{
		Dataset: dataset,
		Column:  column,
		Reason:  fmt.Sprintf("incompatible value type %T", v),
	}
}
