package domain

import (
	"sort"
	"time"
)

// Row is a single raw record keyed by column name. Values are whatever the
// extractor produced: nil, string, bool, numeric kinds, time.Time, civil.Date.
type Row map[string]any

// Table is an in-memory tabular dataset with named columns.
// Columns keeps the source column order; rows may omit a column (read as nil).
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns ...string) Table {
	return Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
	}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table declares the column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the required columns the table does not declare, in
// the order they were requested.
func (t Table) MissingColumns(required ...string) []string {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// AddColumns registers the columns the table does not declare yet, keeping
// the given order.
func (t *Table) AddColumns(names ...string) {
	for _, n := range names {
		if !t.HasColumn(n) {
			t.Columns = append(t.Columns, n)
		}
	}
}

// Append adds a row to the table. Columns it has not seen yet are registered
// in sorted order; callers that know the source order call AddColumns first.
func (t *Table) Append(r Row) {
	var unseen []string
	for k := range r {
		if !t.HasColumn(k) {
			unseen = append(unseen, k)
		}
	}
	sort.Strings(unseen)
	t.Columns = append(t.Columns, unseen...)
	t.Rows = append(t.Rows, r)
}

// Clone returns a deep copy of the table. Cell values are copied by value;
// byte slices are duplicated so the copy never aliases the source.
func (t Table) Clone() Table {
	out := Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			if b, ok := v.([]byte); ok {
				v = append([]byte(nil), b...)
			}
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// DataQualityReport summarises the completeness and shape of one dataset.
type DataQualityReport struct {
	Dataset          string            `json:"dataset" yaml:"dataset"`
	TotalRecords     int               `json:"total_records" yaml:"total_records"`
	MissingValues    map[string]int    `json:"missing_values" yaml:"missing_values"`
	DuplicateRecords int               `json:"duplicate_records" yaml:"duplicate_records"`
	DataTypes        map[string]string `json:"data_types" yaml:"data_types"`
	GeneratedAt      time.Time         `json:"generated_at" yaml:"generated_at"`
}

// TotalMissing returns the number of null cells across all columns.
func (r DataQualityReport) TotalMissing() int {
	n := 0
	for _, c := range r.MissingValues {
		n += c
	}
	return n
}

// NullFraction returns the share of null cells over all cells of the dataset.
// An empty dataset has a null fraction of zero.
func (r DataQualityReport) NullFraction() float64 {
	cells := r.TotalRecords * len(r.DataTypes)
	if cells == 0 {
		return 0
	}
	return float64(r.TotalMissing()) / float64(cells)
}
