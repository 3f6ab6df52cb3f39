package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (available: table, json, yaml)", format)
	}
}

// renderStructured writes v as JSON or YAML. It reports false for the table
// format.
func renderStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderStats(w io.Writer, format string, stats domain.RunStats) error {
	if done, err := renderStructured(w, format, stats); done {
		return err
	}

	t := newTable(w)
	t.AppendRow(table.Row{"Run ID", stats.RunID})
	t.AppendRow(table.Row{"Status", stats.Status})
	t.AppendRow(table.Row{"Started", formatTime(stats.StartTime)})
	t.AppendRow(table.Row{"Duration", stats.Duration().Round(time.Millisecond)})
	t.AppendRow(table.Row{"Extracted", stats.RecordsExtracted})
	t.AppendRow(table.Row{"Transformed", stats.RecordsTransformed})
	t.AppendRow(table.Row{"Loaded", stats.RecordsLoaded})
	for _, e := range stats.Errors {
		t.AppendRow(table.Row{"Error", e})
	}
	t.Render()
	return nil
}

func renderReports(w io.Writer, format string, reports []domain.DataQualityReport) error {
	if done, err := renderStructured(w, format, reports); done {
		return err
	}

	for _, r := range reports {
		_, _ = fmt.Fprintf(w, "%s: %d records, %d duplicates\n", r.Dataset, r.TotalRecords, r.DuplicateRecords)

		columns := make([]string, 0, len(r.DataTypes))
		for col := range r.DataTypes {
			columns = append(columns, col)
		}
		sort.Strings(columns)

		t := newTable(w)
		t.AppendHeader(table.Row{"Column", "Type", "Missing"})
		for _, col := range columns {
			t.AppendRow(table.Row{col, r.DataTypes[col], r.MissingValues[col]})
		}
		t.Render()
	}
	return nil
}

func renderRuns(w io.Writer, format string, runs []domain.RunStats) error {
	if done, err := renderStructured(w, format, runs); done {
		return err
	}

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "(no runs recorded)")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Run ID", "Status", "Started", "Duration", "Extracted", "Loaded", "Errors"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.RunID, r.Status, formatTime(r.StartTime), r.Duration().Round(time.Millisecond),
			r.RecordsExtracted, r.RecordsLoaded, strings.Join(r.Errors, "; "),
		})
	}
	t.Render()
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
