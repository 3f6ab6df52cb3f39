package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dvloznov/customer-etl/internal/domain"
)

// CSVExtractor reads a local CSV file with a header row.
type CSVExtractor struct {
	Name string
	Path string
}

func (e *CSVExtractor) Extract(ctx context.Context) (domain.Table, error) {
	f, err := os.Open(e.Path)
	if err != nil {
		return domain.Table{}, extractError("CSV", e.Path, err)
	}
	defer f.Close()

	t, err := ReadCSV(ctx, e.Name, f)
	if err != nil {
		return domain.Table{}, extractError("CSV", e.Path, err)
	}
	return t, nil
}

// ReadCSV parses CSV with a header row into a table. Cells are typed the way
// a dataframe reader would: empty cells are nil, integers become int64,
// decimals become float64 and everything else stays text.
func ReadCSV(ctx context.Context, name string, r io.Reader) (domain.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.NewTable(name), nil
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("ReadCSV: failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := domain.NewTable(name, header...)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return domain.Table{}, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("ReadCSV: line %d: %w", line, err)
		}
		row := make(domain.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = csvCell(record[i])
			} else {
				row[col] = nil
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadCSVBytes is ReadCSV over an in-memory object.
func ReadCSVBytes(ctx context.Context, name string, data []byte) (domain.Table, error) {
	return ReadCSV(ctx, name, bytes.NewReader(data))
}

func csvCell(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !strings.ContainsAny(v, "xXpP") && !isSpecialFloat(v) {
		return f
	}
	return s
}

// isSpecialFloat rejects words ParseFloat accepts, so a city called "Nan" or
// "Infinity" stays text.
func isSpecialFloat(v string) bool {
	switch strings.ToLower(strings.TrimLeft(v, "+-")) {
	case "nan", "inf", "infinity":
		return true
	}
	return false
}
