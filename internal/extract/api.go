package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dvloznov/customer-etl/internal/domain"
)

// maxErrorBody bounds how much of a failed response ends up in the error.
const maxErrorBody = 512

// APIExtractor fetches a JSON array of objects with an HTTP GET.
type APIExtractor struct {
	Name    string
	URL     string
	Headers map[string]string
	Client  *http.Client
}

func (e *APIExtractor) Extract(ctx context.Context) (domain.Table, error) {
	t, err := e.fetch(ctx)
	if err != nil {
		return domain.Table{}, extractError("API", e.URL, err)
	}
	return t, nil
}

func (e *APIExtractor) fetch(ctx context.Context) (domain.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL, nil)
	if err != nil {
		return domain.Table{}, fmt.Errorf("fetch: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range e.Headers {
		req.Header.Set(k, v)
	}

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.Table{}, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.Table{}, fmt.Errorf("fetch: unexpected status %d: %s", resp.StatusCode, body)
	}

	return DecodeJSONRecords(e.Name, resp.Body)
}

// DecodeJSONRecords decodes a JSON array of objects into a table. Numbers are
// kept as json.Number so identifiers never pass through float64. Columns are
// ordered by first appearance in the document.
func DecodeJSONRecords(name string, r io.Reader) (domain.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	t := domain.NewTable(name)
	tok, err := dec.Token()
	if err != nil {
		return domain.Table{}, fmt.Errorf("DecodeJSONRecords: expected a JSON array of objects: %w", err)
	}
	if tok == nil {
		return t, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return domain.Table{}, fmt.Errorf("DecodeJSONRecords: expected a JSON array of objects, got %v", tok)
	}

	for dec.More() {
		row, keys, err := decodeObject(dec)
		if err != nil {
			return domain.Table{}, fmt.Errorf("DecodeJSONRecords: record %d: %w", t.Len(), err)
		}
		t.AddColumns(keys...)
		t.Append(row)
	}
	if _, err := dec.Token(); err != nil {
		return domain.Table{}, fmt.Errorf("DecodeJSONRecords: unterminated array: %w", err)
	}
	return t, nil
}

// decodeObject reads one JSON object and returns its fields with the keys in
// document order.
func decodeObject(dec *json.Decoder) (domain.Row, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	row := domain.Row{}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
		if _, seen := row[key]; !seen {
			keys = append(keys, key)
		}
		row[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return row, keys, nil
}
