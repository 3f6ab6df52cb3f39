package transform

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// errIncompatible marks a cell whose Go type can never represent the column.
var errIncompatible = errors.New("incompatible value")

// dateLayouts are tried in order when a transaction date arrives as text.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
}

// idValue canonicalises an identifier cell. Integral numbers render without a
// fractional part so 1, int64(1) and 1.0 all become "1". An empty result
// means the identifier is null.
func idValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(val), nil
	case []byte:
		return strings.TrimSpace(string(val)), nil
	case json.Number:
		return strings.TrimSpace(val.String()), nil
	case float32:
		return floatID(float64(val)), nil
	case float64:
		return floatID(val), nil
	}
	if i, ok := asInt64(v); ok {
		return strconv.FormatInt(i, 10), nil
	}
	if u, ok := v.(uint64); ok {
		return strconv.FormatUint(u, 10), nil
	}
	return "", errIncompatible
}

func floatID(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// textValue renders a free-text cell. Numbers are formatted as text; nil and
// NaN are empty.
func textValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case json.Number:
		return val.String(), nil
	case float32, float64:
		f, _, _ := numberValue(val)
		if math.IsNaN(f) {
			return "", nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	if i, ok := asInt64(v); ok {
		return strconv.FormatInt(i, 10), nil
	}
	if u, ok := v.(uint64); ok {
		return strconv.FormatUint(u, 10), nil
	}
	return "", errIncompatible
}

// numberValue reads a numeric cell. ok is false for nil, NaN and text that
// does not parse; err is set only for kinds that can never be numeric.
func numberValue(v any) (f float64, ok bool, err error) {
	switch val := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return val, !math.IsNaN(val), nil
	case float32:
		f := float64(val)
		return f, !math.IsNaN(f), nil
	case json.Number:
		f, err := val.Float64()
		return f, err == nil, nil
	case string:
		return parseNumber(val)
	case []byte:
		return parseNumber(string(val))
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true, nil
	}
	if u, ok := v.(uint64); ok {
		return float64(u), true, nil
	}
	return 0, false, errIncompatible
}

func parseNumber(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false, nil
	}
	return f, true, nil
}

// intValue reads a whole-number cell. Fractional values are treated as
// unparseable.
func intValue(v any) (*int, error) {
	f, ok, err := numberValue(v)
	if err != nil || !ok {
		return nil, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, nil
	}
	i := int(f)
	return &i, nil
}

// timeValue reads a date/time cell. Text is parsed with dateLayouts and
// normalised to UTC; ok is false when nothing matches.
func timeValue(v any) (t time.Time, ok bool, err error) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false, nil
		}
		return val.UTC(), true, nil
	case civil.Date:
		if !val.IsValid() {
			return time.Time{}, false, nil
		}
		return val.In(time.UTC), true, nil
	case civil.DateTime:
		if !val.IsValid() {
			return time.Time{}, false, nil
		}
		return val.In(time.UTC), true, nil
	case string:
		return parseTime(val)
	case []byte:
		return parseTime(string(val))
	case bool, []any, map[string]any:
		return time.Time{}, false, errIncompatible
	}
	// Bare numbers are not dates.
	return time.Time{}, false, nil
}

func parseTime(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, nil
}

func asInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	}
	return 0, false
}
