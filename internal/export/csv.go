package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

var ErrNoData = errors.New("no data to export")

// Record is anything exportable as one row.
type Record interface {
	Fields() []models.Field
}

// columns come from the first record, in its field order
func columns[R Record](rows []R) []string {
	fs := rows[0].Fields()
	keys := make([]string, 0, len(fs))
	for _, f := range fs {
		keys = append(keys, f.Key)
	}
	return keys
}

func header(keys []string, labels map[string]string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if l, ok := labels[k]; ok {
			out[i] = l
		} else {
			out[i] = k
		}
	}
	return out
}

func valuesByKey(r Record) map[string]any {
	fs := r.Fields()
	m := make(map[string]any, len(fs))
	for _, f := range fs {
		m[f.Key] = f.Value
	}
	return m
}

// CSV renders rows with a header line. Fields containing a comma, quote or
// newline are quoted and inner quotes doubled.
func CSV[R Record](rows []R, labels map[string]string) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	keys := columns(rows)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header(keys, labels)); err != nil {
		return nil, err
	}
	line := make([]string, len(keys))
	for _, r := range rows {
		vals := valuesByKey(r)
		for i, k := range keys {
			line[i] = cell(vals[k])
		}
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return models.FormatFloat(x)
	case *float64:
		if x == nil {
			return ""
		}
		return models.FormatFloat(*x)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
