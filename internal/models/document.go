package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// docReader decodes a schemaless remote document field by field.
// The first failure is kept and every later read returns a zero value,
// so decoders read all fields and check Err once.
type docReader struct {
	id   string
	data map[string]any
	err  error
}

func newDocReader(id string, data map[string]any) *docReader {
	return &docReader{id: id, data: data}
}

func (r *docReader) Err() error {
	return r.err
}

func (r *docReader) fail(field, format string, args ...any) {
	if r.err != nil {
		return
	}
	r.err = fmt.Errorf("%w: document %s field %q: %s", ErrParseFailure, r.id, field, fmt.Sprintf(format, args...))
}

func (r *docReader) lookup(field string, required bool) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.data[field]
	if !ok || v == nil {
		if required {
			r.fail(field, "missing")
		}
		return nil, false
	}
	return v, true
}

func (r *docReader) String(field string) string {
	v, ok := r.lookup(field, true)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, "want string, got %T", v)
	}
	return s
}

func (r *docReader) OptString(field string) string {
	v, ok := r.lookup(field, false)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, "want string, got %T", v)
	}
	return s
}

func (r *docReader) Bool(field string) bool {
	v, ok := r.lookup(field, false)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(field, "want bool, got %T", v)
	}
	return b
}

func (r *docReader) Float(field string) float64 {
	v, ok := r.lookup(field, true)
	if !ok {
		return 0
	}
	f, err := toFloat(v)
	if err != nil {
		r.fail(field, "%v", err)
	}
	return f
}

func (r *docReader) OptFloat(field string) *float64 {
	v, ok := r.lookup(field, false)
	if !ok {
		return nil
	}
	f, err := toFloat(v)
	if err != nil {
		r.fail(field, "%v", err)
		return nil
	}
	return &f
}

func (r *docReader) Int(field string) int {
	v, ok := r.lookup(field, true)
	if !ok {
		return 0
	}
	n, err := toInt(v)
	if err != nil {
		r.fail(field, "%v", err)
	}
	return n
}

func (r *docReader) OptInt(field string) *int {
	v, ok := r.lookup(field, false)
	if !ok {
		return nil
	}
	n, err := toInt(v)
	if err != nil {
		r.fail(field, "%v", err)
		return nil
	}
	return &n
}

func (r *docReader) Time(field string) time.Time {
	v, ok := r.lookup(field, true)
	if !ok {
		return time.Time{}
	}
	t, err := toTime(v)
	if err != nil {
		r.fail(field, "%v", err)
	}
	return t
}

func (r *docReader) OptTime(field string) *time.Time {
	v, ok := r.lookup(field, false)
	if !ok {
		return nil
	}
	t, err := toTime(v)
	if err != nil {
		r.fail(field, "%v", err)
		return nil
	}
	return &t
}

func (r *docReader) FloatMap(field string) map[string]float64 {
	v, ok := r.lookup(field, false)
	if !ok {
		return map[string]float64{}
	}
	m, ok := v.(map[string]any)
	if !ok {
		r.fail(field, "want map, got %T", v)
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, raw := range m {
		f, err := toFloat(raw)
		if err != nil {
			r.fail(field, "key %q: %v", k, err)
			return nil
		}
		out[k] = f
	}
	return out
}

func (r *docReader) Maps(field string) []map[string]any {
	v, ok := r.lookup(field, false)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		r.fail(field, "want array, got %T", v)
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			r.fail(field, "element %d: want map, got %T", i, item)
			return nil
		}
		out = append(out, m)
	}
	return out
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("want number, got %T", v)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("want integer, got %v", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("want integer, got %T", v)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC(), nil
		}
		parsed, err := ParseDay(t)
		if err != nil {
			return time.Time{}, fmt.Errorf("want timestamp, got %q", t)
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("want timestamp, got %T", v)
}
