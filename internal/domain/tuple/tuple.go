package tuple

import (
	"fmt"
	"sort"
	"strconv"
)

// Marker fields the engine uses inside the document stream.
const (
	FieldEOF          = "EOF"
	FieldException    = "EXCEPTION"
	FieldResponseTime = "RESPONSE_TIME"
)

// Tuple is one result record of a stream.
type Tuple struct {
	Fields map[string]any
}

// FromMap wraps a decoded document. The map is not copied.
func FromMap(m map[string]any) *Tuple {
	if m == nil {
		m = map[string]any{}
	}
	return &Tuple{Fields: m}
}

// EOFTuple returns the end-of-stream marker tuple.
func EOFTuple() *Tuple {
	return &Tuple{Fields: map[string]any{FieldEOF: true}}
}

// IsEOF reports whether t marks the end of the stream.
func (t *Tuple) IsEOF() bool {
	b, _ := t.Bool(FieldEOF)
	return b
}

// Exception returns the exception message carried by t, if any.
func (t *Tuple) Exception() (string, bool) {
	v, ok := t.Fields[FieldException]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

// Get returns the raw field value.
func (t *Tuple) Get(key string) (any, bool) {
	v, ok := t.Fields[key]
	return v, ok
}

// String returns the field as a string. Non-string scalars are formatted.
func (t *Tuple) String(key string) (string, bool) {
	v, ok := t.Fields[key]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return fmt.Sprint(x), true
	}
}

// Long returns the field as an int64.
func (t *Tuple) Long(key string) (int64, bool) {
	switch x := t.Fields[key].(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case float64:
		return int64(x), true
	case float32:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Double returns the field as a float64.
func (t *Tuple) Double(key string) (float64, bool) {
	switch x := t.Fields[key].(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the field as a bool.
func (t *Tuple) Bool(key string) (bool, bool) {
	switch x := t.Fields[key].(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(x)
		return b, err == nil
	default:
		return false, false
	}
}

// Strings returns a multi-valued field as strings. A scalar yields one element.
func (t *Tuple) Strings(key string) ([]string, bool) {
	v, ok := t.Fields[key]
	if !ok || v == nil {
		return nil, false
	}
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			out[i] = fmt.Sprint(e)
		}
		return out, true
	default:
		s, _ := t.String(key)
		return []string{s}, true
	}
}

// Keys returns the field names in sorted order.
func (t *Tuple) Keys() []string {
	keys := make([]string, 0, len(t.Fields))
	for k := range t.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of fields.
func (t *Tuple) Len() int { return len(t.Fields) }
