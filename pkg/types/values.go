package types

import (
	"fmt"
	"strconv"
)

// Values maps column names to values for insert and update.
type Values map[string]any

// String returns the value of key formatted as a string, or "" if absent.
func (v Values) String(key string) string {
	val, ok := v[key]
	if !ok || val == nil {
		return ""
	}
	return asString(val)
}

// Query describes a read request: projected columns, an extra selection with
// its bound arguments, and a sort order. Empty fields use the plan defaults.
type Query struct {
	Projection []string
	Selection  string
	Args       []any
	SortOrder  string
}

// ResultSet is a materialized row set.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Index returns the position of column name, or -1.
func (r *ResultSet) Index(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the value of column name in row i, or nil.
func (r *ResultSet) Value(i int, name string) any {
	idx := r.Index(name)
	if idx < 0 || i < 0 || i >= len(r.Rows) {
		return nil
	}
	return r.Rows[i][idx]
}

// String returns the value of column name in row i as a string.
func (r *ResultSet) String(i int, name string) string {
	v := r.Value(i, name)
	if v == nil {
		return ""
	}
	return asString(v)
}

// Int64 returns the value of column name in row i as an integer. Values that
// are not numeric yield 0.
func (r *ResultSet) Int64(i int, name string) int64 {
	switch v := r.Value(i, name).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	default:
		return 0
	}
}

// Maps returns the rows as column-name keyed maps.
func (r *ResultSet) Maps() []map[string]any {
	out := make([]map[string]any, 0, r.Len())
	for _, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for i, c := range r.Columns {
			m[c] = row[i]
		}
		out = append(out, m)
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(t)
	}
}
