package domain

import (
	"regexp"
	"sort"
)

// Record is one table row, or a partial row used as a create/update payload.
// Keys are column names; values come straight from JSON decoding or from the
// database driver.
type Record map[string]any

// Filter is a set of column = value equality conditions joined with AND.
type Filter map[string]any

var columnPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidColumn reports whether name is acceptable as a payload column key.
func ValidColumn(name string) bool {
	return columnPattern.MatchString(name)
}

// Keys returns the record's column names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Without returns a copy of r without the given columns.
func (r Record) Without(columns ...string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, c := range columns {
		delete(out, c)
	}
	return out
}

// Int64 reads an integer-valued column, accepting the numeric types pgx and
// encoding/json produce.
func (r Record) Int64(column string) (int64, bool) {
	switch v := r[column].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case int16:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// String reads a text column.
func (r Record) String(column string) (string, bool) {
	v, ok := r[column].(string)
	return v, ok
}
