// Package model holds the data types shared across the migration pipeline.
package model

import (
	"math"
	"time"
)

// Record is one row of source or target data: a mapping from field name to a
// typed value (string, number, boolean, timestamp, or nil). Records are never
// mutated in place after validation; the cleaner produces a fresh copy.
type Record map[string]any

// Batch is an ordered collection of records flowing between phases.
type Batch []Record

// Has reports whether the field is present with a non-nil value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// String returns the field as a string. The second return is false when the
// field is absent, nil, or not a string.
func (r Record) String(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok
}

// Int returns the field as an int64. Whole-valued floats are accepted since
// numeric columns round-trip through drivers and JSON as float64.
func (r Record) Int(field string) (int64, bool) {
	switch v := r[field].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	}
	return 0, false
}

// Float returns the field as a float64, coercing integer values.
func (r Record) Float(field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Time returns the field as a time.Time. String values are parsed as RFC3339,
// which is how timestamps arrive from the CSV and sqlite sources.
func (r Record) Time(field string) (time.Time, bool) {
	switch v := r[field].(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a shallow copy of the record. Values are not deep-copied;
// pipeline values are scalars.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
