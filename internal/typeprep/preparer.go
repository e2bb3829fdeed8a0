// Package typeprep implements the Type Preparer (C1): it converts a source
// row, given as its values in column order, into a form the target
// insert can accept — serializing JSON/JSONB values to canonical text and
// formatting arrays as PostgreSQL array literals.
package typeprep

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// converter turns one column's raw value into its insertable form.
type converter func(value any) any

// Schedule is a column-indexed conversion plan computed once per table.
// Iterating it positionally per row avoids repeated map lookups and string
// comparisons against the JSON/array column sets on the hot path.
type Schedule struct {
	columns    []string
	converters []converter
}

// Preparer builds and applies conversion Schedules for JSON/JSONB and ARRAY
// columns identified by the Catalog Introspector.
type Preparer struct {
	logger *slog.Logger
}

// New creates a Preparer. logger receives a warning whenever a value must be
// dropped to null because it failed to serialize (spec §4.1: "substitute
// null and log").
func New(logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preparer{logger: logger}
}

// BuildSchedule computes the per-column converter list for a table, given
// its column order and the JSON/array classification from catalog.ClassifyColumns.
func (p *Preparer) BuildSchedule(columns []string, jsonColumns, arrayColumns map[string]bool) *Schedule {
	s := &Schedule{
		columns:    columns,
		converters: make([]converter, len(columns)),
	}
	for i, col := range columns {
		switch {
		case jsonColumns[col]:
			s.converters[i] = p.prepareJSON
		case arrayColumns[col]:
			s.converters[i] = p.prepareArray
		default:
			s.converters[i] = p.prepareScalar
		}
	}
	return s
}

// Prepare applies the schedule to one row, given as values in column order,
// and returns the insertable values in the same order.
func (s *Schedule) Prepare(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = s.converters[i](v)
	}
	return out
}

func (p *Preparer) prepareJSON(value any) any {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case string:
		if json.Valid([]byte(v)) {
			return v
		}
		// Not valid JSON on the wire: treat the raw text as a JSON string value.
		b, err := json.Marshal(v)
		if err != nil {
			p.logger.Warn("typeprep: failed to wrap non-JSON text as a JSON string", "error", err)
			return nil
		}
		return string(b)
	case []byte:
		return p.prepareJSON(string(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			p.logger.Warn("typeprep: failed to serialize value for JSON column", "error", err)
			return nil
		}
		return string(b)
	}
}

func (p *Preparer) prepareArray(value any) any {
	if value == nil {
		return nil
	}
	if s, ok := value.(string); ok {
		if strings.HasPrefix(s, "{") {
			return s
		}
		return s
	}
	elems, ok := asSlice(value)
	if !ok {
		return value
	}
	return formatArrayLiteral(elems)
}

// prepareScalar handles columns that are neither JSON nor ARRAY: structured
// values (anything but a time.Time) still need to become JSON text, because
// the target insert has no other way to accept a nested value; everything
// else passes through unchanged.
func (p *Preparer) prepareScalar(value any) any {
	if value == nil {
		return nil
	}
	if _, isTime := value.(time.Time); isTime {
		return value
	}
	if isStructured(value) {
		b, err := json.Marshal(value)
		if err != nil {
			p.logger.Warn("typeprep: failed to serialize structured scalar value", "error", err)
			return nil
		}
		return string(b)
	}
	return value
}

func isStructured(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

func asSlice(value any) ([]any, bool) {
	v, ok := value.([]any)
	return v, ok
}

// formatArrayLiteral renders a Go slice as a PostgreSQL array literal
// "{elem1,elem2,...}", quoting string elements and backslash-escaping
// embedded quotes and backslashes.
func formatArrayLiteral(elems []any) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = formatArrayElement(e)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatArrayElement(e any) string {
	if e == nil {
		return "NULL"
	}
	switch v := e.(type) {
	case string:
		escaped := strings.ReplaceAll(v, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return `"` + escaped + `"`
	default:
		return fmt.Sprintf("%v", v)
	}
}
