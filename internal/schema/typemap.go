package schema

import (
	"fmt"
	"strings"

	"github.com/basinlabs/pgbridge/internal/catalog"
)

// mapType renders the target SQL type for a source column, following the
// type mapping table in spec §4.3.
func mapType(c catalog.ColumnDescriptor) string {
	switch c.DataType {
	case "character varying":
		n := 255
		if c.CharacterMaximumLength != nil {
			n = *c.CharacterMaximumLength
		}
		return fmt.Sprintf("varchar(%d)", n)
	case "character":
		n := 1
		if c.CharacterMaximumLength != nil {
			n = *c.CharacterMaximumLength
		}
		return fmt.Sprintf("char(%d)", n)
	case "numeric":
		p, s := 10, 2
		if c.NumericPrecision != nil {
			p = *c.NumericPrecision
		}
		if c.NumericScale != nil {
			s = *c.NumericScale
		}
		return fmt.Sprintf("numeric(%d,%d)", p, s)
	case "integer", "bigint", "smallint", "boolean", "text", "json", "jsonb", "uuid", "date", "bytea", "real":
		return c.DataType
	case "double precision":
		return "double precision"
	case "timestamp without time zone":
		return "timestamp"
	case "timestamp with time zone":
		return "timestamptz"
	case "time without time zone":
		return "time"
	case "ARRAY":
		return strings.TrimPrefix(c.UDTName, "_") + "[]"
	default:
		if c.UDTName != "" {
			return c.UDTName
		}
		return c.DataType
	}
}

// nullFillDefault returns the default value literal synthesized for a
// NOT NULL column added to a table with existing rows, per spec §4.3's
// null-fill table. ok is false when no safe default exists for this type,
// in which case the caller should attempt the bare ADD COLUMN and report a
// column-level error if it fails.
func nullFillDefault(dataType string) (value string, ok bool) {
	switch {
	case isNumericKind(dataType):
		return "0", true
	case dataType == "boolean":
		return "false", true
	case isStringKind(dataType):
		return "''", true
	case dataType == "json" || dataType == "jsonb":
		return "'{}'", true
	case isTimestampKind(dataType):
		return "NOW()", true
	case dataType == "date":
		return "CURRENT_DATE", true
	case dataType == "uuid":
		return "gen_random_uuid()", true
	default:
		return "", false
	}
}

func isNumericKind(dataType string) bool {
	switch dataType {
	case "numeric", "integer", "bigint", "smallint", "real", "double precision":
		return true
	}
	return false
}

func isStringKind(dataType string) bool {
	switch dataType {
	case "character varying", "character", "text":
		return true
	}
	return false
}

func isTimestampKind(dataType string) bool {
	switch dataType {
	case "timestamp without time zone", "timestamp with time zone", "timestamp", "timestamptz":
		return true
	}
	return false
}

// isNextvalDefault reports whether a column_default expression is a
// sequence-backed default, e.g. nextval('public.t_id_seq'::regclass).
func isNextvalDefault(def *string) bool {
	return def != nil && strings.HasPrefix(strings.TrimSpace(*def), "nextval(")
}

// extractSequenceName pulls the sequence name out of a nextval(...) default
// expression. Per spec §4.3: "extracted from the quoted first argument of
// the nextval expression, taking the last dotted component and stripping
// quotes."
func extractSequenceName(def string) (string, bool) {
	start := strings.Index(def, "'")
	if start == -1 {
		return "", false
	}
	end := strings.Index(def[start+1:], "'")
	if end == -1 {
		return "", false
	}
	arg := def[start+1 : start+1+end]
	parts := strings.Split(arg, ".")
	last := parts[len(parts)-1]
	last = strings.Trim(last, `"`)
	if last == "" {
		return "", false
	}
	return last, true
}
