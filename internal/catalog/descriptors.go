// Package catalog implements the Catalog Introspector: pure-read queries
// against information_schema and pg_catalog that describe a table's
// columns, sequences, constraints, and indexes. Every result is ordered
// deterministically so callers can depend on stable iteration.
package catalog

// ColumnDescriptor describes one column of a table as reported by
// information_schema.columns, restricted to the "public" schema.
type ColumnDescriptor struct {
	Name                   string
	DataType               string // information_schema "data_type"
	UDTName                string // leading underscore names the element type for arrays
	IsNullable             bool
	CharacterMaximumLength *int
	NumericPrecision       *int
	NumericScale           *int
	ColumnDefault          *string // raw SQL text, used to detect nextval(...)
	OrdinalPosition        int
}

// SequenceDescriptor describes a sequence owned by a serial/bigserial column.
type SequenceDescriptor struct {
	Name         string
	Increment    int64
	MinimumValue int64
	StartValue   int64
	OwningTable  string
	OwningColumn string
}

// ConstraintKind enumerates the constraint kinds this engine cares about.
type ConstraintKind string

const (
	ConstraintPrimary ConstraintKind = "primary"
	ConstraintUnique  ConstraintKind = "unique"
	ConstraintForeign ConstraintKind = "foreign"
)

// ConstraintDescriptor describes a primary key, unique, or foreign key
// constraint and its ordered columns.
type ConstraintDescriptor struct {
	Kind             ConstraintKind
	Name             string
	Columns          []string
	ReferencedTable  string
	ReferencedColumn string
	UpdateRule       string
	DeleteRule       string
}

// IndexDescriptor is a replayable index definition, excluding primary-key
// indexes (those are created implicitly via the PRIMARY KEY constraint).
type IndexDescriptor struct {
	Name       string
	Definition string // full "CREATE INDEX ..." statement text, as pg_indexes reports it
}
