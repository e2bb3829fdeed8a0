package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Introspector exposes pure-read queries against a single PostgreSQL
// database's "public" schema. It never mutates catalog state.
type Introspector struct {
	db *sql.DB
}

// NewIntrospector wraps an existing connection.
func NewIntrospector(db *sql.DB) *Introspector {
	return &Introspector{db: db}
}

// TableMetadata bundles everything the Schema Replayer and Data Replicator
// need about one table, fetched in a single Describe call.
type TableMetadata struct {
	Columns           []ColumnDescriptor
	JSONColumns       map[string]bool
	ArrayColumns      map[string]bool
	Sequences         []SequenceDescriptor
	PrimaryKey        []string
	UniqueConstraints []ConstraintDescriptor
	Indexes           []IndexDescriptor
}

// Describe fetches everything needed to replicate one table. Columns are
// fetched first (everything else either depends on column defaults or is
// independent of them); the remaining reads are independent of each other
// and run concurrently.
func (ins *Introspector) Describe(ctx context.Context, table string) (*TableMetadata, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}

	cols, err := ins.Columns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("catalog: columns(%s): %w", table, err)
	}
	jsonCols, arrayCols := ClassifyColumns(cols)

	meta := &TableMetadata{
		Columns:      cols,
		JSONColumns:  jsonCols,
		ArrayColumns: arrayCols,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		seqs, err := ins.Sequences(gctx, table)
		if err != nil {
			return fmt.Errorf("sequences(%s): %w", table, err)
		}
		meta.Sequences = seqs
		return nil
	})
	g.Go(func() error {
		pk, err := ins.PrimaryKey(gctx, table)
		if err != nil {
			return fmt.Errorf("primary_key(%s): %w", table, err)
		}
		meta.PrimaryKey = pk
		return nil
	})
	g.Go(func() error {
		uniq, err := ins.UniqueConstraints(gctx, table)
		if err != nil {
			return fmt.Errorf("unique_constraints(%s): %w", table, err)
		}
		meta.UniqueConstraints = uniq
		return nil
	})
	g.Go(func() error {
		idx, err := ins.Indexes(gctx, table)
		if err != nil {
			return fmt.Errorf("indexes(%s): %w", table, err)
		}
		meta.Indexes = idx
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meta, nil
}

// Columns returns ColumnDescriptor rows for table, ordered by ordinal_position.
func (ins *Introspector) Columns(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	rows, err := ins.db.QueryContext(ctx, `
		SELECT column_name, data_type, udt_name, is_nullable,
		       character_maximum_length, numeric_precision, numeric_scale,
		       column_default, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnDescriptor
	for rows.Next() {
		var c ColumnDescriptor
		var isNullable string
		if err := rows.Scan(&c.Name, &c.DataType, &c.UDTName, &isNullable,
			&c.CharacterMaximumLength, &c.NumericPrecision, &c.NumericScale,
			&c.ColumnDefault, &c.OrdinalPosition); err != nil {
			return nil, err
		}
		c.IsNullable = strings.EqualFold(isNullable, "YES")
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// ClassifyColumns computes, once per table, which columns are JSON/JSONB and
// which are ARRAY-typed, so per-row conversion never repeats the string
// comparisons.
func ClassifyColumns(cols []ColumnDescriptor) (jsonColumns, arrayColumns map[string]bool) {
	jsonColumns = make(map[string]bool)
	arrayColumns = make(map[string]bool)
	for _, c := range cols {
		if c.DataType == "json" || c.DataType == "jsonb" || c.UDTName == "json" || c.UDTName == "jsonb" {
			jsonColumns[c.Name] = true
		}
		if c.DataType == "ARRAY" || strings.HasPrefix(c.UDTName, "_") {
			arrayColumns[c.Name] = true
		}
	}
	return jsonColumns, arrayColumns
}

// Sequences returns sequences owned by serial/bigserial columns of table, by
// joining pg_sequences to the regclass pg_get_serial_sequence resolves for
// each column.
func (ins *Introspector) Sequences(ctx context.Context, table string) ([]SequenceDescriptor, error) {
	rows, err := ins.db.QueryContext(ctx, `
		WITH owned AS (
			SELECT column_name,
			       pg_get_serial_sequence('public.' || $1, column_name) AS seq_regclass
			FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1
		)
		SELECT owned.column_name, s.sequencename, s.increment_by, s.min_value, s.start_value
		FROM owned
		JOIN pg_sequences s
		  ON s.schemaname = 'public'
		 AND owned.seq_regclass::regclass = ('public.' || quote_ident(s.sequencename))::regclass
		WHERE owned.seq_regclass IS NOT NULL`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seqs []SequenceDescriptor
	for rows.Next() {
		var s SequenceDescriptor
		if err := rows.Scan(&s.OwningColumn, &s.Name, &s.Increment, &s.MinimumValue, &s.StartValue); err != nil {
			return nil, err
		}
		s.OwningTable = table
		seqs = append(seqs, s)
	}
	return seqs, rows.Err()
}

// UniqueConstraints aggregates table_constraints + key_column_usage rows into
// one ConstraintDescriptor per UNIQUE constraint, columns ordered by position.
func (ins *Introspector) UniqueConstraints(ctx context.Context, table string) ([]ConstraintDescriptor, error) {
	return ins.keyConstraints(ctx, table, "UNIQUE", ConstraintUnique)
}

// PrimaryKey returns the column names of table's primary key, in key order,
// derived from pg_index/pg_attribute (the authoritative source, independent
// of any serial-column heuristic used elsewhere).
func (ins *Introspector) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	rows, err := ins.db.QueryContext(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_class t ON t.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(i.indkey)
		WHERE n.nspname = 'public' AND t.relname = $1 AND i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// ForeignKeys returns the foreign key constraints declared on table. It is
// exposed for callers that want to inspect referential structure; the Schema
// Replayer does not replay foreign keys (see spec §4.2, §9).
func (ins *Introspector) ForeignKeys(ctx context.Context, table string) ([]ConstraintDescriptor, error) {
	rows, err := ins.db.QueryContext(ctx, `
		SELECT tc.constraint_name, kcu.column_name, kcu.ordinal_position,
		       ccu.table_name, ccu.column_name,
		       rc.update_rule, rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		JOIN information_schema.referential_constraints rc
		  ON tc.constraint_name = rc.constraint_name AND tc.table_schema = rc.constraint_schema
		WHERE tc.table_schema = 'public' AND tc.table_name = $1 AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY tc.constraint_name, kcu.ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]*ConstraintDescriptor{}
	var order []string
	for rows.Next() {
		var name, col, refTable, refCol, updateRule, deleteRule string
		var pos int
		if err := rows.Scan(&name, &col, &pos, &refTable, &refCol, &updateRule, &deleteRule); err != nil {
			return nil, err
		}
		cd, ok := byName[name]
		if !ok {
			cd = &ConstraintDescriptor{
				Kind:             ConstraintForeign,
				Name:             name,
				ReferencedTable:  refTable,
				ReferencedColumn: refCol,
				UpdateRule:       updateRule,
				DeleteRule:       deleteRule,
			}
			byName[name] = cd
			order = append(order, name)
		}
		cd.Columns = append(cd.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ConstraintDescriptor, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

func (ins *Introspector) keyConstraints(ctx context.Context, table, constraintType string, kind ConstraintKind) ([]ConstraintDescriptor, error) {
	rows, err := ins.db.QueryContext(ctx, `
		SELECT tc.constraint_name, kcu.column_name, kcu.ordinal_position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = 'public' AND tc.table_name = $1 AND tc.constraint_type = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position`, table, constraintType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]*ConstraintDescriptor{}
	var order []string
	for rows.Next() {
		var name, col string
		var pos int
		if err := rows.Scan(&name, &col, &pos); err != nil {
			return nil, err
		}
		cd, ok := byName[name]
		if !ok {
			cd = &ConstraintDescriptor{Kind: kind, Name: name}
			byName[name] = cd
			order = append(order, name)
		}
		cd.Columns = append(cd.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ConstraintDescriptor, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

// Indexes returns pg_indexes rows for table, excluding primary-key indexes.
func (ins *Introspector) Indexes(ctx context.Context, table string) ([]IndexDescriptor, error) {
	rows, err := ins.db.QueryContext(ctx, `
		SELECT indexname, indexdef
		FROM pg_indexes
		WHERE schemaname = 'public' AND tablename = $1 AND indexname NOT LIKE '%\_pkey' ESCAPE '\'
		ORDER BY indexname`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexDescriptor
	for rows.Next() {
		var idx IndexDescriptor
		if err := rows.Scan(&idx.Name, &idx.Definition); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

// TableExists reports whether table exists in the public schema.
func (ins *Introspector) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := ins.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, table).Scan(&exists)
	return exists, err
}

// TableIsEmpty is an EXISTS probe used to decide whether a truncate is
// needed before an overwrite.
func (ins *Introspector) TableIsEmpty(ctx context.Context, table string) (bool, error) {
	if err := ValidateIdentifier(table); err != nil {
		return false, err
	}
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s LIMIT 1)`, QuoteIdentifier(table))
	err := ins.db.QueryRowContext(ctx, query).Scan(&exists)
	return !exists, err
}
