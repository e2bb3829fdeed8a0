// Package schema implements the Schema Replayer (C3): it brings a target
// table's structure into alignment with its source counterpart —
// non-destructively, creating tables, sequences, and primary keys when the
// target table is new, and only ever adding columns and indexes when it
// already exists. Columns are never removed or altered on the target.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/basinlabs/pgbridge/internal/catalog"
	"github.com/basinlabs/pgbridge/internal/model"
)

// Changes reports what the Replayer did to the target table.
type Changes struct {
	TableCreated     bool
	SequencesCreated int
	ColumnsAdded     []string
	Errors           []string
}

// Replayer brings a target table's schema into alignment with a source
// table's schema.
type Replayer struct {
	source   *catalog.Introspector
	target   *catalog.Introspector
	targetDB *sql.DB
	sink     model.Sink
}

// New creates a Replayer. sink may be nil, in which case log events are
// dropped (equivalent to a no-op sink), matching the "log append is
// best-effort" policy in spec §7.
func New(source, target *catalog.Introspector, targetDB *sql.DB, sink model.Sink) *Replayer {
	return &Replayer{source: source, target: target, targetDB: targetDB, sink: sink}
}

func (r *Replayer) log(ctx context.Context, jobID, table string, level model.LogLevel, msg string) {
	if r.sink == nil {
		return
	}
	_ = r.sink.Append(ctx, model.LogEvent{
		JobID:     jobID,
		TableName: table,
		Level:     level,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

// Replay reconciles table's structure on the target against its source
// definition and returns what it changed. A nil error means the replay ran
// to completion; individual statement failures are recorded in
// Changes.Errors and do not abort the rest of the table, except a failed
// CREATE TABLE, which is returned as an error.
func (r *Replayer) Replay(ctx context.Context, jobID, table string) (*Changes, error) {
	if err := catalog.ValidateIdentifier(table); err != nil {
		return nil, err
	}

	srcMeta, err := r.source.Describe(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("schema: describe source table %s: %w", table, err)
	}
	if len(srcMeta.Columns) == 0 {
		r.log(ctx, jobID, table, model.LogInfo, "table not found in source")
		return &Changes{}, nil
	}

	changes := &Changes{}

	exists, err := r.target.TableExists(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("schema: table_exists(%s): %w", table, err)
	}

	if !exists {
		if err := r.createTable(ctx, jobID, table, srcMeta, changes); err != nil {
			return nil, err
		}
	} else {
		if err := r.addMissingColumns(ctx, jobID, table, srcMeta, changes); err != nil {
			return nil, err
		}
	}

	if err := r.syncIndexes(ctx, jobID, table, srcMeta, changes); err != nil {
		return nil, err
	}

	return changes, nil
}

func (r *Replayer) createTable(ctx context.Context, jobID, table string, srcMeta *catalog.TableMetadata, changes *Changes) error {
	// Step a: create every source sequence up front, idempotently.
	seqByName := map[string]catalog.SequenceDescriptor{}
	for _, s := range srcMeta.Sequences {
		seqByName[s.Name] = s
		created, err := r.createSequenceIfMissing(ctx, s)
		if err != nil {
			changes.Errors = append(changes.Errors, err.Error())
			continue
		}
		if created {
			changes.SequencesCreated++
		}
	}

	// Step b: build and run CREATE TABLE, deferring nextval defaults.
	var serialColumns []string
	var colDefs []string
	for _, c := range srcMeta.Columns {
		if err := catalog.ValidateIdentifier(c.Name); err != nil {
			changes.Errors = append(changes.Errors, err.Error())
			continue
		}
		def := catalog.QuoteIdentifier(c.Name) + " " + mapType(c)
		if !c.IsNullable {
			def += " NOT NULL"
		}
		if isNextvalDefault(c.ColumnDefault) {
			serialColumns = append(serialColumns, c.Name)
		} else if c.ColumnDefault != nil {
			def += " DEFAULT " + *c.ColumnDefault
		}
		colDefs = append(colDefs, def)
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", catalog.QuoteIdentifier(table), strings.Join(colDefs, ",\n  "))
	if err := validateStatement(createSQL); err != nil {
		changes.Errors = append(changes.Errors, err.Error())
		return nil
	}
	if _, err := r.targetDB.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("schema: create table %s: %w", table, err)
	}
	changes.TableCreated = true

	// Step c: wire sequence ownership and defaults after the table exists.
	for _, c := range srcMeta.Columns {
		if !isNextvalDefault(c.ColumnDefault) {
			continue
		}
		seqName, ok := extractSequenceName(*c.ColumnDefault)
		if !ok {
			continue
		}
		if err := r.ownSequence(ctx, table, c.Name, seqName); err != nil {
			changes.Errors = append(changes.Errors, err.Error())
		}
	}

	// Step d: approximate PK recovery from serial columns.
	if len(serialColumns) > 0 {
		if err := r.addPrimaryKey(ctx, table, serialColumns); err != nil {
			changes.Errors = append(changes.Errors, err.Error())
		}
	}

	// Open Question 1 (decided in SPEC_FULL.md): surface, don't silently
	// drop, a mismatch between the serial-column heuristic and the
	// authoritative source PK.
	if authoritativePK, err := r.source.PrimaryKey(ctx, table); err == nil {
		if !sameColumnSet(authoritativePK, serialColumns) {
			r.log(ctx, jobID, table, model.LogWarning,
				fmt.Sprintf("replayed primary key %v derived from serial columns differs from source's authoritative primary key %v", serialColumns, authoritativePK))
		}
	}

	return nil
}

func (r *Replayer) createSequenceIfMissing(ctx context.Context, s catalog.SequenceDescriptor) (created bool, err error) {
	if err := catalog.ValidateIdentifier(s.Name); err != nil {
		return false, err
	}
	var exists bool
	if err := r.targetDB.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM pg_sequences WHERE schemaname = 'public' AND sequencename = $1
	)`, s.Name).Scan(&exists); err != nil {
		return false, fmt.Errorf("schema: probe sequence %s: %w", s.Name, err)
	}
	if exists {
		return false, nil
	}
	stmt := fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s INCREMENT BY %d MINVALUE %d START WITH %d",
		catalog.QuoteIdentifier(s.Name), s.Increment, s.MinimumValue, s.StartValue)
	if err := validateStatement(stmt); err != nil {
		return false, err
	}
	if _, err := r.targetDB.ExecContext(ctx, stmt); err != nil {
		return false, fmt.Errorf("schema: create sequence %s: %w", s.Name, err)
	}
	return true, nil
}

func (r *Replayer) ownSequence(ctx context.Context, table, column, seqName string) error {
	if err := catalog.ValidateIdentifier(seqName); err != nil {
		return err
	}
	setDefault := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT nextval(%s::regclass)",
		catalog.QuoteIdentifier(table), catalog.QuoteIdentifier(column), catalog.QuoteLiteral(seqName))
	if _, err := r.targetDB.ExecContext(ctx, setDefault); err != nil {
		return fmt.Errorf("schema: set default on %s.%s: %w", table, column, err)
	}
	own := fmt.Sprintf("ALTER SEQUENCE %s OWNED BY %s.%s",
		catalog.QuoteIdentifier(seqName), catalog.QuoteIdentifier(table), catalog.QuoteIdentifier(column))
	if _, err := r.targetDB.ExecContext(ctx, own); err != nil {
		return fmt.Errorf("schema: set sequence ownership %s: %w", seqName, err)
	}
	return nil
}

func (r *Replayer) addPrimaryKey(ctx context.Context, table string, columns []string) error {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = catalog.QuoteIdentifier(c)
	}
	pkName := table + "_pkey"
	stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)",
		catalog.QuoteIdentifier(table), catalog.QuoteIdentifier(pkName), strings.Join(quoted, ", "))
	if _, err := r.targetDB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("schema: add primary key on %s: %w", table, err)
	}
	return nil
}

func (r *Replayer) addMissingColumns(ctx context.Context, jobID, table string, srcMeta *catalog.TableMetadata, changes *Changes) error {
	targetCols, err := r.target.Columns(ctx, table)
	if err != nil {
		return fmt.Errorf("schema: columns(target, %s): %w", table, err)
	}
	have := make(map[string]bool, len(targetCols))
	for _, c := range targetCols {
		have[c.Name] = true
	}

	for _, c := range srcMeta.Columns {
		if have[c.Name] {
			continue
		}
		if err := catalog.ValidateIdentifier(c.Name); err != nil {
			changes.Errors = append(changes.Errors, err.Error())
			continue
		}

		if isNextvalDefault(c.ColumnDefault) {
			if seqName, ok := extractSequenceName(*c.ColumnDefault); ok {
				for _, s := range srcMeta.Sequences {
					if s.Name == seqName {
						if _, err := r.createSequenceIfMissing(ctx, s); err != nil {
							changes.Errors = append(changes.Errors, err.Error())
						}
						break
					}
				}
			}
		}

		def := mapType(c)
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", catalog.QuoteIdentifier(table), catalog.QuoteIdentifier(c.Name), def)
		if !c.IsNullable {
			stmt += " NOT NULL"
		}
		switch {
		case c.ColumnDefault != nil:
			stmt += " DEFAULT " + *c.ColumnDefault
		case !c.IsNullable:
			if fill, ok := nullFillDefault(c.DataType); ok {
				stmt += " DEFAULT " + fill
			}
		}

		if err := validateStatement(stmt); err != nil {
			changes.Errors = append(changes.Errors, err.Error())
			continue
		}
		if _, err := r.targetDB.ExecContext(ctx, stmt); err != nil {
			changes.Errors = append(changes.Errors, fmt.Sprintf("schema: add column %s.%s: %v", table, c.Name, err))
			continue
		}
		changes.ColumnsAdded = append(changes.ColumnsAdded, c.Name)
	}
	return nil
}

func (r *Replayer) syncIndexes(ctx context.Context, jobID, table string, srcMeta *catalog.TableMetadata, changes *Changes) error {
	targetIdx, err := r.target.Indexes(ctx, table)
	if err != nil {
		return fmt.Errorf("schema: indexes(target, %s): %w", table, err)
	}
	have := make(map[string]bool, len(targetIdx))
	for _, idx := range targetIdx {
		have[idx.Name] = true
	}

	for _, idx := range srcMeta.Indexes {
		if have[idx.Name] {
			continue
		}
		if err := validateStatement(idx.Definition); err != nil {
			changes.Errors = append(changes.Errors, err.Error())
			continue
		}
		if _, err := r.targetDB.ExecContext(ctx, idx.Definition); err != nil {
			changes.Errors = append(changes.Errors, fmt.Sprintf("schema: replay index %s: %v", idx.Name, err))
			r.log(ctx, jobID, table, model.LogError, fmt.Sprintf("failed to replay index %s: %v", idx.Name, err))
		}
	}
	return nil
}

func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}
