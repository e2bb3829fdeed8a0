// Package replicate implements the Data Replicator (C4): the three
// data-moving rules (overwrite, upsert, insert-ignore), their batching, and
// the session_replication_role scoping destructive statements need.
package replicate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/basinlabs/pgbridge/internal/catalog"
	"github.com/basinlabs/pgbridge/internal/model"
	"github.com/basinlabs/pgbridge/internal/schema"
	"github.com/basinlabs/pgbridge/internal/typeprep"
)

// BatchSize is the fixed batch size for overwrite's source reads and target
// bulk inserts (spec §4.4).
const BatchSize = 500

// Replicator moves row data between a source and target connection for one
// table at a time.
type Replicator struct {
	sourceDB     *sql.DB
	targetDB     *sql.DB
	sourceIntro  *catalog.Introspector
	targetIntro  *catalog.Introspector
	preparer     *typeprep.Preparer
	replayer     *schema.Replayer
	sink         model.Sink
	logger       *slog.Logger
}

// New builds a Replicator from the source/target connections and their
// introspectors, plus a schema Replayer (used by Overwrite when the target
// table is missing, per spec §4.4.1) and a log sink.
func New(sourceDB, targetDB *sql.DB, sourceIntro, targetIntro *catalog.Introspector, replayer *schema.Replayer, sink model.Sink, logger *slog.Logger) *Replicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replicator{
		sourceDB:    sourceDB,
		targetDB:    targetDB,
		sourceIntro: sourceIntro,
		targetIntro: targetIntro,
		preparer:    typeprep.New(logger),
		replayer:    replayer,
		sink:        sink,
		logger:      logger,
	}
}

func (r *Replicator) log(ctx context.Context, jobID, table string, level model.LogLevel, msg string) {
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

// withReplicaRole runs fn on a dedicated connection with
// session_replication_role set to replica for its duration, restoring the
// default on every exit path including a panic unwinding through fn.
func withReplicaRole(ctx context.Context, db *sql.DB, fn func(ctx context.Context, conn *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("replicate: acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET session_replication_role = replica"); err != nil {
		return fmt.Errorf("replicate: enter replica session: %w", err)
	}
	defer func() {
		// Best-effort restore on a background context: the caller's ctx may
		// already be cancelled by the time we get here.
		_, _ = conn.ExecContext(context.Background(), "SET session_replication_role = DEFAULT")
	}()

	return fn(ctx, conn)
}

// columnNames returns the ordered column names for a table's metadata.
func columnNames(meta *catalog.TableMetadata) []string {
	names := make([]string, len(meta.Columns))
	for i, c := range meta.Columns {
		names[i] = c.Name
	}
	return names
}

// fetchRows runs query and scans every row into a slice of column-ordered
// values, suitable for handing to a typeprep.Schedule.
func fetchRows(ctx context.Context, db *sql.DB, query string, args ...any) ([][]any, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

// buildInsert builds a parameterized single-row INSERT statement for table
// over columns, in order, with no conflict handling.
func buildInsert(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = catalog.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		catalog.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// resetSequences sets every sequence owned by a column of table to
// max(column)+1, or 1 when the column is empty, per spec §4.4.1.
func (r *Replicator) resetSequences(ctx context.Context, meta *catalog.TableMetadata, table string) error {
	for _, s := range meta.Sequences {
		if err := catalog.ValidateIdentifier(s.OwningColumn); err != nil {
			continue
		}
		var next sql.NullInt64
		query := fmt.Sprintf("SELECT max(%s) FROM %s", catalog.QuoteIdentifier(s.OwningColumn), catalog.QuoteIdentifier(table))
		if err := r.targetDB.QueryRowContext(ctx, query).Scan(&next); err != nil {
			return fmt.Errorf("replicate: max(%s): %w", s.OwningColumn, err)
		}
		value := int64(1)
		if next.Valid {
			value = next.Int64 + 1
		}
		if _, err := r.targetDB.ExecContext(ctx, `SELECT setval($1, $2, false)`, s.Name, value); err != nil {
			return fmt.Errorf("replicate: setval(%s): %w", s.Name, err)
		}
	}
	return nil
}

// replayUniqueConstraints reapplies the source's unique constraints to the
// target, ignoring "already exists" errors — used after an overwrite to
// make sure a target table created before this engine's lifetime still has
// the constraints the source has.
func (r *Replicator) replayUniqueConstraints(ctx context.Context, meta *catalog.TableMetadata, table string) {
	for _, uc := range meta.UniqueConstraints {
		quoted := make([]string, len(uc.Columns))
		for i, c := range uc.Columns {
			quoted[i] = catalog.QuoteIdentifier(c)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
			catalog.QuoteIdentifier(table), catalog.QuoteIdentifier(uc.Name), strings.Join(quoted, ", "))
		if _, err := r.targetDB.ExecContext(ctx, stmt); err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				r.logger.Debug("replicate: unique constraint replay failed", "table", table, "constraint", uc.Name, "error", err)
			}
		}
	}
}

// truncatedPayload renders a row for a log message, capped at 200 bytes, as
// spec §4.4.1 requires for logged batch-insert fallback failures.
func truncatedPayload(values []any) string {
	s := fmt.Sprintf("%v", values)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
