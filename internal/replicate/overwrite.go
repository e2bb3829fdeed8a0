package replicate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/basinlabs/pgbridge/internal/catalog"
	"github.com/basinlabs/pgbridge/internal/model"
	"github.com/basinlabs/pgbridge/internal/typeprep"
)

// Overwrite implements the overwrite rule: truncate the target (if
// non-empty) and reload every row from source in batches of BatchSize.
func (r *Replicator) Overwrite(ctx context.Context, jobID, table string, meta *catalog.TableMetadata) (int, error) {
	exists, err := r.targetIntro.TableExists(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("replicate: table_exists(%s): %w", table, err)
	}
	if !exists {
		r.log(ctx, jobID, table, model.LogInfo, "target table missing, invoking schema replay before overwrite")
		if _, err := r.replayer.Replay(ctx, jobID, table); err != nil {
			return 0, fmt.Errorf("replicate: schema replay for overwrite: %w", err)
		}
	}

	empty, err := r.targetIntro.TableIsEmpty(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("replicate: table_is_empty(%s): %w", table, err)
	}
	if !empty {
		if err := withReplicaRole(ctx, r.targetDB, func(ctx context.Context, conn *sql.Conn) error {
			stmt := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", catalog.QuoteIdentifier(table))
			_, err := conn.ExecContext(ctx, stmt)
			return err
		}); err != nil {
			return 0, fmt.Errorf("replicate: truncate %s: %w", table, err)
		}
		if err := r.resetSequences(ctx, meta, table); err != nil {
			r.log(ctx, jobID, table, model.LogWarning, fmt.Sprintf("sequence reset after truncate failed: %v", err))
		}
	}

	cols := columnNames(meta)
	schedule := r.preparer.BuildSchedule(cols, meta.JSONColumns, meta.ArrayColumns)
	selectCols := make([]string, len(cols))
	for i, c := range cols {
		selectCols[i] = catalog.QuoteIdentifier(c)
	}
	selectSQL := fmt.Sprintf("SELECT %s FROM %s LIMIT %d OFFSET $1", strings.Join(selectCols, ", "), catalog.QuoteIdentifier(table), BatchSize)

	totalMigrated := 0
	offset := 0
	for {
		batch, err := fetchRows(ctx, r.sourceDB, selectSQL, offset)
		if err != nil {
			return totalMigrated, fmt.Errorf("replicate: fetch batch at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		migrated, err := r.insertBatch(ctx, jobID, table, cols, schedule, batch)
		if err != nil {
			return totalMigrated, err
		}
		totalMigrated += migrated

		if len(batch) < BatchSize {
			break
		}
		offset += BatchSize
	}

	if err := r.resetSequences(ctx, meta, table); err != nil {
		r.log(ctx, jobID, table, model.LogWarning, fmt.Sprintf("final sequence reset failed: %v", err))
	}
	r.replayUniqueConstraints(ctx, meta, table)

	return totalMigrated, nil
}

// insertBatch bulk-inserts a batch of prepared rows within a replica
// session. On a batch-level error it falls back to inserting row by row,
// still within the replica session, counting only the rows that succeed.
func (r *Replicator) insertBatch(ctx context.Context, jobID, table string, cols []string, schedule *typeprep.Schedule, batch [][]any) (int, error) {
	insertSQL := buildBatchInsert(table, cols, len(batch))
	args := make([]any, 0, len(batch)*len(cols))
	for _, row := range batch {
		args = append(args, schedule.Prepare(row)...)
	}

	var batchErr error
	err := withReplicaRole(ctx, r.targetDB, func(ctx context.Context, conn *sql.Conn) error {
		_, batchErr = conn.ExecContext(ctx, insertSQL, args...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if batchErr == nil {
		return len(batch), nil
	}

	// Batch insert failed: fall back to per-row inserts within the same
	// kind of replica session, counting only rows that succeed.
	r.log(ctx, jobID, table, model.LogWarning, fmt.Sprintf("batch insert failed, falling back to per-row insert: %v", batchErr))
	single := buildInsert(table, cols)
	succeeded := 0
	if err := withReplicaRole(ctx, r.targetDB, func(ctx context.Context, conn *sql.Conn) error {
		for _, row := range batch {
			values := schedule.Prepare(row)
			if _, err := conn.ExecContext(ctx, single, values...); err != nil {
				r.log(ctx, jobID, table, model.LogError, fmt.Sprintf("row insert failed: %v, payload: %s", err, truncatedPayload(values)))
				continue
			}
			succeeded++
		}
		return nil
	}); err != nil {
		return succeeded, err
	}
	return succeeded, nil
}

// buildBatchInsert builds a single multi-row INSERT statement for n rows
// over columns.
func buildBatchInsert(table string, columns []string, n int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = catalog.QuoteIdentifier(c)
	}
	groups := make([]string, n)
	idx := 1
	for i := 0; i < n; i++ {
		placeholders := make([]string, len(columns))
		for j := range columns {
			placeholders[j] = fmt.Sprintf("$%d", idx)
			idx++
		}
		groups[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		catalog.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(groups, ", "))
}
