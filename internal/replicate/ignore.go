package replicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/basinlabs/pgbridge/internal/catalog"
	"github.com/basinlabs/pgbridge/internal/model"
)

// InsertIgnore implements the insert-ignore rule: every source row is
// inserted; a row whose insert fails on a duplicate key or unique
// constraint is silently skipped, any other failure is logged (spec §4.4.3).
func (r *Replicator) InsertIgnore(ctx context.Context, jobID, table string, meta *catalog.TableMetadata) (int, error) {
	exists, err := r.targetIntro.TableExists(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("replicate: table_exists(%s): %w", table, err)
	}
	if !exists {
		r.log(ctx, jobID, table, model.LogInfo, "target table missing, invoking schema replay before insert-ignore")
		if _, err := r.replayer.Replay(ctx, jobID, table); err != nil {
			return 0, fmt.Errorf("replicate: schema replay for insert-ignore: %w", err)
		}
	}

	cols := columnNames(meta)
	schedule := r.preparer.BuildSchedule(cols, meta.JSONColumns, meta.ArrayColumns)
	selectCols := make([]string, len(cols))
	for i, c := range cols {
		selectCols[i] = catalog.QuoteIdentifier(c)
	}
	selectSQL := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selectCols, ", "), catalog.QuoteIdentifier(table))

	rows, err := fetchRows(ctx, r.sourceDB, selectSQL)
	if err != nil {
		return 0, fmt.Errorf("replicate: read source rows for insert-ignore: %w", err)
	}

	insertSQL := buildInsert(table, cols)
	accepted := 0
	for _, row := range rows {
		values := schedule.Prepare(row)
		if _, err := r.targetDB.ExecContext(ctx, insertSQL, values...); err != nil {
			if isDuplicateKeyError(err) {
				continue
			}
			r.log(ctx, jobID, table, model.LogError, fmt.Sprintf("insert-ignore failed: %v, payload: %s", err, truncatedPayload(values)))
			continue
		}
		accepted++
	}

	return accepted, nil
}

// isDuplicateKeyError reports whether err looks like a primary-key or
// unique-constraint violation that insert-ignore should silently absorb.
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
