package replicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/basinlabs/pgbridge/internal/catalog"
	"github.com/basinlabs/pgbridge/internal/model"
)

// Upsert implements the upsert rule: every source row fully replaces its
// target counterpart by primary key, and rows with no existing counterpart
// are inserted (spec §4.4.2).
func (r *Replicator) Upsert(ctx context.Context, jobID, table string, meta *catalog.TableMetadata) (int, error) {
	exists, err := r.targetIntro.TableExists(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("replicate: table_exists(%s): %w", table, err)
	}
	if !exists {
		r.log(ctx, jobID, table, model.LogInfo, "target table missing, invoking schema replay before upsert")
		if _, err := r.replayer.Replay(ctx, jobID, table); err != nil {
			return 0, fmt.Errorf("replicate: schema replay for upsert: %w", err)
		}
	}

	pk, err := r.targetIntro.PrimaryKey(ctx, table)
	if err != nil || len(pk) == 0 {
		pk = []string{"id"}
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
		return 0, fmt.Errorf("replicate: read source rows for upsert: %w", err)
	}

	upsertSQL := buildUpsert(table, cols, pk)
	succeeded := 0
	for _, row := range rows {
		values := schedule.Prepare(row)
		if _, err := r.targetDB.ExecContext(ctx, upsertSQL, values...); err != nil {
			r.log(ctx, jobID, table, model.LogError, fmt.Sprintf("upsert failed: %v, payload: %s", err, truncatedPayload(values)))
			continue
		}
		succeeded++
	}

	return succeeded, nil
}

// buildUpsert builds "INSERT ... ON CONFLICT (pk...) DO UPDATE SET
// col = EXCLUDED.col, ..." over every non-primary-key column.
func buildUpsert(table string, columns, pk []string) string {
	pkSet := make(map[string]bool, len(pk))
	for _, c := range pk {
		pkSet[c] = true
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = catalog.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	quotedPK := make([]string, len(pk))
	for i, c := range pk {
		quotedPK[i] = catalog.QuoteIdentifier(c)
	}

	var sets []string
	for _, c := range columns {
		if pkSet[c] {
			continue
		}
		q := catalog.QuoteIdentifier(c)
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}

	base := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s)",
		catalog.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "), strings.Join(quotedPK, ", "))

	if len(sets) == 0 {
		return base + " DO NOTHING"
	}
	return base + " DO UPDATE SET " + strings.Join(sets, ", ")
}
