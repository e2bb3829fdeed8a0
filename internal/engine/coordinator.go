// Package engine implements the Migration Coordinator (C5): the single
// entry point that drives one job end to end — opening pooled connections,
// iterating tables in spec order, dispatching each to the Schema Replayer or
// Data Replicator, and writing the terminal JobRecord back to the Job Store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/basinlabs/pgbridge/internal/catalog"
	"github.com/basinlabs/pgbridge/internal/connutil"
	"github.com/basinlabs/pgbridge/internal/jobstore"
	"github.com/basinlabs/pgbridge/internal/model"
	"github.com/basinlabs/pgbridge/internal/replicate"
	"github.com/basinlabs/pgbridge/internal/schema"
)

// Coordinator drives a single migration job against a jobstore.Store.
type Coordinator struct {
	store  jobstore.Store
	logger *slog.Logger
}

// New creates a Coordinator. logger is used for process-level diagnostics
// only; the per-table log stream goes through store.AppendLog (spec §4.6).
func New(store jobstore.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, logger: logger}
}

// storeSink adapts jobstore.Store.AppendLog to the narrower model.Sink
// interface the engine's C3/C4 collaborators depend on.
type storeSink struct {
	store jobstore.Store
}

func (s storeSink) Append(ctx context.Context, event model.LogEvent) error {
	return s.store.AppendLog(ctx, event)
}

// Run executes job to completion and returns the terminal JobRecord. Run
// itself never returns an error for a job-level failure: per spec §4.5 step
// 5, connection-lifecycle failures are recorded as JobFailed and returned,
// not propagated as a Go error. A non-nil error here means the Job Store
// rejected the write of the completed job state; a failed write of a
// job-level failure is only logged (see fail).
func (c *Coordinator) Run(ctx context.Context, spec model.JobSpec) (*model.JobRecord, error) {
	start := time.Now()

	sourceSpec, err := c.store.LoadConnection(ctx, spec.SourceConnID)
	if err != nil {
		return c.fail(ctx, spec, start, "Source or target connection not found"), nil
	}
	targetSpec, err := c.store.LoadConnection(ctx, spec.TargetConnID)
	if err != nil {
		return c.fail(ctx, spec, start, "Source or target connection not found"), nil
	}

	sourceDB, err := connutil.Connect(ctx, sourceSpec)
	if err != nil {
		return c.fail(ctx, spec, start, fmt.Sprintf("failed to open source connection: %v", err)), nil
	}
	defer sourceDB.Close()

	targetDB, err := connutil.Connect(ctx, targetSpec)
	if err != nil {
		return c.fail(ctx, spec, start, fmt.Sprintf("failed to open target connection: %v", err)), nil
	}
	defer targetDB.Close()

	sourceIntro := catalog.NewIntrospector(sourceDB)
	targetIntro := catalog.NewIntrospector(targetDB)
	sink := storeSink{store: c.store}
	replayer := schema.New(sourceIntro, targetIntro, targetDB, sink)
	replicator := replicate.New(sourceDB, targetDB, sourceIntro, targetIntro, replayer, sink, c.logger)

	results := make([]model.TableResult, 0, len(spec.Tasks))
	for _, task := range spec.Tasks {
		rule := task.Rule
		if rule == "" {
			rule = spec.GlobalRule
		}
		results = append(results, c.runTable(ctx, sink, sourceIntro, replayer, replicator, spec.JobID, task.TableName, rule))
	}

	durationMS := time.Since(start).Milliseconds()
	if err := c.store.UpdateJob(ctx, spec.JobID, jobstore.JobUpdate{
		Status:     model.JobCompleted,
		Result:     results,
		DurationMS: &durationMS,
	}); err != nil {
		return nil, fmt.Errorf("engine: write terminal job state for %s: %w", spec.JobID, err)
	}

	return &model.JobRecord{
		JobID:        spec.JobID,
		SourceConnID: spec.SourceConnID,
		TargetConnID: spec.TargetConnID,
		Status:       model.JobCompleted,
		Result:       results,
		DurationMS:   durationMS,
	}, nil
}

// runTable introspects one table and dispatches it to the rule-appropriate
// collaborator. A table-level failure never aborts the job (spec §4.5 step
// 3e): it is recorded as a failed TableResult and execution continues.
func (c *Coordinator) runTable(ctx context.Context, sink model.Sink, sourceIntro *catalog.Introspector, replayer *schema.Replayer, replicator *replicate.Replicator, jobID, table string, rule model.Rule) model.TableResult {
	logEvent(ctx, sink, jobID, table, model.LogInfo, fmt.Sprintf("Starting migration with rule: %s", rule))

	meta, err := sourceIntro.Describe(ctx, table)
	if err != nil {
		logEvent(ctx, sink, jobID, table, model.LogError, err.Error())
		return model.TableResult{Table: table, Rule: rule, Status: model.TableFailed, Error: err.Error()}
	}
	logEvent(ctx, sink, jobID, table, model.LogInfo,
		fmt.Sprintf("json columns: %v, array columns: %v", sortedKeys(meta.JSONColumns), sortedKeys(meta.ArrayColumns)))

	var rowsMigrated int
	var opErr error
	switch rule {
	case model.RuleSchema:
		var changes *schema.Changes
		changes, opErr = replayer.Replay(ctx, jobID, table)
		if opErr == nil {
			rowsMigrated = len(changes.ColumnsAdded)
		}
	case model.RuleOverwrite:
		rowsMigrated, opErr = replicator.Overwrite(ctx, jobID, table, meta)
	case model.RuleUpsert:
		rowsMigrated, opErr = replicator.Upsert(ctx, jobID, table, meta)
	case model.RuleIgnore:
		rowsMigrated, opErr = replicator.InsertIgnore(ctx, jobID, table, meta)
	default:
		opErr = fmt.Errorf("engine: unknown rule %q", rule)
	}

	if opErr != nil {
		logEvent(ctx, sink, jobID, table, model.LogError, opErr.Error())
		return model.TableResult{Table: table, Rule: rule, Status: model.TableFailed, Error: opErr.Error()}
	}
	return model.TableResult{Table: table, Rule: rule, RowsMigrated: rowsMigrated, Status: model.TableSuccess}
}

// fail writes a job-fatal failure back to the store (spec §4.5 step 5) and
// returns the corresponding terminal record. The store write is best-effort:
// if it too fails, the caller still gets an accurate in-memory record.
func (c *Coordinator) fail(ctx context.Context, spec model.JobSpec, start time.Time, message string) *model.JobRecord {
	durationMS := time.Since(start).Milliseconds()
	if err := c.store.UpdateJob(ctx, spec.JobID, jobstore.JobUpdate{
		Status:       model.JobFailed,
		DurationMS:   &durationMS,
		ErrorMessage: &message,
	}); err != nil {
		c.logger.Error("engine: failed to write job failure", "job_id", spec.JobID, "error", err)
	}
	return &model.JobRecord{
		JobID:        spec.JobID,
		SourceConnID: spec.SourceConnID,
		TargetConnID: spec.TargetConnID,
		Status:       model.JobFailed,
		DurationMS:   durationMS,
		ErrorMessage: message,
	}
}

// logEvent appends a log event through sink, swallowing the error per spec
// §4.6/§7 ("log append failures are swallowed").
func logEvent(ctx context.Context, sink model.Sink, jobID, table string, level model.LogLevel, msg string) {
	_ = sink.Append(ctx, model.LogEvent{
		JobID:     jobID,
		TableName: table,
		Level:     level,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
