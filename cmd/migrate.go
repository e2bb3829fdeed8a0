package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/basinlabs/pgbridge/internal/engine"
	"github.com/basinlabs/pgbridge/internal/jobstore"
	"github.com/basinlabs/pgbridge/internal/logger"
	"github.com/basinlabs/pgbridge/internal/model"
)

var (
	sourceHost, sourceDB, sourceUser, sourcePassword, sourceSSLMode string
	sourcePort                                                     int
	sourceVerifyPeer                                                bool

	targetHost, targetDB, targetUser, targetPassword, targetSSLMode string
	targetPort                                                     int
	targetVerifyPeer                                                bool

	globalRule string
	tableFlags []string
	jobID      string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run a migration job copying schema and rows from source to target",
	RunE:  runMigrate,
}

func init() {
	f := migrateCmd.Flags()

	f.StringVar(&sourceHost, "source-host", "localhost", "source database host")
	f.IntVar(&sourcePort, "source-port", 5432, "source database port")
	f.StringVar(&sourceDB, "source-db", "", "source database name")
	f.StringVar(&sourceUser, "source-user", "", "source database user")
	f.StringVar(&sourcePassword, "source-password", "", "source database password")
	f.StringVar(&sourceSSLMode, "source-sslmode", "prefer", "source TLS mode: disable, require, prefer")
	f.BoolVar(&sourceVerifyPeer, "source-verify-peer", false, "verify source server certificate")

	f.StringVar(&targetHost, "target-host", "localhost", "target database host")
	f.IntVar(&targetPort, "target-port", 5432, "target database port")
	f.StringVar(&targetDB, "target-db", "", "target database name")
	f.StringVar(&targetUser, "target-user", "", "target database user")
	f.StringVar(&targetPassword, "target-password", "", "target database password")
	f.StringVar(&targetSSLMode, "target-sslmode", "prefer", "target TLS mode: disable, require, prefer")
	f.BoolVar(&targetVerifyPeer, "target-verify-peer", false, "verify target server certificate")

	f.StringVar(&globalRule, "rule", string(model.RuleOverwrite), "default replication rule: schema, overwrite, upsert, ignore")
	f.StringArrayVar(&tableFlags, "table", nil, `table to migrate, as "name" or "name:rule"; repeatable`)
	f.StringVar(&jobID, "job-id", "", "job identifier (generated if omitted)")

	RootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if len(tableFlags) == 0 {
		return fmt.Errorf("at least one --table is required")
	}

	tasks, err := parseTables(tableFlags, model.Rule(globalRule))
	if err != nil {
		return err
	}

	id := jobID
	if id == "" {
		id = uuid.NewString()
	}

	sourceSpec := model.ConnectionSpec{
		ID: "source", Host: sourceHost, Port: sourcePort, Database: sourceDB,
		User: sourceUser, Password: sourcePassword,
		TLS: tlsConfig(sourceSSLMode, sourceVerifyPeer),
	}
	targetSpec := model.ConnectionSpec{
		ID: "target", Host: targetHost, Port: targetPort, Database: targetDB,
		User: targetUser, Password: targetPassword,
		TLS: tlsConfig(targetSSLMode, targetVerifyPeer),
	}

	store := jobstore.NewMemory()
	store.PutConnection(sourceSpec)
	store.PutConnection(targetSpec)
	store.PutJob(model.JobRecord{
		JobID:        id,
		SourceConnID: sourceSpec.ID,
		TargetConnID: targetSpec.ID,
		Status:       model.JobRunning,
	})

	coordinator := engine.New(store, logger.Get())
	spec := model.JobSpec{
		JobID:        id,
		SourceConnID: sourceSpec.ID,
		TargetConnID: targetSpec.ID,
		GlobalRule:   model.Rule(globalRule),
		Tasks:        tasks,
	}

	record, err := coordinator.Run(context.Background(), spec)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger.Get().Info("migration finished", "job_id", record.JobID, "status", record.Status, "duration_ms", record.DurationMS)
	for _, res := range record.Result {
		logger.Get().Info("table result", "table", res.Table, "rule", res.Rule, "rows_migrated", res.RowsMigrated, "status", res.Status, "error", res.Error)
	}
	if record.Status == model.JobFailed {
		return fmt.Errorf("migrate: job failed: %s", record.ErrorMessage)
	}
	return nil
}

func parseTables(flags []string, defaultRule model.Rule) ([]model.TableTask, error) {
	tasks := make([]model.TableTask, 0, len(flags))
	for _, f := range flags {
		name, rule, ok := strings.Cut(f, ":")
		task := model.TableTask{TableName: name, Rule: defaultRule}
		if ok {
			task.Rule = model.Rule(rule)
		}
		switch task.Rule {
		case model.RuleSchema, model.RuleOverwrite, model.RuleUpsert, model.RuleIgnore:
		default:
			return nil, fmt.Errorf("migrate: invalid rule %q for table %q", task.Rule, name)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func tlsConfig(mode string, verifyPeer bool) model.TLSConfig {
	m := model.TLSMode(mode)
	return model.TLSConfig{
		Enabled:    m != model.TLSDisable,
		Mode:       m,
		VerifyPeer: verifyPeer,
	}
}
