// Package model holds the data shapes shared between the migration engine
// and its Job Store collaborator: connection descriptors, job specs, and the
// terminal records the engine writes back. None of these types carry any
// database logic of their own.
package model

import (
	"context"
	"time"
)

// Rule is the per-table replication strategy.
type Rule string

const (
	RuleSchema    Rule = "schema"
	RuleOverwrite Rule = "overwrite"
	RuleUpsert    Rule = "upsert"
	RuleIgnore    Rule = "ignore"
)

// TLSMode mirrors PostgreSQL's sslmode values that this engine supports.
type TLSMode string

const (
	TLSDisable TLSMode = "disable"
	TLSRequire TLSMode = "require"
	TLSPrefer  TLSMode = "prefer"
)

// TLSConfig is the TLS block of a ConnectionSpec.
type TLSConfig struct {
	Enabled    bool
	Mode       TLSMode
	VerifyPeer bool
}

// ConnectionSpec describes how to reach one side (source or target) of a
// migration job. The engine treats it as opaque beyond what it needs to open
// a connection; the caller is responsible for its contents.
type ConnectionSpec struct {
	ID       string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	TLS      TLSConfig
}

// TableTask names one table and the replication rule to apply to it.
type TableTask struct {
	TableName string
	Rule      Rule
}

// JobSpec is the input to a single migration run.
type JobSpec struct {
	JobID        string
	SourceConnID string
	TargetConnID string
	GlobalRule   Rule
	Tasks        []TableTask
}

// TableStatus is the terminal state of one table within a job.
type TableStatus string

const (
	TableSuccess TableStatus = "success"
	TableFailed  TableStatus = "failed"
)

// TableResult is the outcome of replicating (or schema-reconciling) one
// table. RowsMigrated counts rows moved for data rules, or columns added for
// the schema rule — never both.
type TableResult struct {
	Table        string      `json:"table"`
	Rule         Rule        `json:"rule"`
	RowsMigrated int         `json:"rows_migrated"`
	Status       TableStatus `json:"status"`
	Error        string      `json:"error,omitempty"`
}

// JobStatus is the lifecycle state of a JobRecord. It is monotonic:
// pending -> running -> {completed | failed}, and never moves backwards.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobRecord is the terminal record the engine writes back to the Job Store.
type JobRecord struct {
	JobID        string
	SourceConnID string
	TargetConnID string
	Status       JobStatus
	Result       []TableResult
	DurationMS   int64
	ErrorMessage string
}

// LogLevel is the severity of a LogEvent.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// LogEvent is one entry in the job's time-ordered log stream.
type LogEvent struct {
	JobID     string
	TableName string
	Level     LogLevel
	Message   string
	Timestamp time.Time
}

// Sink is the logging channel the engine writes LogEvents to. It is
// intentionally the only coupling point to a logging/storage backend: the
// engine must not depend on a particular log framework (spec §9). A log
// append failure is swallowed by the caller, never a reason to fail a table
// or a job.
type Sink interface {
	Append(ctx context.Context, event LogEvent) error
}
