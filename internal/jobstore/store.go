// Package jobstore is the engine's external Job Store collaborator (C6):
// loading connection descriptors, writing terminal job state, and appending
// log events. spec.md treats persistence of connection/rule-preset/job
// records as out of scope as a product surface (CRUD, HTTP, UI); this
// package is the narrow runnable adapter the engine itself depends on.
package jobstore

import (
	"context"
	"errors"

	"github.com/basinlabs/pgbridge/internal/model"
)

// ErrConnectionNotFound is returned by Store.LoadConnection when id does not
// name a known connection (spec §4.5 step 1: "fail the job with
// error_message=\"Source or target connection not found\"").
var ErrConnectionNotFound = errors.New("jobstore: connection not found")

// ErrJobNotFound is returned by Store.UpdateJob when id does not name a
// known job.
var ErrJobNotFound = errors.New("jobstore: job not found")

// JobUpdate is a partial write to a JobRecord's terminal fields. Pointer
// fields distinguish "not provided" from a zero value.
type JobUpdate struct {
	Status       model.JobStatus
	Result       []model.TableResult
	DurationMS   *int64
	ErrorMessage *string
}

// Store is everything the Migration Coordinator (C5) depends on for
// persistence (spec §4.6).
type Store interface {
	LoadConnection(ctx context.Context, id string) (model.ConnectionSpec, error)
	UpdateJob(ctx context.Context, id string, update JobUpdate) error
	AppendLog(ctx context.Context, event model.LogEvent) error
}
