package engine

import (
	"context"
	"testing"

	"github.com/basinlabs/pgbridge/internal/jobstore"
	"github.com/basinlabs/pgbridge/internal/model"
)

func TestRunFailsJobWhenConnectionMissing(t *testing.T) {
	store := jobstore.NewMemory()
	store.PutJob(model.JobRecord{JobID: "j1", Status: model.JobRunning})

	c := New(store, nil)
	record, err := c.Run(context.Background(), model.JobSpec{
		JobID:        "j1",
		SourceConnID: "missing-source",
		TargetConnID: "missing-target",
		GlobalRule:   model.RuleOverwrite,
		Tasks:        []model.TableTask{{TableName: "t", Rule: model.RuleOverwrite}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (job-level failure is not a Go error)", err)
	}
	if record.Status != model.JobFailed {
		t.Errorf("Status = %v, want failed", record.Status)
	}
	if record.ErrorMessage != "Source or target connection not found" {
		t.Errorf("ErrorMessage = %q, want the connection-not-found message", record.ErrorMessage)
	}

	stored, ok := store.Job("j1")
	if !ok {
		t.Fatalf("job not found in store after Run")
	}
	if stored.Status != model.JobFailed {
		t.Errorf("stored job status = %v, want failed", stored.Status)
	}
}

func TestRunFailsJobWhenTargetConnectionMissing(t *testing.T) {
	store := jobstore.NewMemory()
	store.PutConnection(model.ConnectionSpec{ID: "source"})
	store.PutJob(model.JobRecord{JobID: "j1", Status: model.JobRunning})

	c := New(store, nil)
	record, err := c.Run(context.Background(), model.JobSpec{
		JobID:        "j1",
		SourceConnID: "source",
		TargetConnID: "missing-target",
		Tasks:        []model.TableTask{{TableName: "t", Rule: model.RuleOverwrite}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if record.Status != model.JobFailed {
		t.Errorf("Status = %v, want failed", record.Status)
	}
}
