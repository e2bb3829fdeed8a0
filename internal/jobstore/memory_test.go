package jobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/basinlabs/pgbridge/internal/model"
)

func TestMemoryLoadConnectionNotFound(t *testing.T) {
	m := NewMemory()
	if _, err := m.LoadConnection(context.Background(), "missing"); !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("got %v, want ErrConnectionNotFound", err)
	}
}

func TestMemoryLoadConnectionRoundTrips(t *testing.T) {
	m := NewMemory()
	spec := model.ConnectionSpec{ID: "src", Host: "localhost", Port: 5432, Database: "db"}
	m.PutConnection(spec)

	got, err := m.LoadConnection(context.Background(), "src")
	if err != nil {
		t.Fatalf("LoadConnection() error = %v", err)
	}
	if got != spec {
		t.Fatalf("got %+v, want %+v", got, spec)
	}
}

func TestMemoryUpdateJobNotFound(t *testing.T) {
	m := NewMemory()
	err := m.UpdateJob(context.Background(), "missing", JobUpdate{Status: model.JobFailed})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("got %v, want ErrJobNotFound", err)
	}
}

func TestMemoryUpdateJobAppliesPartialFields(t *testing.T) {
	m := NewMemory()
	m.PutJob(model.JobRecord{JobID: "j1", Status: model.JobRunning})

	durationMS := int64(42)
	err := m.UpdateJob(context.Background(), "j1", JobUpdate{
		Status:     model.JobCompleted,
		DurationMS: &durationMS,
	})
	if err != nil {
		t.Fatalf("UpdateJob() error = %v", err)
	}

	job, ok := m.Job("j1")
	if !ok {
		t.Fatalf("job not found after update")
	}
	if job.Status != model.JobCompleted {
		t.Errorf("Status = %v, want completed", job.Status)
	}
	if job.DurationMS != 42 {
		t.Errorf("DurationMS = %d, want 42", job.DurationMS)
	}
}

func TestMemoryAppendLogAccumulates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.AppendLog(ctx, model.LogEvent{JobID: "j1", Message: "first"})
	_ = m.AppendLog(ctx, model.LogEvent{JobID: "j1", Message: "second"})

	logs := m.Logs()
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2", len(logs))
	}
	if logs[0].Message != "first" || logs[1].Message != "second" {
		t.Errorf("logs out of order: %+v", logs)
	}
}
