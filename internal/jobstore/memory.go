package jobstore

import (
	"context"
	"sync"

	"github.com/basinlabs/pgbridge/internal/model"
)

// Memory is an in-process Store for unit tests that don't need a real
// database, mirroring the teacher's preference for fast non-integration
// tests wherever the functionality under test doesn't require one.
type Memory struct {
	mu          sync.Mutex
	connections map[string]model.ConnectionSpec
	jobs        map[string]*model.JobRecord
	logs        []model.LogEvent
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		connections: make(map[string]model.ConnectionSpec),
		jobs:        make(map[string]*model.JobRecord),
	}
}

// PutConnection seeds a connection for LoadConnection to return.
func (m *Memory) PutConnection(spec model.ConnectionSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[spec.ID] = spec
}

// PutJob seeds an initial JobRecord, as the caller is responsible for
// creating it in the "running" state before invoking the engine (spec §3
// lifecycle).
func (m *Memory) PutJob(job model.JobRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := job
	m.jobs[job.JobID] = &j
}

// Job returns the current state of a job, for test assertions.
func (m *Memory) Job(id string) (model.JobRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return model.JobRecord{}, false
	}
	return *j, true
}

// Logs returns every log event appended so far, in append order.
func (m *Memory) Logs() []model.LogEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.LogEvent, len(m.logs))
	copy(out, m.logs)
	return out
}

func (m *Memory) LoadConnection(ctx context.Context, id string) (model.ConnectionSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.connections[id]
	if !ok {
		return model.ConnectionSpec{}, ErrConnectionNotFound
	}
	return spec, nil
}

func (m *Memory) UpdateJob(ctx context.Context, id string, update JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = update.Status
	if update.Result != nil {
		job.Result = update.Result
	}
	if update.DurationMS != nil {
		job.DurationMS = *update.DurationMS
	}
	if update.ErrorMessage != nil {
		job.ErrorMessage = *update.ErrorMessage
	}
	return nil
}

func (m *Memory) AppendLog(ctx context.Context, event model.LogEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, event)
	return nil
}
