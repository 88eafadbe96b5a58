package store

import (
	"context"
	"sync"

	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/status"
)

// Memory keeps jobs in process memory. Used in tests and single node runs
type Memory struct {
	lock sync.RWMutex
	jobs map[string]*jobs.Job
}

// NewMemory creates Memory store instance
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*jobs.Job)}
}

// Insert adds a new job
func (m *Memory) Insert(ctx context.Context, job *jobs.Job) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, found := m.jobs[job.ID]; found {
		return errs.Errorf(errs.InvalidInput, "duplicate job id %s", job.ID)
	}
	m.jobs[job.ID] = job.Clone()
	return nil
}

// Load returns a snapshot of the job
func (m *Memory) Load(ctx context.Context, id string) (*jobs.Job, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	job, found := m.jobs[id]
	if !found {
		return nil, errs.Errorf(errs.NotFound, "unknown job id %s", id)
	}
	return job.Clone(), nil
}

// CasUpdate replaces the stored job only if the stored status matches
func (m *Memory) CasUpdate(ctx context.Context, job *jobs.Job, from status.Status) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	stored, found := m.jobs[job.ID]
	if !found {
		return false, errs.Errorf(errs.NotFound, "unknown job id %s", job.ID)
	}
	if stored.Status != from {
		return false, nil
	}
	m.jobs[job.ID] = job.Clone()
	return true, nil
}

// LoadActive returns snapshots of all non terminal jobs
func (m *Memory) LoadActive(ctx context.Context) ([]*jobs.Job, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	res := make([]*jobs.Job, 0)
	for _, job := range m.jobs {
		if !status.Terminal(job.Status) {
			res = append(res, job.Clone())
		}
	}
	return res, nil
}

// Delete removes the job record
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.jobs, id)
	return nil
}
