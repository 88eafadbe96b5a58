package store

import (
	"context"

	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/status"
)

// Store keeps persisted job state. The orchestrator is the only writer.
// All writes after Insert go through CasUpdate, so a status change and
// the fields it carries land as one atomic conditional update and a
// record never leaves a terminal status
type Store interface {
	Insert(ctx context.Context, job *jobs.Job) error
	Load(ctx context.Context, id string) (*jobs.Job, error)
	CasUpdate(ctx context.Context, job *jobs.Job, from status.Status) (bool, error)
	LoadActive(ctx context.Context) ([]*jobs.Job, error)
	Delete(ctx context.Context, id string) error
}
