package stage

import (
	"context"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"github.com/cenkalti/backoff"
)

// BackOffProvider returns a fresh backoff policy per stage run
type BackOffProvider interface {
	Get() backoff.BackOff
}

// ExpBackOffProvider provides bounded exponential backoff
type ExpBackOffProvider struct {
	maxTries uint64
}

// NewExpBackOffProvider creates provider limited to maxTries attempts
func NewExpBackOffProvider(maxTries uint64) *ExpBackOffProvider {
	return &ExpBackOffProvider{maxTries: maxTries}
}

// Get implements BackOffProvider
func (bp *ExpBackOffProvider) Get() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         backoff.DefaultMaxInterval,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, bp.maxTries)
}

// NoBackOffProvider stops after the first failure. Used in tests
type NoBackOffProvider struct {
}

// Get implements BackOffProvider
func (bp *NoBackOffProvider) Get() backoff.BackOff {
	return &backoff.StopBackOff{}
}

// Run invokes the stage retrying transient failures. Non transient
// failures and context cancellation stop immediately. The returned
// error is marked with the stage name
func Run(ctx context.Context, s Stage, k Kind, job *jobs.Job, bp BackOffProvider) (*Output, error) {
	var res *Output
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		var err error
		res, err = s.Execute(ctx, job)
		if err == nil {
			return nil
		}
		if !errs.KindOf(err).Transient() || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		cmdapp.Log.Warnf("Stage %s failed for %s, will retry: %s", k.Name(), job.ID, err)
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(bp.Get(), ctx))
	if err != nil {
		return nil, errs.WithStage(err, k.Name())
	}
	return res, nil
}
