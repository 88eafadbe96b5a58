package stage

import (
	"context"
	"testing"

	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStage struct {
	calls int
	errs  []error
	out   *Output
}

func (s *fakeStage) Execute(ctx context.Context, job *jobs.Job) (*Output, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.out, nil
}

type zeroBackOffProvider struct {
	maxRetries uint64
}

func (bp *zeroBackOffProvider) Get() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, bp.maxRetries)
}

func testJob() *jobs.Job {
	return &jobs.Job{ID: "id1"}
}

func TestRun(t *testing.T) {
	s := &fakeStage{out: &Output{DeckFile: "olia"}}
	out, err := Run(context.Background(), s, Assembly, testJob(), &NoBackOffProvider{})
	require.Nil(t, err)
	assert.Equal(t, "olia", out.DeckFile)
	assert.Equal(t, 1, s.calls)
}

func TestRun_RetriesTransient(t *testing.T) {
	s := &fakeStage{out: &Output{DeckFile: "olia"},
		errs: []error{errs.New(errs.ProviderUnavailable, "down"), errs.New(errs.Timeout, "slow"), nil}}
	out, err := Run(context.Background(), s, Assembly, testJob(), &zeroBackOffProvider{maxRetries: 5})
	require.Nil(t, err)
	assert.Equal(t, "olia", out.DeckFile)
	assert.Equal(t, 3, s.calls)
}

func TestRun_StopsOnPermanent(t *testing.T) {
	s := &fakeStage{errs: []error{errs.New(errs.InvalidInput, "bad")}}
	_, err := Run(context.Background(), s, Transcription, testJob(), &zeroBackOffProvider{maxRetries: 5})
	require.NotNil(t, err)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, errs.InvalidInput, errs.KindOf(err))
}

func TestRun_Exhausts(t *testing.T) {
	s := &fakeStage{errs: []error{errs.New(errs.ProviderUnavailable, "down"),
		errs.New(errs.ProviderUnavailable, "down"), errs.New(errs.ProviderUnavailable, "down")}}
	_, err := Run(context.Background(), s, Transcription, testJob(), &zeroBackOffProvider{maxRetries: 2})
	require.NotNil(t, err)
	assert.Equal(t, 3, s.calls)
	assert.Equal(t, errs.ProviderUnavailable, errs.KindOf(err))
}

func TestRun_MarksStage(t *testing.T) {
	s := &fakeStage{errs: []error{errs.New(errs.Timeout, "slow")}}
	_, err := Run(context.Background(), s, Transcription, testJob(), &NoBackOffProvider{})
	require.NotNil(t, err)
	assert.Equal(t, "transcription", errs.StageOf(err))
}

func TestRun_KeepsEarlierStage(t *testing.T) {
	s := &fakeStage{errs: []error{errs.WithStage(errs.New(errs.Timeout, "slow"), "render")}}
	_, err := Run(context.Background(), s, Assembly, testJob(), &NoBackOffProvider{})
	require.NotNil(t, err)
	assert.Equal(t, "render", errs.StageOf(err))
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &fakeStage{out: &Output{}}
	_, err := Run(ctx, s, Transcription, testJob(), &zeroBackOffProvider{maxRetries: 5})
	require.NotNil(t, err)
	assert.Equal(t, 0, s.calls)
}

func TestExpBackOffProvider(t *testing.T) {
	bp := NewExpBackOffProvider(3)
	b := bp.Get()
	assert.NotNil(t, b)
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "transcription", Transcription.Name())
	assert.Equal(t, "structure", Structure.Name())
	assert.Equal(t, "imageResolution", ImageResolution.Name())
	assert.Equal(t, "render", Render.Name())
	assert.Equal(t, "assembly", Assembly.Name())
}
