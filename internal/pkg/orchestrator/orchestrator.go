package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/api"
	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/events"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/stage"
	"bitbucket.org/airenas/slidego/internal/pkg/status"
	"bitbucket.org/airenas/slidego/internal/pkg/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

const maxAudioSizeMB = 100

var allowedExt = map[string]bool{".mp3": true, ".wav": true, ".m4a": true,
	".ogg": true, ".webm": true}

// Data keeps the orchestrator dependencies
type Data struct {
	Store  store.Store
	Events events.Sink

	Transcriber Transcriber
	Analyzer    Analyzer
	Images      ImageResolver
	Renderer    SlideRenderer
	Writer      DeckWriter
	Editor      StructureEditor

	BackOff stage.BackOffProvider

	TranscriptionPool int64
	AnalysisPool      int64
	RenderPool        int64
}

// SubmitRequest is one upload handed over by the HTTP layer. ID is
// optional, the caller sets it when the stored file is already named
// after the job
type SubmitRequest struct {
	ID       string
	File     string
	FileName string
	SizeMB   float64
	Config   jobs.Config
}

// Orchestrator drives jobs through the pipeline state machine. It is
// the single writer of job state, stages only compute
type Orchestrator struct {
	data   *Data
	stages map[stage.Kind]stage.Stage
	pools  map[stage.Kind]*semaphore.Weighted

	lock    sync.Mutex
	running map[string]context.CancelFunc
	editing map[string]*sync.Mutex
}

// New creates an orchestrator instance
func New(data *Data) (*Orchestrator, error) {
	if data == nil {
		return nil, errors.New("No data provided")
	}
	for _, d := range []struct {
		v    interface{}
		name string
	}{{data.Store, "store"}, {data.Events, "events sink"}, {data.Transcriber, "transcriber"},
		{data.Analyzer, "analyzer"}, {data.Images, "image resolver"}, {data.Renderer, "renderer"},
		{data.Writer, "deck writer"}, {data.Editor, "editor"}, {data.BackOff, "backoff provider"}} {
		if d.v == nil {
			return nil, errors.Errorf("No %s provided", d.name)
		}
	}
	res := &Orchestrator{data: data,
		running: make(map[string]context.CancelFunc),
		editing: make(map[string]*sync.Mutex)}
	res.stages = map[stage.Kind]stage.Stage{
		stage.Transcription:   transcriptionStage{p: data.Transcriber},
		stage.Structure:       structureStage{p: data.Analyzer},
		stage.ImageResolution: imageStage{p: data.Images},
		stage.Render:          renderStage{p: data.Renderer},
		stage.Assembly:        assemblyStage{p: data.Writer},
	}
	res.pools = map[stage.Kind]*semaphore.Weighted{
		stage.Transcription: semaphore.NewWeighted(poolSize(data.TranscriptionPool, 2)),
		stage.Structure:     semaphore.NewWeighted(poolSize(data.AnalysisPool, 4)),
		stage.Render:        semaphore.NewWeighted(poolSize(data.RenderPool, 1)),
	}
	return res, nil
}

func poolSize(v, def int64) int64 {
	if v < 1 {
		return def
	}
	return v
}

// Submit registers the upload and starts the pipeline. Validation
// failures still leave a failed job record behind for audit
func (o *Orchestrator) Submit(ctx context.Context, req *SubmitRequest) (*api.SubmitResult, error) {
	now := time.Now()
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	job := &jobs.Job{ID: id, Status: status.Pending,
		AudioFile: req.File, AudioFileName: req.FileName, AudioSizeMB: req.SizeMB,
		Config: req.Config, CreatedAt: now, UpdatedAt: now}
	if job.Config.Theme == "" {
		job.Config.Theme = jobs.DefaultTheme
	}
	if err := o.data.Store.Insert(ctx, job); err != nil {
		return nil, errors.Wrap(err, "can't save job")
	}
	cmdapp.Log.Infof("Submitted job %s (%s, %.1f MB)", job.ID, job.AudioFileName, job.AudioSizeMB)
	if err := validate(req, &job.Config); err != nil {
		o.fail(ctx, job, err)
		return nil, err
	}
	o.notify(job, events.TypeProgress)
	o.startRun(job)
	return &api.SubmitResult{ID: job.ID, Status: status.Name(status.Pending),
		EstimatedTime: estimatedTime(&job.Config)}, nil
}

func validate(req *SubmitRequest, cfg *jobs.Config) error {
	if !jobs.KnownTheme(cfg.Theme) {
		return errs.Errorf(errs.InvalidInput, "unknown theme '%s'", cfg.Theme)
	}
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !allowedExt[ext] {
		return errs.Errorf(errs.InvalidInput, "unsupported audio format '%s'", ext)
	}
	if req.SizeMB > maxAudioSizeMB {
		return errs.Errorf(errs.InvalidInput, "file too large: %.1f MB, max %d MB", req.SizeMB, maxAudioSizeMB)
	}
	return nil
}

func estimatedTime(cfg *jobs.Config) int {
	if cfg.InteractiveMode {
		return 600
	}
	return 300
}

// Get returns a job snapshot
func (o *Orchestrator) Get(ctx context.Context, id string) (*jobs.Job, error) {
	return o.data.Store.Load(ctx, id)
}

// Cancel stops the job. A no-op on terminal jobs, never an error to
// cancel twice
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	job, err := o.data.Store.Load(ctx, id)
	if err != nil {
		return err
	}
	for !status.Terminal(job.Status) {
		from := job.Status
		job.Status = status.Cancelled
		job.UpdatedAt = time.Now()
		ok, err := o.data.Store.CasUpdate(ctx, job, from)
		if err != nil {
			return err
		}
		if ok {
			o.stopRun(id)
			cmdapp.Log.Infof("Cancelled job %s", id)
			o.notify(job, events.TypeProgress)
			return nil
		}
		if job, err = o.data.Store.Load(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SubmitFeedback applies one natural language edit to the parked
// structure. Edits are serialized per job and all or nothing
func (o *Orchestrator) SubmitFeedback(ctx context.Context, id string, feedback string) (*jobs.Job, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, errs.New(errs.InvalidInput, "empty feedback")
	}
	lock := o.editLock(id)
	lock.Lock()
	defer lock.Unlock()

	job, err := o.data.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != status.Editing {
		return nil, errs.Errorf(errs.InvalidState, "can't edit structure in state '%s'", status.Name(job.Status))
	}
	newSt, err := o.data.Editor.Apply(ctx, job.Structure, feedback)
	if err != nil {
		return nil, err
	}
	job.EditLog = append(job.EditLog, jobs.EditEvent{Seq: len(job.EditLog) + 1,
		Feedback: feedback, Before: *job.Structure.Clone(), After: *newSt.Clone(), At: time.Now()})
	job.Structure = newSt
	job.Images = nil
	job.UpdatedAt = time.Now()
	ok, err := o.data.Store.CasUpdate(ctx, job, status.Editing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.InvalidState, "job left editing state")
	}
	cmdapp.Log.Infof("Applied edit %d to job %s", len(job.EditLog), id)
	o.notify(job, events.TypeStructureReady)
	return job, nil
}

// Confirm moves a parked interactive job into generation
func (o *Orchestrator) Confirm(ctx context.Context, id string) error {
	job, err := o.data.Store.Load(ctx, id)
	if err != nil {
		return err
	}
	prev := job.Status
	job.Status = status.Generating
	job.Progress = maxProgress(job.Progress, status.Progress(status.Generating))
	job.CurrentStep = "generating slides"
	job.UpdatedAt = time.Now()
	ok, err := o.data.Store.CasUpdate(ctx, job, status.Editing)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Errorf(errs.InvalidState, "can't confirm generation in state '%s'", status.Name(prev))
	}
	o.notify(job, events.TypeProgress)
	o.startRun(job)
	return nil
}

// Resume restarts interrupted jobs after a service restart. Jobs
// parked in editing stay parked waiting for the user
func (o *Orchestrator) Resume(ctx context.Context) error {
	active, err := o.data.Store.LoadActive(ctx)
	if err != nil {
		return errors.Wrap(err, "can't load active jobs")
	}
	for _, job := range active {
		if job.Status == status.Editing {
			cmdapp.Log.Infof("Job %s stays parked in editing", job.ID)
			continue
		}
		cmdapp.Log.Infof("Resuming job %s from %s", job.ID, status.Name(job.Status))
		o.startRun(job)
	}
	return nil
}

func (o *Orchestrator) editLock(id string) *sync.Mutex {
	o.lock.Lock()
	defer o.lock.Unlock()
	res, found := o.editing[id]
	if !found {
		res = &sync.Mutex{}
		o.editing[id] = res
	}
	return res
}

func (o *Orchestrator) startRun(job *jobs.Job) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if _, found := o.running[job.ID]; found {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.running[job.ID] = cancel
	go o.run(ctx, job.Clone())
}

func (o *Orchestrator) stopRun(id string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if cancel, found := o.running[id]; found {
		cancel()
		delete(o.running, id)
	}
}

// run drives the job from its current status. Persisted outputs make
// a resumed run skip completed stages
func (o *Orchestrator) run(ctx context.Context, job *jobs.Job) {
	defer o.stopRun(job.ID)
	if job.Status == status.Pending {
		if !o.transition(ctx, job, status.Pending, status.Transcribing, "transcribing audio") {
			return
		}
	}
	if job.Status == status.Transcribing {
		out, err := o.exec(ctx, stage.Transcription, job)
		if err != nil {
			o.fail(ctx, job, err)
			return
		}
		job.Transcript = out.Transcript
		if !o.transition(ctx, job, status.Transcribing, status.Analyzing, "analyzing transcript") {
			return
		}
	}
	if job.Status == status.Analyzing {
		if job.Structure == nil {
			out, err := o.exec(ctx, stage.Structure, job)
			if err != nil {
				o.fail(ctx, job, err)
				return
			}
			job.Structure = out.Structure
		}
		if job.Config.InteractiveMode {
			if !o.transition(ctx, job, status.Analyzing, status.Editing, "waiting for review") {
				return
			}
			o.notify(job, events.TypeStructureReady)
			cmdapp.Log.Infof("Job %s parked for review", job.ID)
			return
		}
		if !o.transition(ctx, job, status.Analyzing, status.Generating, "generating slides") {
			return
		}
	}
	if job.Status == status.Generating {
		o.generate(ctx, job)
	}
}

func (o *Orchestrator) generate(ctx context.Context, job *jobs.Job) {
	if job.Config.IncludeImages && job.Images == nil {
		if !o.step(ctx, job, 45, "finding images") {
			return
		}
		out, err := o.exec(ctx, stage.ImageResolution, job)
		if err != nil {
			o.fail(ctx, job, err)
			return
		}
		job.Images = out.Images
	}
	if !o.step(ctx, job, 60, "rendering slides") {
		return
	}
	out, err := o.exec(ctx, stage.Render, job)
	if err != nil {
		o.fail(ctx, job, err)
		return
	}
	job.Rendered = out.Rendered
	if !o.step(ctx, job, 95, "assembling deck") {
		return
	}
	out, err = o.exec(ctx, stage.Assembly, job)
	if err != nil {
		o.fail(ctx, job, err)
		return
	}
	job.DeckFile = out.DeckFile
	o.complete(ctx, job)
}

func (o *Orchestrator) complete(ctx context.Context, job *jobs.Job) {
	now := time.Now()
	job.Status = status.Completed
	job.Progress = 100
	job.CurrentStep = ""
	job.CompletedAt = &now
	job.UpdatedAt = now
	ok, err := o.data.Store.CasUpdate(ctx, job, status.Generating)
	if err != nil {
		o.fail(ctx, job, err)
		return
	}
	if !ok {
		cmdapp.Log.Infof("Job %s left generating, result dropped", job.ID)
		return
	}
	cmdapp.Log.Infof("Job %s completed in %.0f s", job.ID, now.Sub(job.CreatedAt).Seconds())
	o.notify(job, events.TypeCompleted)
}

// transition performs one atomic status change. Returns false when
// the job moved elsewhere, the cancel path for instance
func (o *Orchestrator) transition(ctx context.Context, job *jobs.Job, from, to status.Status, step string) bool {
	job.Status = to
	job.Progress = maxProgress(job.Progress, status.Progress(to))
	job.CurrentStep = step
	job.UpdatedAt = time.Now()
	ok, err := o.data.Store.CasUpdate(ctx, job, from)
	if err != nil {
		o.fail(ctx, job, err)
		return false
	}
	if !ok {
		cmdapp.Log.Infof("Job %s left %s, run stopped", job.ID, status.Name(from))
		return false
	}
	o.notify(job, events.TypeProgress)
	return true
}

// step bumps progress inside the generating phase
func (o *Orchestrator) step(ctx context.Context, job *jobs.Job, progress int32, step string) bool {
	if ctx.Err() != nil {
		return false
	}
	job.Progress = maxProgress(job.Progress, progress)
	job.CurrentStep = step
	job.UpdatedAt = time.Now()
	ok, err := o.data.Store.CasUpdate(ctx, job, status.Generating)
	if err != nil {
		o.fail(ctx, job, err)
		return false
	}
	if !ok {
		return false
	}
	o.notify(job, events.TypeProgress)
	return true
}

func (o *Orchestrator) fail(ctx context.Context, job *jobs.Job, failErr error) {
	cmdapp.Log.Errorf("Job %s failed: %s", job.ID, failErr)
	current, err := o.data.Store.Load(context.Background(), job.ID)
	if err != nil {
		cmdapp.Log.Error(err)
		return
	}
	for !status.Terminal(current.Status) {
		job.Status = status.Failed
		job.ErrorCode = errs.KindOf(failErr).Code()
		job.Error = failErr.Error()
		job.CurrentStep = errs.StageOf(failErr)
		job.UpdatedAt = time.Now()
		ok, err := o.data.Store.CasUpdate(context.Background(), job, current.Status)
		if err != nil {
			cmdapp.Log.Error(err)
			return
		}
		if ok {
			o.notify(job, events.TypeError)
			return
		}
		if current, err = o.data.Store.Load(context.Background(), job.ID); err != nil {
			cmdapp.Log.Error(err)
			return
		}
	}
	cmdapp.Log.Infof("Job %s already terminal (%s), failure dropped", job.ID, status.Name(current.Status))
}

func (o *Orchestrator) exec(ctx context.Context, k stage.Kind, job *jobs.Job) (*stage.Output, error) {
	if sem := o.pools[k]; sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, errs.WithStage(err, k.Name())
		}
		defer sem.Release(1)
	}
	return stage.Run(ctx, o.stages[k], k, job, o.data.BackOff)
}

func (o *Orchestrator) notify(job *jobs.Job, t events.Type) {
	ev := events.Event{Type: t, JobID: job.ID, Status: status.Name(job.Status),
		Progress: job.Progress, CurrentStep: job.CurrentStep, At: time.Now()}
	switch t {
	case events.TypeStructureReady:
		ev.Structure = job.Structure.Clone()
	case events.TypeCompleted:
		ev.DeckURL = "/jobs/" + job.ID + "/result"
	case events.TypeError:
		ev.ErrorCode = job.ErrorCode
		ev.Error = job.Error
	}
	o.data.Events.Notify(ev)
}

func maxProgress(current, next int32) int32 {
	if next > current {
		return next
	}
	return current
}
