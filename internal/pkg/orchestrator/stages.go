package orchestrator

import (
	"context"

	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/stage"
)

// Transcriber turns the audio file into a transcript
type Transcriber interface {
	Transcribe(ctx context.Context, file string) (*jobs.Transcript, error)
}

// Analyzer plans the deck outline from a transcript
type Analyzer interface {
	Analyze(ctx context.Context, transcript string, useImages bool) (*jobs.Structure, error)
}

// ImageResolver finds one image per query, index aligned
type ImageResolver interface {
	Resolve(ctx context.Context, queries []string) ([]jobs.ImageDescriptor, error)
}

// SlideRenderer produces ordered page images for the structure
type SlideRenderer interface {
	Render(ctx context.Context, job *jobs.Job) ([]string, error)
}

// DeckWriter assembles page images into the final deck file
type DeckWriter interface {
	Write(job *jobs.Job) (string, error)
}

// StructureEditor applies natural language feedback to a structure
type StructureEditor interface {
	Apply(ctx context.Context, st *jobs.Structure, feedback string) (*jobs.Structure, error)
}

type transcriptionStage struct {
	p Transcriber
}

func (s transcriptionStage) Execute(ctx context.Context, job *jobs.Job) (*stage.Output, error) {
	tr, err := s.p.Transcribe(ctx, job.AudioFile)
	if err != nil {
		return nil, err
	}
	return &stage.Output{Transcript: tr}, nil
}

type structureStage struct {
	p Analyzer
}

func (s structureStage) Execute(ctx context.Context, job *jobs.Job) (*stage.Output, error) {
	st, err := s.p.Analyze(ctx, job.Transcript.Text, job.Config.IncludeImages)
	if err != nil {
		return nil, err
	}
	return &stage.Output{Structure: st}, nil
}

type imageStage struct {
	p ImageResolver
}

func (s imageStage) Execute(ctx context.Context, job *jobs.Job) (*stage.Output, error) {
	queries := make([]string, len(job.Structure.Slides))
	for i, sl := range job.Structure.Slides {
		queries[i] = sl.ImageTheme
	}
	imgs, err := s.p.Resolve(ctx, queries)
	if err != nil {
		return nil, err
	}
	return &stage.Output{Images: imgs}, nil
}

type renderStage struct {
	p SlideRenderer
}

func (s renderStage) Execute(ctx context.Context, job *jobs.Job) (*stage.Output, error) {
	files, err := s.p.Render(ctx, job)
	if err != nil {
		return nil, err
	}
	return &stage.Output{Rendered: files}, nil
}

type assemblyStage struct {
	p DeckWriter
}

func (s assemblyStage) Execute(ctx context.Context, job *jobs.Job) (*stage.Output, error) {
	file, err := s.p.Write(job)
	if err != nil {
		return nil, err
	}
	return &stage.Output{DeckFile: file}, nil
}
