package stage

import (
	"context"

	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
)

// Kind identifies one pipeline stage. Stages are dispatched through a
// fixed typed table, never by name
type Kind int

const (
	// Transcription - speech to text
	Transcription Kind = iota + 1
	// Structure - transcript to deck outline
	Structure
	// ImageResolution - slide image queries to image urls
	ImageResolution
	// Render - slides to rasterized page images
	Render
	// Assembly - page images to the final deck file
	Assembly
)

var kindName = map[Kind]string{Transcription: "transcription", Structure: "structure",
	ImageResolution: "imageResolution", Render: "render", Assembly: "assembly"}

// Name returns string value of the kind
func (k Kind) Name() string {
	return kindName[k]
}

// Output is the typed result a stage hands back to the orchestrator.
// Only the field matching the stage kind is set
type Output struct {
	Transcript *jobs.Transcript
	Structure  *jobs.Structure
	Images     []jobs.ImageDescriptor
	Rendered   []string
	DeckFile   string
}

// Stage is one discrete, independently retryable unit of pipeline work.
// Implementations never mutate the job, they return an Output and the
// orchestrator performs the state transition
type Stage interface {
	Execute(ctx context.Context, job *jobs.Job) (*Output, error)
}
