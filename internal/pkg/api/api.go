package api

import (
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/status"
)

// SubmitResult - generate method response in JSON
type SubmitResult struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	EstimatedTime int    `json:"estimatedTimeSeconds"`
}

// JobView - status method response in JSON
type JobView struct {
	ID                string                 `json:"id"`
	Status            string                 `json:"status"`
	Progress          int32                  `json:"progress"`
	CurrentStep       string                 `json:"currentStep,omitempty"`
	ErrorCode         string                 `json:"errorCode,omitempty"`
	Error             string                 `json:"error,omitempty"`
	AudioFileName     string                 `json:"audioFileName,omitempty"`
	AudioSizeMB       float64                `json:"audioSizeMB,omitempty"`
	Config            jobs.Config            `json:"config"`
	ProcessingTime    float64                `json:"processingTimeSeconds,omitempty"`
	TranscriptPreview string                 `json:"transcriptPreview,omitempty"`
	Structure         *jobs.Structure        `json:"structure,omitempty"`
	Images            []jobs.ImageDescriptor `json:"images,omitempty"`
	TotalSlides       int                    `json:"totalSlides,omitempty"`
	ImagesFetched     int                    `json:"imagesFetched,omitempty"`
	DeckURL           string                 `json:"deckUrl,omitempty"`
	EditCount         int                    `json:"editCount,omitempty"`
}

// FeedbackRequest - edit-structure method request in JSON
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

// FeedbackResult - edit-structure method response in JSON
type FeedbackResult struct {
	Structure  *jobs.Structure `json:"structure"`
	EditNumber int             `json:"editNumber"`
}

// ThemesResult - themes method response in JSON
type ThemesResult struct {
	Themes []jobs.Theme `json:"themes"`
}

const transcriptPreviewLen = 500

// NewJobView maps a job snapshot to the API payload
func NewJobView(job *jobs.Job) *JobView {
	res := &JobView{ID: job.ID, Status: status.Name(job.Status), Progress: job.Progress,
		CurrentStep: job.CurrentStep, ErrorCode: job.ErrorCode, Error: job.Error,
		AudioFileName: job.AudioFileName, AudioSizeMB: job.AudioSizeMB, Config: job.Config,
		Structure: job.Structure, Images: job.Images, EditCount: len(job.EditLog)}
	if job.CompletedAt != nil {
		res.ProcessingTime = job.CompletedAt.Sub(job.CreatedAt).Seconds()
	}
	if job.Transcript != nil {
		res.TranscriptPreview = preview(job.Transcript.Text)
	}
	if job.Structure != nil {
		res.TotalSlides = len(job.Structure.Slides)
	}
	for _, img := range job.Images {
		if !img.Missing {
			res.ImagesFetched++
		}
	}
	if job.Status == status.Completed && job.DeckFile != "" {
		res.DeckURL = "/jobs/" + job.ID + "/result"
	}
	return res
}

func preview(text string) string {
	if len(text) > transcriptPreviewLen {
		return text[:transcriptPreviewLen] + "..."
	}
	return text
}
