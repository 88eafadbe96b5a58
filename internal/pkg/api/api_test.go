package api

import (
	"strings"
	"testing"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/status"
	"github.com/stretchr/testify/assert"
)

func testJob() *jobs.Job {
	return &jobs.Job{ID: "id1", Status: status.Generating, Progress: 60,
		CurrentStep:   "rendering slides",
		AudioFileName: "talk.mp3", AudioSizeMB: 2.5,
		Config:        jobs.Config{Theme: "Dark Mode", IncludeImages: true},
		Transcript:    &jobs.Transcript{Text: "olia talk"},
		Structure: &jobs.Structure{Title: "Deck",
			Slides: []jobs.Slide{{Title: "One"}, {Title: "Two"}, {Title: "Three"}}},
		Images: []jobs.ImageDescriptor{{URL: "http://img/1"}, {Missing: true}, {URL: "http://img/3"}}}
}

func TestNewJobView(t *testing.T) {
	res := NewJobView(testJob())
	assert.Equal(t, "id1", res.ID)
	assert.Equal(t, "generating", res.Status)
	assert.Equal(t, int32(60), res.Progress)
	assert.Equal(t, "rendering slides", res.CurrentStep)
	assert.Equal(t, "talk.mp3", res.AudioFileName)
	assert.InDelta(t, 2.5, res.AudioSizeMB, 0.001)
	assert.Equal(t, float64(0), res.ProcessingTime)
	assert.Equal(t, "Dark Mode", res.Config.Theme)
	assert.Equal(t, "olia talk", res.TranscriptPreview)
	assert.Equal(t, 3, res.TotalSlides)
	assert.Equal(t, 2, res.ImagesFetched)
	assert.Equal(t, "", res.DeckURL)
	assert.Equal(t, 0, res.EditCount)
}

func TestNewJobView_CapsPreview(t *testing.T) {
	job := testJob()
	job.Transcript.Text = strings.Repeat("a", 600)
	res := NewJobView(job)
	assert.Equal(t, 503, len(res.TranscriptPreview))
	assert.True(t, strings.HasSuffix(res.TranscriptPreview, "..."))
}

func TestNewJobView_Completed(t *testing.T) {
	job := testJob()
	job.Status = status.Completed
	job.DeckFile = "/data/outputs/id1.pptx"
	job.CreatedAt = time.Now().Add(-2 * time.Minute)
	completed := job.CreatedAt.Add(90 * time.Second)
	job.CompletedAt = &completed
	res := NewJobView(job)
	assert.Equal(t, "/jobs/id1/result", res.DeckURL)
	assert.InDelta(t, 90, res.ProcessingTime, 0.001)

	job.DeckFile = ""
	assert.Equal(t, "", NewJobView(job).DeckURL)
}

func TestNewJobView_Empty(t *testing.T) {
	res := NewJobView(&jobs.Job{ID: "id1", Status: status.Pending})
	assert.Equal(t, "pending", res.Status)
	assert.Equal(t, "", res.TranscriptPreview)
	assert.Equal(t, 0, res.TotalSlides)
	assert.Equal(t, 0, res.ImagesFetched)
}

func TestNewJobView_EditCount(t *testing.T) {
	job := testJob()
	job.EditLog = []jobs.EditEvent{{Seq: 1}, {Seq: 2}}
	assert.Equal(t, 2, NewJobView(job).EditCount)
}

func TestNewJobView_Failed(t *testing.T) {
	job := testJob()
	job.Status = status.Failed
	job.ErrorCode = "PROVIDER_UNAVAILABLE"
	job.Error = "speech service down"
	res := NewJobView(job)
	assert.Equal(t, "failed", res.Status)
	assert.Equal(t, "PROVIDER_UNAVAILABLE", res.ErrorCode)
	assert.Equal(t, "speech service down", res.Error)
}
