package jobs

import (
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/status"
	"github.com/pkg/errors"
)

// Config keeps user provided generation settings
type Config struct {
	Theme           string `json:"theme" bson:"theme"`
	IncludeImages   bool   `json:"includeImages" bson:"includeImages"`
	InteractiveMode bool   `json:"interactiveMode" bson:"interactiveMode"`
	SaveTranscript  bool   `json:"saveTranscript" bson:"saveTranscript"`
}

// Word is one recognized word with timestamps in seconds
type Word struct {
	Word  string  `json:"word" bson:"word"`
	Start float64 `json:"start" bson:"start"`
	End   float64 `json:"end" bson:"end"`
}

// Transcript is the speech to text stage output
type Transcript struct {
	Text  string `json:"text" bson:"text"`
	Words []Word `json:"words,omitempty" bson:"words,omitempty"`
}

// Slide is one planned deck page
type Slide struct {
	Title      string   `json:"title" bson:"title"`
	Bullets    []string `json:"bullets" bson:"bullets"`
	ImageTheme string   `json:"imageTheme,omitempty" bson:"imageTheme,omitempty"`
}

// Structure is the planned deck outline. Slide order is the final page order
type Structure struct {
	Title  string  `json:"title" bson:"title"`
	Slides []Slide `json:"slides" bson:"slides"`
}

// ImageDescriptor points to one resolved slide image. Missing marks
// the no-image sentinel for a slide without a usable result
type ImageDescriptor struct {
	URL         string `json:"url,omitempty" bson:"url,omitempty"`
	Width       int    `json:"width,omitempty" bson:"width,omitempty"`
	Height      int    `json:"height,omitempty" bson:"height,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Attribution string `json:"attribution,omitempty" bson:"attribution,omitempty"`
	Missing     bool   `json:"missing,omitempty" bson:"missing,omitempty"`
}

// EditEvent is one accepted feedback driven structure change
type EditEvent struct {
	Seq      int       `json:"seq" bson:"seq"`
	Feedback string    `json:"feedback" bson:"feedback"`
	Before   Structure `json:"before" bson:"before"`
	After    Structure `json:"after" bson:"after"`
	At       time.Time `json:"at" bson:"at"`
}

// Job is one audio to deck request tracked through the state machine
type Job struct {
	ID          string        `json:"id" bson:"ID"`
	Status      status.Status `json:"-" bson:"status"`
	Progress    int32         `json:"progress" bson:"progress"`
	CurrentStep string        `json:"currentStep,omitempty" bson:"currentStep,omitempty"`
	ErrorCode   string        `json:"errorCode,omitempty" bson:"errorCode,omitempty"`
	Error       string        `json:"error,omitempty" bson:"error,omitempty"`

	AudioFile     string  `json:"audioFile,omitempty" bson:"audioFile,omitempty"`
	AudioFileName string  `json:"audioFileName,omitempty" bson:"audioFileName,omitempty"`
	AudioSizeMB   float64 `json:"audioSizeMB,omitempty" bson:"audioSizeMB,omitempty"`
	Config        Config  `json:"config" bson:"config"`

	Transcript *Transcript       `json:"transcript,omitempty" bson:"transcript,omitempty"`
	Structure  *Structure        `json:"structure,omitempty" bson:"structure,omitempty"`
	Images     []ImageDescriptor `json:"images,omitempty" bson:"images,omitempty"`
	Rendered   []string          `json:"rendered,omitempty" bson:"rendered,omitempty"`
	DeckFile   string            `json:"deckFile,omitempty" bson:"deckFile,omitempty"`

	EditLog []EditEvent `json:"editLog,omitempty" bson:"editLog,omitempty"`

	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// Validate checks structural invariants: a deck has at least one
// slide and every slide has a title
func (st *Structure) Validate() error {
	if st == nil {
		return errors.New("no structure")
	}
	if st.Title == "" {
		return errors.New("no deck title")
	}
	if len(st.Slides) == 0 {
		return errors.New("empty slide list")
	}
	for i, sl := range st.Slides {
		if sl.Title == "" {
			return errors.Errorf("slide %d has no title", i+1)
		}
	}
	return nil
}

// Clone makes a deep copy of the structure
func (st *Structure) Clone() *Structure {
	if st == nil {
		return nil
	}
	res := &Structure{Title: st.Title}
	res.Slides = make([]Slide, len(st.Slides))
	for i, sl := range st.Slides {
		res.Slides[i] = Slide{Title: sl.Title, ImageTheme: sl.ImageTheme}
		res.Slides[i].Bullets = append([]string{}, sl.Bullets...)
	}
	return res
}

// Clone makes a deep copy of the job
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	res := *j
	if j.Transcript != nil {
		tr := *j.Transcript
		tr.Words = append([]Word{}, j.Transcript.Words...)
		res.Transcript = &tr
	}
	res.Structure = j.Structure.Clone()
	if j.Images != nil {
		res.Images = append([]ImageDescriptor{}, j.Images...)
	}
	if j.Rendered != nil {
		res.Rendered = append([]string{}, j.Rendered...)
	}
	if j.EditLog != nil {
		res.EditLog = append([]EditEvent{}, j.EditLog...)
	}
	if j.CompletedAt != nil {
		ct := *j.CompletedAt
		res.CompletedAt = &ct
	}
	return &res
}
