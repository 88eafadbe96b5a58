package events

import (
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
)

// Type classifies progress events
type Type string

const (
	// TypeProgress - status or percentage change
	TypeProgress Type = "progress"
	// TypeStructureReady - structure produced, job waits in editing
	TypeStructureReady Type = "structure_ready"
	// TypeCompleted - final deck is ready
	TypeCompleted Type = "completed"
	// TypeError - job failed
	TypeError Type = "error"
)

// Event is one progress notification. Delivery is at least once per
// subscriber, duplicates must be tolerated. The status query stays
// the system of record
type Event struct {
	Type        Type            `json:"type"`
	JobID       string          `json:"jobId"`
	Status      string          `json:"status,omitempty"`
	Progress    int32           `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Structure   *jobs.Structure `json:"structure,omitempty"`
	DeckURL     string          `json:"deckUrl,omitempty"`
	ErrorCode   string          `json:"errorCode,omitempty"`
	Error       string          `json:"error,omitempty"`
	At          time.Time       `json:"timestamp"`
}

// Sink receives progress events from the orchestrator
type Sink interface {
	Notify(ev Event)
}

// Sinks fans one event out to several sinks
type Sinks []Sink

// Notify implements Sink
func (s Sinks) Notify(ev Event) {
	for _, sink := range s {
		sink.Notify(ev)
	}
}

// Publisher publish a job id to some topic
type Publisher interface {
	Publish(id string, topic string) error
}
