package events

import (
	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
)

// ForwardSink pushes job ids of changed jobs to a broker topic so
// separate status frontends can refetch and fan out
type ForwardSink struct {
	publisher Publisher
	topic     string
}

// NewForwardSink creates ForwardSink instance
func NewForwardSink(publisher Publisher, topic string) *ForwardSink {
	return &ForwardSink{publisher: publisher, topic: topic}
}

// Notify implements Sink
func (s *ForwardSink) Notify(ev Event) {
	err := s.publisher.Publish(ev.JobID, s.topic)
	if err != nil {
		cmdapp.Log.Error(err)
	}
}
