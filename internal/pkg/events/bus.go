package events

import (
	"sync"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
)

const subscriberBuffer = 32

// Bus is an in process per job event fan-out. Slow subscribers lose
// events instead of blocking the pipeline, the status query remains
// authoritative
type Bus struct {
	lock sync.Mutex
	subs map[string]map[chan Event]bool
}

// NewBus creates Bus instance
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[chan Event]bool)}
}

// Subscribe registers for one job's events. The returned function
// unsubscribes and closes the channel
func (b *Bus) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.lock.Lock()
	defer b.lock.Unlock()
	chans, found := b.subs[jobID]
	if !found {
		chans = make(map[chan Event]bool)
		b.subs[jobID] = chans
	}
	chans[ch] = true
	return ch, func() { b.unsubscribe(jobID, ch) }
}

func (b *Bus) unsubscribe(jobID string, ch chan Event) {
	b.lock.Lock()
	defer b.lock.Unlock()
	chans, found := b.subs[jobID]
	if !found {
		return
	}
	if _, found := chans[ch]; !found {
		return
	}
	delete(chans, ch)
	if len(chans) == 0 {
		delete(b.subs, jobID)
	}
	close(ch)
}

// Notify implements Sink
func (b *Bus) Notify(ev Event) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for ch := range b.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
			cmdapp.Log.Warnf("Dropping event for slow subscriber %s", ev.JobID)
		}
	}
}
