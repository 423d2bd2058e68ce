package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Journal collects the events of one run
type Journal struct {
	mu     sync.Mutex
	runID  string
	events []Event
	now    func() time.Time
	sinks  []func(Event)
}

// NewJournal starts a journal with a fresh run ID
func NewJournal() *Journal {
	return &Journal{
		runID: uuid.New().String(),
		now:   time.Now,
	}
}

// RunID returns the identifier shared by every event in this journal
func (j *Journal) RunID() string { return j.runID }

// Subscribe registers fn to be called for every recorded event, in order
func (j *Journal) Subscribe(fn func(Event)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sinks = append(j.sinks, fn)
}

// Record stamps e with an ID, the run ID and a timestamp, stores it, and
// hands it to subscribers
func (j *Journal) Record(e Event) Event {
	j.mu.Lock()
	e.ID = uuid.New().String()
	e.RunID = j.runID
	if e.Timestamp.IsZero() {
		e.Timestamp = j.now()
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	j.events = append(j.events, e)
	sinks := append([]func(Event){}, j.sinks...)
	j.mu.Unlock()

	for _, fn := range sinks {
		fn(e)
	}
	return e
}

// Count returns how many events of type t were recorded
func (j *Journal) Count(t EventType) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, e := range j.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Failures returns every failure event
func (j *Journal) Failures() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Event
	for _, e := range j.events {
		if e.IsFailure() {
			out = append(out, e)
		}
	}
	return out
}
