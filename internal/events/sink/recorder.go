package sink

import (
	"context"
	"sync"

	"github.com/corvusHold/sentinel/internal/events/domain"
)

// Recorded is one event captured by a Recorder.
type Recorded struct {
	Topic   string
	Payload any
}

// Recorder keeps published events in memory. It backs tests and conformance
// checks against the dispatch pipeline.
type Recorder struct {
	name   string
	filter domain.TopicFilter

	mu     sync.Mutex
	events []Recorded
	fail   error
}

// NewRecorder builds a recorder sink.
func NewRecorder(name string, filter domain.TopicFilter) *Recorder {
	return &Recorder{name: name, filter: filter}
}

func (r *Recorder) Name() string { return r.name }
func (r *Recorder) Topics() domain.TopicFilter { return r.filter }

func (r *Recorder) Publish(ctx context.Context, topic string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return domain.PublishError{Broker: r.name, Topic: topic, Err: r.fail}
	}
	r.events = append(r.events, Recorded{Topic: topic, Payload: payload})
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Fail makes subsequent Publish calls return the given error. Pass nil to
// restore normal recording.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}
