package eventbus

import (
	"context"
	"sync"
	"time"

	"pkt.systems/balletsubmit/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventAuth carries an authentication indicator change.
	EventAuth EventType = "auth"
	// EventSubmission carries the outcome of a submission.
	EventSubmission EventType = "submission"
)

// Event is a user-facing notification.
type Event struct {
	Type          EventType
	At            time.Time
	Authenticated bool
	Submission    schema.SubmissionResult
}

// Bus fans events out to subscribers. Slow subscribers lose events rather
// than blocking publishers.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]struct{}
	log   pslog.Logger
	depth int
	now   func() time.Time
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]struct{}),
		log:   logger,
		depth: 64,
		now:   time.Now,
	}
}

// Subscribe registers a subscriber and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
			b.log.Debug("eventbus unsubscribe")
		})
	}
}

// SetAuthenticated publishes an auth event. Bus satisfies the poller's
// indicator interface.
func (b *Bus) SetAuthenticated(authenticated bool) {
	b.publish(Event{Type: EventAuth, Authenticated: authenticated})
}

// OnSubmission publishes a submission outcome.
func (b *Bus) OnSubmission(result schema.SubmissionResult) {
	if result == nil {
		return
	}
	b.publish(Event{Type: EventSubmission, Submission: result})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	event.At = b.now()
	// Sends never block, so the lock is held across them; unsubscribe closes
	// channels under the same lock.
	b.mu.Lock()
	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "type", event.Type, "count", dropped)
	}
}
