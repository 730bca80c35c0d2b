package event

import (
	"sync"
	"time"

	"github.com/jmcortes/newswire/internal/logging"
)

// DefaultBufferSize is the per-subscriber channel capacity used when the
// bus is constructed with a non-positive size.
const DefaultBufferSize = 64

// topic holds the subscribers and retained terminal event of one session.
type topic struct {
	subs     map[uint64]chan Event
	terminal *Event
	closed   bool
	started  time.Time
}

// Bus is a per-session pub-sub bus with channel fan-out.
//
// Publishing never blocks: a subscriber whose channel is full misses the
// event. Terminal events are retained so a subscriber arriving after the
// session ended still observes its outcome.
type Bus struct {
	mu      sync.RWMutex
	bufSize int
	nextID  uint64
	topics  map[string]*topic
	logger  *logging.Logger
}

// NewBus creates an event bus.
func NewBus(bufSize int, logger *logging.Logger) *Bus {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Bus{
		bufSize: bufSize,
		topics:  make(map[string]*topic),
		logger:  logger.WithComponent("eventbus"),
	}
}

// Subscribe registers a subscriber for a session's events. The returned
// cancel function must be called when the subscriber is done; it is safe
// to call more than once. Subscribing to a session whose terminal event
// was already published delivers that event and then closes the channel.
func (b *Bus) Subscribe(sessionID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tp := b.topics[sessionID]
	if tp == nil {
		tp = &topic{subs: make(map[uint64]chan Event)}
		b.topics[sessionID] = tp
	}

	ch := make(chan Event, b.bufSize)

	if tp.closed {
		if tp.terminal != nil {
			ch <- *tp.terminal
		}
		close(ch)
		return ch, func() {}
	}

	b.nextID++
	id := b.nextID
	tp.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if cur, ok := tp.subs[id]; ok {
				delete(tp.subs, id)
				close(cur)
			}
		})
	}
	return ch, cancel
}

// Publish delivers an event to all subscribers of its session without
// blocking. A terminal event is retained and closes the topic.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tp := b.topics[ev.SessionID]
	if tp == nil {
		tp = &topic{subs: make(map[uint64]chan Event)}
		b.topics[ev.SessionID] = tp
	}
	if tp.closed {
		return
	}

	// The first published event for a session starts its clock.
	if tp.started.IsZero() {
		tp.started = ev.Time
	}
	ev.Elapsed = ev.Time.Sub(tp.started).Seconds()

	for id, ch := range tp.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"session_id", ev.SessionID,
				"type", ev.Type,
				"subscriber", id)
		}
	}

	if ev.IsTerminal() {
		retained := ev
		tp.terminal = &retained
		tp.closed = true
		for id, ch := range tp.subs {
			delete(tp.subs, id)
			close(ch)
		}
	}
}

// Drop removes a session's topic entirely, including any retained
// terminal event. Open subscriber channels are closed.
func (b *Bus) Drop(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tp := b.topics[sessionID]
	if tp == nil {
		return
	}
	for id, ch := range tp.subs {
		delete(tp.subs, id)
		close(ch)
	}
	delete(b.topics, sessionID)
}

// SubscriberCount returns the number of live subscribers for a session.
func (b *Bus) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tp := b.topics[sessionID]
	if tp == nil {
		return 0
	}
	return len(tp.subs)
}
