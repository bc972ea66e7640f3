package eventbus

import "sync"

// Topics published on the bus.
const (
	TopicHistoryUpdated = "history.updated"
	TopicNotification   = "notification"
)

// Event is a typed message broadcast to live subscribers.
type Event struct {
	Topic   string `json:"topic"`
	UserID  string `json:"userId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Bus is an in-process fan-out broker. Slow subscribers lose events
// instead of blocking publishers.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]struct{}
	alive bool
}

func New() *Bus {
	return &Bus{subs: make(map[chan Event]struct{}), alive: true}
}

// Publish delivers evt to every subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return
	}
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// drop if the client is too slow
		}
	}
}

// Subscribe registers a new listener and returns its channel with a
// cancel func. Cancel is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	if !b.alive {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return
	}
	b.alive = false
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
