package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultBufferSize is the per-subscriber queue length
const DefaultBufferSize = 64

// Publisher is what producers of events depend on
type Publisher interface {
	Publish(event *Event)
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event and a warning is logged.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	bufferSize  int
	closed      bool
}

// Subscription receives events for one topic, or every topic when the
// topic is empty
type Subscription struct {
	C     <-chan *Event
	topic string
	types map[EventType]struct{}
	ch    chan *Event
	bus   *Bus
	once  sync.Once
}

// NewBus creates a bus with the given subscriber buffer size
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		subscribers: make(map[*Subscription]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a subscriber for topic. An optional list of types
// narrows the subscription further.
func (b *Bus) Subscribe(topic string, types ...EventType) *Subscription {
	ch := make(chan *Event, b.bufferSize)
	sub := &Subscription{
		C:     ch,
		topic: topic,
		ch:    ch,
		bus:   b,
	}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subscribers[sub] = struct{}{}

	log.Debug().
		Str("topic", topic).
		Int("subscribers", len(b.subscribers)).
		Msg("bus subscription added")
	return sub
}

// Publish delivers event to every matching subscriber without blocking
func (b *Bus) Publish(event *Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for sub := range b.subscribers {
		if !sub.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			log.Warn().
				Str("topic", event.Topic).
				Str("event_type", string(event.Type)).
				Msg("subscriber buffer full, dropping event")
		}
	}
}

// Close closes every subscription. Publishing after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, sub)
	}
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close removes the subscription and closes its channel
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if _, ok := s.bus.subscribers[s]; ok {
			delete(s.bus.subscribers, s)
			close(s.ch)
		}
	})
}

func (s *Subscription) matches(event *Event) bool {
	if s.topic != "" && event.Topic != "" && s.topic != event.Topic {
		return false
	}
	if s.types != nil {
		if _, ok := s.types[event.Type]; !ok {
			return false
		}
	}
	return true
}
