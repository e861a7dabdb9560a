// Package notify fans out write notifications. Events flow through an
// in-process bus; a webhook forwarder subscribes at startup when a webhook
// URL is configured. Publishing never blocks a write path: slow consumers
// drop events.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one bus message. Payload is the typed notification body.
type Event struct {
	Topic   string
	Payload any
}

type subscriber struct {
	id     string
	topic  string
	ch     chan Event
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

func (s *subscriber) send(ev Event, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if timeout <= 0 {
		select {
		case s.ch <- ev:
			return true
		default:
			return false
		}
	}
	select {
	case s.ch <- ev:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
		close(s.ch)
	}
}

// Bus is a topic-keyed fan-out. Subscription patterns support "*" per
// dot-separated segment, or a bare "*" for everything.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]map[string]*subscriber // pattern -> id -> subscriber
	counter uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[string]*subscriber)}
}

// Subscribe registers for a topic pattern. The returned function
// unsubscribes and closes the channel.
func (b *Bus) Subscribe(pattern string, bufferSize int) (<-chan Event, func()) {
	id := fmt.Sprintf("sub-%d", atomic.AddUint64(&b.counter, 1))
	sub := &subscriber{
		id:    id,
		topic: pattern,
		ch:    make(chan Event, bufferSize),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	if _, ok := b.subs[pattern]; !ok {
		b.subs[pattern] = make(map[string]*subscriber)
	}
	b.subs[pattern][id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.subs[pattern]; ok {
			if s, ok := m[id]; ok {
				s.close()
				delete(m, id)
				if len(m) == 0 {
					delete(b.subs, pattern)
				}
			}
		}
	}
	return sub.ch, unsubscribe
}

// Publish delivers to every matching subscriber, waiting at most timeout
// per subscriber. Events to full channels are dropped.
func (b *Bus) Publish(topic string, payload any, timeout time.Duration) {
	ev := Event{Topic: topic, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for pattern, m := range b.subs {
		if !matchTopic(pattern, topic) {
			continue
		}
		for _, sub := range m {
			select {
			case <-sub.done:
			default:
				sub.send(ev, timeout)
			}
		}
	}
}

// Shutdown closes all subscribers.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.subs {
		for _, sub := range m {
			sub.close()
		}
	}
	b.subs = make(map[string]map[string]*subscriber)
}

func matchTopic(pattern, topic string) bool {
	if pattern == "" || topic == "" {
		return false
	}
	if pattern == "*" || pattern == topic {
		return true
	}
	pp := strings.Split(pattern, ".")
	tp := strings.Split(topic, ".")
	if len(pp) != len(tp) {
		return false
	}
	for i := range pp {
		if pp[i] != "*" && pp[i] != tp[i] {
			return false
		}
	}
	return true
}
