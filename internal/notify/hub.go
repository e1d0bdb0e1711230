package notify

import (
	"context"
	"sync"
)

// Filter selects changes for a subscription. Empty fields match anything.
type Filter struct {
	Table  string
	UserID string
}

func (f Filter) match(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if f.UserID != "" && f.UserID != c.UserID {
		return false
	}
	return true
}

// Hub fans changes out to in-process subscribers. Notify never blocks: a
// subscriber whose buffer is full misses that change.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

type Subscription struct {
	hub    *Hub
	filter Filter
	ch     chan Change
	once   sync.Once
}

// C delivers matching changes. It is closed when the subscription or the hub
// is closed.
func (s *Subscription) C() <-chan Change { return s.ch }

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		delete(s.hub.subs, s)
		close(s.ch)
	})
}

// Subscribe registers a subscriber. Subscribing to a closed hub returns a
// subscription whose channel is already closed.
func (h *Hub) Subscribe(f Filter, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	s := &Subscription{hub: h, filter: f, ch: make(chan Change, buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.closeLocked()
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

func (h *Hub) Notify(_ context.Context, c Change) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if !s.filter.match(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
	return nil
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. It is safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		s.closeLocked()
	}
}
