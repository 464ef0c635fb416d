package realtime

import (
	"context"
	"sync"

	"github.com/go-pkgz/lgr"
)

// Subscription is one consumer's view of the change feed. The events channel
// is closed when the subscription is lost (slow consumer, hub shutdown,
// transport failure); consumers must treat a closed channel as "missed
// events" and resynchronize with a full load.
type Subscription interface {
	Events() <-chan Event
	Close()
}

// Subscriber hands out subscriptions to the change feed.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

const subscriptionBuffer = 256

// Hub is the in-process change feed: publishers (the storage layer) push
// events, subscribers (reconcilers, websocket sessions) consume them.
// Publish never blocks; a subscriber that cannot keep up is dropped.
type Hub struct {
	log lgr.L

	mu     sync.Mutex
	subs   map[*hubSubscription]struct{}
	closed bool
}

func NewHub(log lgr.L) *Hub {
	if log == nil {
		log = lgr.NoOp
	}
	return &Hub{
		log:  log,
		subs: make(map[*hubSubscription]struct{}),
	}
}

func (h *Hub) Subscribe(ctx context.Context) (Subscription, error) {
	sub := &hubSubscription{hub: h, ch: make(chan Event, subscriptionBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub, nil
	}
	h.subs[sub] = struct{}{}
	return sub, nil
}

func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			// Lagging subscriber: drop it so it resyncs instead of
			// silently missing events.
			delete(h.subs, sub)
			close(sub.ch)
			h.log.Logf("WARN dropped slow subscriber, table=%s", ev.Table)
		}
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

type hubSubscription struct {
	hub  *Hub
	ch   chan Event
	once sync.Once
}

func (s *hubSubscription) Events() <-chan Event { return s.ch }

func (s *hubSubscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if _, ok := s.hub.subs[s]; ok {
			delete(s.hub.subs, s)
			close(s.ch)
		}
	})
}
