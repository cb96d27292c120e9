// Package stream fan-outs complaint workflow events to live subscribers
// (SSE clients).
package stream

import (
	"context"
	"sync"
	"time"

	"shagym.org/internal/workflow"
)

// ComplaintEvent describes one accepted status change.
type ComplaintEvent struct {
	ComplaintID string          `json:"complaint_id"`
	Status      workflow.Status `json:"status"`
	Actor       string          `json:"actor"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Stream is an in-process event bus. Subscribers that fall behind lose
// events rather than block the publisher.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan ComplaintEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan ComplaintEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan ComplaintEvent {
	ch := make(chan ComplaintEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt ComplaintEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
