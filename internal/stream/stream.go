// Package stream fan-outs roster updates to live subscribers (SSE clients).
package stream

import (
	"context"
	"sync"
	"time"

	"campushub.org/internal/event"
)

// RosterEvent describes one change to an event's registration roster.
type RosterEvent struct {
	EventID         string             `json:"event_id"`
	Registration    event.Registration `json:"registration"`
	RegisteredCount int                `json:"registered_count"`
	Timestamp       time.Time          `json:"timestamp"`
}

type subscriber struct {
	eventID string
	ch      chan RosterEvent
}

// Stream delivers roster events to subscribers keyed by event id. Each
// subscription is scoped to a context: the channel closes when the context
// ends, and a consumer that wants updates again must subscribe from scratch.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber for one event's roster and returns the
// channel updates arrive on. The channel is closed when ctx ends.
func (s *Stream) Subscribe(ctx context.Context, eventID string) <-chan RosterEvent {
	sub := &subscriber{eventID: eventID, ch: make(chan RosterEvent, 16)}

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = sub
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(sub.ch)
		s.mu.Unlock()
	}()

	return sub.ch
}

// Publish fan-outs the event to subscribers of its roster.
func (s *Stream) Publish(evt RosterEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.eventID != evt.EventID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
