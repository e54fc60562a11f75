// Package event holds the campus event domain: events, registrations, and
// the capacity-safe registration operation.
package event

import (
	"errors"
	"time"
)

// Event is an occasion students can register for. RegisteredCount is a
// denormalized counter maintained exclusively by Register; it always equals
// the number of registrations under the event and never exceeds Capacity.
type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Venue           string    `json:"venue"`
	StartAt         time.Time `json:"start_at"`
	Capacity        int       `json:"capacity"`
	RegisteredCount int       `json:"registered_count"`
	OrganizerID     string    `json:"organizer_id"`
	IsPublished     bool      `json:"is_published"`
	CreatedAt       time.Time `json:"created_at"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.RegisteredCount
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// Registration records one student's seat at one event. The student id is
// the registration key, which makes a second registration by the same
// student structurally impossible.
type Registration struct {
	StudentID string    `json:"student_id"`
	EventID   string    `json:"event_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Student identifies the registering caller.
type Student struct {
	ID    string
	Name  string
	Email string
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartAt     time.Time `json:"start_at"`
	Capacity    int       `json:"capacity"`
	IsPublished bool      `json:"is_published"`
}

var (
	ErrNotFound          = errors.New("event: not found")
	ErrEventFull         = errors.New("event: no seats remaining")
	ErrAlreadyRegistered = errors.New("event: student already registered")
	ErrInvalidInput      = errors.New("event: invalid input")
)
