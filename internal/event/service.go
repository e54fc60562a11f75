package event

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"campushub.org/internal/ids"
)

const maxCapacity = 100_000

// Service defines event operations. Register is the only operation that
// mutates more than one record; implementations must apply its reads and
// writes atomically so concurrent callers can never oversell an event or
// register the same student twice.
type Service interface {
	CreateEvent(ctx context.Context, organizerID string, req CreateEventRequest) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	ListPublished(ctx context.Context) ([]Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]Event, error)
	Register(ctx context.Context, eventID string, student Student) (Registration, error)
	ListRegistrations(ctx context.Context, eventID string) ([]Registration, error)
}

// ValidateCreate normalizes and checks a create request. Shared by all
// Service implementations.
func ValidateCreate(organizerID string, req CreateEventRequest) (CreateEventRequest, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Venue = strings.TrimSpace(req.Venue)
	if organizerID == "" {
		return req, fmt.Errorf("%w: organizer id is required", ErrInvalidInput)
	}
	if req.Title == "" {
		return req, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if req.Venue == "" {
		return req, fmt.Errorf("%w: venue is required", ErrInvalidInput)
	}
	if req.StartAt.IsZero() {
		return req, fmt.Errorf("%w: start_at is required", ErrInvalidInput)
	}
	if req.Capacity <= 0 {
		return req, fmt.Errorf("%w: capacity must be a positive integer", ErrInvalidInput)
	}
	if req.Capacity > maxCapacity {
		return req, fmt.Errorf("%w: capacity cannot exceed %d", ErrInvalidInput, maxCapacity)
	}
	return req, nil
}

func ValidateStudent(student Student) (Student, error) {
	student.ID = strings.TrimSpace(student.ID)
	student.Email = strings.TrimSpace(strings.ToLower(student.Email))
	student.Name = strings.TrimSpace(student.Name)
	if student.ID == "" {
		return student, fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}
	if student.Email == "" {
		return student, fmt.Errorf("%w: student email is required", ErrInvalidInput)
	}
	if student.Name == "" {
		student.Name = student.Email
	}
	return student, nil
}

// InMemory implements Service with in-process concurrency safety. The mutex
// serializes Register the way the durable stores' transactions do, so the
// capacity invariant holds under concurrent goroutines.
type InMemory struct {
	mu     sync.RWMutex
	events map[string]*Event
	regs   map[string]map[string]Registration // eventID -> studentID -> reg
	nowFn  func() time.Time
}

// NewInMemory creates an empty event store.
func NewInMemory() *InMemory {
	return &InMemory{
		events: make(map[string]*Event),
		regs:   make(map[string]map[string]Registration),
		nowFn:  time.Now,
	}
}

var _ Service = (*InMemory)(nil)

func (s *InMemory) CreateEvent(_ context.Context, organizerID string, req CreateEventRequest) (Event, error) {
	req, err := ValidateCreate(organizerID, req)
	if err != nil {
		return Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &Event{
		ID:          ids.New(),
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartAt:     req.StartAt.UTC(),
		Capacity:    req.Capacity,
		OrganizerID: organizerID,
		IsPublished: req.IsPublished,
		CreatedAt:   s.nowFn().UTC(),
	}
	s.events[e.ID] = e
	s.regs[e.ID] = make(map[string]Registration)
	return *e, nil
}

func (s *InMemory) GetEvent(_ context.Context, id string) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return *e, nil
}

// ListPublished returns published events in ascending start order. The map
// scan is unordered, so the result is sorted client-side on the same key the
// durable stores order by.
func (s *InMemory) ListPublished(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.IsPublished {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (s *InMemory) ListByOrganizer(_ context.Context, organizerID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.OrganizerID == organizerID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	return out, nil
}

// Register applies the registration as one atomic step: capacity check,
// duplicate check, registration write, counter increment. Either all of it
// happens or none of it does.
func (s *InMemory) Register(_ context.Context, eventID string, student Student) (Registration, error) {
	student, err := ValidateStudent(student)
	if err != nil {
		return Registration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return Registration{}, ErrNotFound
	}
	if _, dup := s.regs[eventID][student.ID]; dup {
		return Registration{}, ErrAlreadyRegistered
	}
	if e.RegisteredCount >= e.Capacity {
		return Registration{}, ErrEventFull
	}

	reg := Registration{
		StudentID: student.ID,
		EventID:   eventID,
		Name:      student.Name,
		Email:     student.Email,
		CreatedAt: s.nowFn().UTC(),
	}
	s.regs[eventID][student.ID] = reg
	e.RegisteredCount++
	return reg, nil
}

func (s *InMemory) ListRegistrations(_ context.Context, eventID string) ([]Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regs, ok := s.regs[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Registration, 0, len(regs))
	for _, r := range regs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

// RegistrationCount reports the true number of registrations for an event.
// Used by tests to check the counter invariant.
func (s *InMemory) RegistrationCount(eventID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.regs[eventID])
}
