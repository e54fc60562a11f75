package auth

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory. Used by tests and the demo
// backend.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account // id -> account
	byEmail  map[string]string   // email -> id
	profiles map[string]*Profile // id -> profile
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		byEmail:  make(map[string]string),
		profiles: make(map[string]*Profile),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Accounts(context.Context) AccountStore { return (*memAccounts)(s) }
func (s *MemoryStore) Profiles(context.Context) ProfileStore { return (*memProfiles)(s) }

type memAccounts MemoryStore

func (s *memAccounts) Create(_ context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[a.Email]; ok {
		return ErrEmailTaken
	}
	cp := *a
	s.accounts[a.ID] = &cp
	s.byEmail[a.Email] = a.ID
	return nil
}

func (s *memAccounts) Find(_ context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memAccounts) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

type memProfiles MemoryStore

func (s *memProfiles) Create(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return ErrEmailTaken
	}
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *memProfiles) Find(_ context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memProfiles) SetRole(_ context.Context, id, role, requestStatus string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Role = role
	p.OrganizerRequestStatus = requestStatus
	cp := *p
	return &cp, nil
}
