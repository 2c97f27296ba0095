package users

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu         sync.RWMutex
	byUsername map[string]*User
	byEmail    map[string]*User
	nextID     int64
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUsername: make(map[string]*User),
		byEmail:    make(map[string]*User),
		nextID:     1,
	}
}

func (s *MemoryStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[u.Username]; exists {
		return ErrDuplicateUser
	}
	if _, exists := s.byEmail[u.Email]; exists {
		return ErrDuplicateUser
	}

	u.ID = s.nextID
	s.nextID++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	stored := *u
	s.byUsername[u.Username] = &stored
	s.byEmail[u.Email] = &stored
	return nil
}

func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}
