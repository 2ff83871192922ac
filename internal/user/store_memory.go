package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"pulse/internal/auth"
)

// MemoryStore is the in-process Store used for development without a
// database and for package tests.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[int64]User
	nextID int64
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]User), nextID: 1}
}

func (s *MemoryStore) Create(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return User{}, ErrUsernameTaken
		}
	}

	now := time.Now().UTC()
	u.ID = s.nextID
	s.nextID++
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) ByID(_ context.Context, id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) ByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username = strings.TrimSpace(username)
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) Update(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Username == u.Username {
			return User{}, ErrUsernameTaken
		}
	}

	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) CountAdmins(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, u := range s.users {
		if u.Role == auth.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
