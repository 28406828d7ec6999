package store

import (
	"context"
	"sync"
	"time"

	"github.com/darmiel/idtoken/internal/core"
)

var _ core.UserGetter = (*InMemoryUserStore)(nil)

// InMemoryUserStore holds user records in memory. It backs the "static" user source
// and tests.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]core.UserRecord
}

func NewInMemoryUserStore(records ...core.UserRecord) *InMemoryUserStore {
	s := &InMemoryUserStore{
		users: make(map[string]core.UserRecord, len(records)),
	}
	for _, r := range records {
		s.users[r.UID] = r
	}
	return s
}

func (s *InMemoryUserStore) GetUser(_ context.Context, uid string) (*core.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[uid]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return &user, nil
}

func (s *InMemoryUserStore) Put(record core.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[record.UID] = record
}

// RevokeTokens marks every token of uid issued before at as revoked.
// Revocation has second granularity, like token iat claims.
func (s *InMemoryUserStore) RevokeTokens(_ context.Context, uid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[uid]
	if !ok {
		return core.ErrUserNotFound
	}
	user.TokensValidAfterMillis = at.Unix() * 1000
	s.users[uid] = user
	return nil
}

func (s *InMemoryUserStore) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[uid]; !ok {
		return core.ErrUserNotFound
	}
	delete(s.users, uid)
	return nil
}
