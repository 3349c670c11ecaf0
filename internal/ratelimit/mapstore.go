package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MapStore is an in-process Store. It keeps only the newest timestamp per user.
type MapStore struct {
	mu   sync.RWMutex
	last map[string]time.Time
}

func NewMapStore() *MapStore {
	return &MapStore{last: make(map[string]time.Time)}
}

func (s *MapStore) LastTimestamp(_ context.Context, userID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.last[userID]
	return ts, ok, nil
}

func (s *MapStore) Record(_ context.Context, userID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.last[userID]; ok && prev.After(ts) {
		return nil
	}
	s.last[userID] = ts
	return nil
}
