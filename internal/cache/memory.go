package cache

import (
	"context"
	"sync"
	"time"
)

// NewMemoryStore builds the in-process store used by tests and by the
// "memory" storage backend. Expiry is lazy: expired entries are dropped on
// the Lookup that observes them.
func NewMemoryStore() Store {
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

type memoryStore struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	entry     *Entry
	expiresAt time.Time
}

func (s *memoryStore) Lookup(ctx context.Context, key Key) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := key.Filename()
	s.mu.RLock()
	stored, ok := s.entries[name]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(stored.expiresAt) {
		s.mu.Lock()
		delete(s.entries, name)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	return stored.entry.Clone(), nil
}

func (s *memoryStore) Put(ctx context.Context, key Key, entry *Entry, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	clone := entry.Clone()
	if clone.StoredAt.IsZero() {
		clone.StoredAt = s.now().UTC()
	}

	s.mu.Lock()
	s.entries[key.Filename()] = memoryEntry{
		entry:     clone,
		expiresAt: s.now().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Remove(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.entries, key.Filename())
	s.mu.Unlock()
	return nil
}
