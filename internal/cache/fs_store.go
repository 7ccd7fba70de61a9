package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// NewFSStore builds the disk-backed store rooted at basePath; the whole
// service shares one instance.
func NewFSStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &fsStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
		now:      time.Now,
	}, nil
}

// fsStore serializes writes per key through entryLock while reads go
// straight to the filesystem. An entry is a body file plus a JSON sidecar
// carrying status, headers, and TTL.
type fsStore struct {
	basePath string
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// entryMeta is the sidecar document persisted next to the body file.
type entryMeta struct {
	Status     int         `json:"status"`
	Header     http.Header `json:"header"`
	StoredAt   time.Time   `json:"stored_at"`
	TTLSeconds int64       `json:"ttl_seconds"`
}

func (s *fsStore) Lookup(ctx context.Context, key Key) (*Entry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if key.IsZero() {
		return nil, ErrNotFound
	}

	metaPath, bodyPath := s.paths(key)

	rawMeta, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var meta entryMeta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		// A corrupt sidecar is treated as absent; the next miss rewrites it.
		return nil, ErrNotFound
	}

	if s.expired(meta) {
		_ = s.Remove(ctx, key)
		return nil, ErrNotFound
	}

	body, err := os.ReadFile(bodyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &Entry{
		Status:   meta.Status,
		Header:   meta.Header,
		Body:     body,
		StoredAt: meta.StoredAt,
	}, nil
}

func (s *fsStore) Put(ctx context.Context, key Key, entry *Entry, ttl time.Duration) error {
	if key.IsZero() {
		return errors.New("cache key required")
	}
	if entry == nil {
		return errors.New("cache entry required")
	}
	if ttl <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lockEntry(key)
	defer unlock()

	metaPath, bodyPath := s.paths(key)

	if err := writeAtomic(bodyPath, entry.Body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}

	meta := entryMeta{
		Status:     entry.Status,
		Header:     entry.Header,
		StoredAt:   entry.StoredAt,
		TTLSeconds: int64(ttl / time.Second),
	}
	if meta.StoredAt.IsZero() {
		meta.StoredAt = s.now().UTC()
	}

	rawMeta, err := json.Marshal(meta)
	if err != nil {
		os.Remove(bodyPath)
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := writeAtomic(metaPath, rawMeta); err != nil {
		os.Remove(bodyPath)
		return fmt.Errorf("write meta: %w", err)
	}

	return nil
}

func (s *fsStore) Remove(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lockEntry(key)
	defer unlock()

	metaPath, bodyPath := s.paths(key)
	for _, path := range []string{metaPath, bodyPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *fsStore) expired(meta entryMeta) bool {
	if meta.TTLSeconds <= 0 {
		return true
	}
	expireAt := meta.StoredAt.Add(time.Duration(meta.TTLSeconds) * time.Second)
	return !s.now().Before(expireAt)
}

func (s *fsStore) paths(key Key) (metaPath, bodyPath string) {
	name := key.Filename()
	return filepath.Join(s.basePath, name+".json"), filepath.Join(s.basePath, name+".body")
}

func (s *fsStore) lockEntry(key Key) func() {
	name := key.Filename()
	s.mu.Lock()
	lock := s.locks[name]
	if lock == nil {
		lock = &entryLock{}
		s.locks[name] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, name)
		}
		s.mu.Unlock()
	}
}

// writeAtomic lands data via temp file + rename and cleans up the temp file
// on failure.
func writeAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".cache-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}
