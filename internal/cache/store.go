package cache

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound signals a routine miss: the key was never stored or its TTL
// elapsed. Callers treat it as normal control flow, not a failure.
var ErrNotFound = errors.New("cache entry not found")

// Entry is one stored origin response: status, the controlled header subset,
// and the materialized body. Entries are read-only once stored; only 2xx
// responses are ever handed to Put.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"-"`
	StoredAt time.Time   `json:"stored_at"`
}

// Clone returns an independent copy so a stored entry and a served response
// never share backing memory.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := &Entry{
		Status:   e.Status,
		Header:   make(http.Header, len(e.Header)),
		Body:     append([]byte(nil), e.Body...),
		StoredAt: e.StoredAt,
	}
	for key, values := range e.Header {
		clone.Header[key] = append([]string(nil), values...)
	}
	return clone
}

// Store is the boundary to the keyed response cache. Implementations are
// safe for concurrent use. The contract is deliberately eventually
// consistent: Put settling gives no guarantee that a concurrent Lookup
// elsewhere observes the entry, and a failed Put must never affect a
// response already delivered.
type Store interface {
	// Lookup returns the entry stored under key, or ErrNotFound when the
	// key is absent or its TTL elapsed. A miss is never a "real" error.
	Lookup(ctx context.Context, key Key) (*Entry, error)

	// Put stores the entry under key with the given TTL. Implementations
	// must be idempotent and convergent so uncoalesced concurrent misses
	// stay harmless.
	Put(ctx context.Context, key Key, entry *Entry, ttl time.Duration) error

	// Remove deletes the entry. Idempotent; absence is not an error.
	Remove(ctx context.Context, key Key) error
}
