// Package stream turns the one-shot origin body into two independently
// consumable branches. Both branches pull from a shared window buffer that
// grows only as far as the slower active reader lags behind the faster one
// and is trimmed as soon as both have passed an offset, so neither branch
// can stall, truncate, or starve the other.
package stream

import (
	"errors"
	"io"
	"sync"
)

// Splitting preconditions are sequencing bugs in the coordinator, so they
// fail loudly instead of silently duplicating or truncating data.
var (
	// ErrConsumed means the body was already read before Tee was called.
	ErrConsumed = errors.New("stream: body already consumed")
	// ErrSplit means Tee was called twice, or Read was attempted after Tee.
	ErrSplit = errors.New("stream: body already split")
	// ErrClosed means a branch was read after its Close.
	ErrClosed = errors.New("stream: branch closed")
)

const readChunkSize = 32 * 1024

// Body wraps a read-once source and tracks whether it has been consumed or
// split, so a late Tee fails fast.
type Body struct {
	mu       sync.Mutex
	src      io.ReadCloser
	consumed bool
	split    bool
}

// NewBody wraps the raw origin body.
func NewBody(src io.ReadCloser) *Body {
	return &Body{src: src}
}

// Read consumes the source directly. Once any byte has been read the body
// can no longer be split.
func (b *Body) Read(p []byte) (int, error) {
	b.mu.Lock()
	if b.split {
		b.mu.Unlock()
		return 0, ErrSplit
	}
	b.consumed = true
	src := b.src
	b.mu.Unlock()
	return src.Read(p)
}

// Close releases the source unless ownership moved to the branches.
func (b *Body) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.split {
		return nil
	}
	return b.src.Close()
}

// Tee produces two independent branches over the unread source. Each branch
// read to completion yields byte-identical content; reading both
// concurrently is safe; closing both closes the source. Teeing a consumed
// or already-split body returns an error.
func (b *Body) Tee() (io.ReadCloser, io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumed {
		return nil, nil, ErrConsumed
	}
	if b.split {
		return nil, nil, ErrSplit
	}
	b.split = true

	t := &tee{src: b.src}
	t.cond = sync.NewCond(&t.mu)
	return &branch{t: t, idx: 0}, &branch{t: t, idx: 1}, nil
}

// tee holds the shared window between the two branches. base is the absolute
// offset of buf[0]; offs track how far each branch has read. Whichever
// branch needs bytes beyond the window performs the source read (outside the
// lock, guarded by fetching) and wakes the other.
type tee struct {
	mu       sync.Mutex
	cond     *sync.Cond
	src      io.ReadCloser
	buf      []byte
	base     int64
	err      error
	fetching bool
	offs     [2]int64
	closed   [2]bool
}

type branch struct {
	t   *tee
	idx int
}

func (r *branch) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	t := r.t
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		if t.closed[r.idx] {
			return 0, ErrClosed
		}

		if off := t.offs[r.idx]; off < t.base+int64(len(t.buf)) {
			n := copy(p, t.buf[off-t.base:])
			t.offs[r.idx] += int64(n)
			t.trimLocked()
			return n, nil
		}

		if t.err != nil {
			return 0, t.err
		}

		if t.fetching {
			t.cond.Wait()
			continue
		}

		t.fetching = true
		t.mu.Unlock()
		chunk := make([]byte, readChunkSize)
		n, err := t.src.Read(chunk)
		t.mu.Lock()
		t.fetching = false
		if n > 0 {
			t.buf = append(t.buf, chunk[:n]...)
		}
		if err != nil {
			t.err = err
		}
		t.cond.Broadcast()
	}
}

// Close marks the branch done; its lag no longer pins the window. Closing
// the second branch closes the source.
func (r *branch) Close() error {
	t := r.t
	t.mu.Lock()
	if t.closed[r.idx] {
		t.mu.Unlock()
		return nil
	}
	t.closed[r.idx] = true
	t.trimLocked()
	both := t.closed[0] && t.closed[1]
	t.cond.Broadcast()
	t.mu.Unlock()

	if both {
		return t.src.Close()
	}
	return nil
}

// trimLocked drops the prefix every active branch has already passed.
func (t *tee) trimLocked() {
	floor := int64(-1)
	for i := range t.offs {
		if t.closed[i] {
			continue
		}
		if floor == -1 || t.offs[i] < floor {
			floor = t.offs[i]
		}
	}
	if floor == -1 {
		// Both branches closed; release everything.
		t.buf = nil
		return
	}

	cut := floor - t.base
	if cut <= 0 {
		return
	}
	remaining := copy(t.buf, t.buf[cut:])
	t.buf = t.buf[:remaining]
	t.base = floor
}
