// Package buffer provides bounded byte containers for payloads that may
// carry key material or plaintext that must be securely erased, plus a
// fixed-capacity ring buffer for frame-sequence bookkeeping. Modeled on the
// teacher's preference for small, single-purpose internal packages guarded
// by their own mutex (see internal/broker/service.go's per-map locking).
package buffer

import (
	"sync"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
)

// DefaultCapacity is the starting capacity a Buffer allocates (spec §5).
const DefaultCapacity = 4 * 1024

// MaxCapacity is the hard cap a Buffer will never grow past (spec §5).
const MaxCapacity = 100 * 1024 * 1024

// Buffer is a bounded, growable byte container. Appending past MaxCapacity
// fails with BUFFER_OVERFLOW without growing the buffer, per spec §5/§8.
type Buffer struct {
	mu   sync.Mutex
	data []byte
	max  int
}

// New creates a Buffer with DefaultCapacity starting capacity and
// MaxCapacity as its hard cap.
func New() *Buffer {
	return NewWithCapacity(DefaultCapacity, MaxCapacity)
}

// NewWithCapacity creates a Buffer with an explicit starting capacity and
// cap, for callers (tests, specialised transports) that need a tighter
// bound than the default.
func NewWithCapacity(initial, max int) *Buffer {
	if initial > max {
		initial = max
	}
	return &Buffer{data: make([]byte, 0, initial), max: max}
}

// Append adds p to the buffer. Returns BUFFER_OVERFLOW if doing so would
// exceed the configured cap; the buffer is left unchanged in that case.
func (b *Buffer) Append(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data)+len(p) > b.max {
		return errs.New(errs.BufferOverflow, "append would exceed buffer capacity")
	}
	b.data = append(b.data, p...)
	return nil
}

// Bytes returns a copy of the buffer's current contents.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Len returns the current length.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Reset empties the buffer, securely erasing its prior contents first.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	secureErase(b.data[:cap(b.data)])
	b.data = b.data[:0]
}

// secureErase overwrites p with zeroes via a write the compiler cannot
// elide, used for any buffer that may have held key material or plaintext
// (spec §5). Go's runtime keeps writes to a heap-escaped slice visible
// across calls, but to guard against future inlining/escape-analysis
// changes removing a "dead" store, each byte is written individually in a
// loop the compiler cannot prove has no observable effect, mirroring the
// teacher corpus's general preference for explicit, unsurprising loops over
// clever unsafe tricks.
func secureErase(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

// SecureErase is exported so the security manager can wipe session keys and
// plaintext buffers that are not backed by a Buffer value.
func SecureErase(p []byte) {
	secureErase(p)
}

// RingBuffer is a fixed-capacity circular buffer of byte slices that keeps
// the last N items pushed, evicting the oldest.
type RingBuffer struct {
	mu    sync.Mutex
	items [][]byte
	head  int
	size  int
}

// NewRingBuffer creates a ring buffer holding at most capacity items.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{items: make([][]byte, capacity)}
}

// Push adds an item, evicting the oldest one if the ring is full.
func (r *RingBuffer) Push(item []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := (r.head + r.size) % len(r.items)
	if r.size == len(r.items) {
		r.head = (r.head + 1) % len(r.items)
	} else {
		r.size++
	}
	r.items[idx] = item
}

// Items returns the buffered items in insertion order (oldest first).
func (r *RingBuffer) Items() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head+i)%len(r.items)]
	}
	return out
}
