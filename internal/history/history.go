// Package history keeps a bounded in-memory record of governed statements.
// The ring holds the most recent entries only; nothing is persisted, so a
// workbench restart starts with an empty history.
package history

import (
	"sync"
	"time"

	"github.com/coregx/querygov/internal/classifier"
)

// DefaultCapacity is the ring size used when none is configured.
const DefaultCapacity = 256

// Status is the outcome of a governed statement.
type Status int

const (
	// StatusOK marks a statement that executed without error.
	StatusOK Status = iota
	// StatusError marks a statement the engine rejected or that failed.
	StatusError
	// StatusBlocked marks a statement the guard refused to send.
	StatusBlocked
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Entry is one recorded statement. RewrittenSQL holds the text actually sent
// to the engine when the limit rewriter changed it; otherwise it equals SQL.
type Entry struct {
	SQL          string
	RewrittenSQL string
	Kind         classifier.Kind
	Status       Status
	Err          string
	Elapsed      time.Duration
	RowsReturned int64
	At           time.Time
}

// Recorder is a fixed-capacity ring of entries, newest first. Safe for
// concurrent use.
type Recorder struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	next     int
	size     int
}

// NewRecorder creates a recorder holding up to capacity entries. A capacity
// of zero or less selects DefaultCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Record appends an entry, evicting the oldest when the ring is full.
// A zero At is stamped with the current time.
func (r *Recorder) Record(e Entry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = e
	r.next = (r.next + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// Recent returns up to n entries, newest first. n <= 0 or n larger than the
// recorded count returns everything recorded.
func (r *Recorder) Recent(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > r.size {
		n = r.size
	}

	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		idx := (r.next - 1 - i + r.capacity) % r.capacity
		out[i] = r.entries[idx]
	}
	return out
}

// Len returns the number of recorded entries, at most the capacity.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Clear drops all recorded entries.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.entries)
	r.next = 0
	r.size = 0
}
