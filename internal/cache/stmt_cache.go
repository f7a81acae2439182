// Package cache provides an LRU cache for prepared statements, keyed by the
// governed (rewritten) SQL text. Workbench sessions re-issue the same
// statements constantly; caching the prepared handle skips a prepare
// round-trip per execution.
package cache

import (
	"container/list"
	"database/sql"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the statement capacity used when New is given zero.
const DefaultCapacity = 1000

// StmtCache stores prepared statements with LRU eviction. Evicted and
// replaced statements are closed on a separate goroutine; database/sql
// defers the actual close until in-flight uses finish, so handing out a
// statement and evicting it concurrently is safe.
type StmtCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lru      *list.List

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type cacheEntry struct {
	key  string
	stmt *sql.Stmt
}

// New creates a statement cache. A capacity of zero or less selects
// DefaultCapacity.
func New(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &StmtCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}
}

// Get returns the cached statement for a SQL text, marking it most recently
// used.
func (sc *StmtCache) Get(key string) (*sql.Stmt, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	elem, ok := sc.items[key]
	if !ok {
		sc.misses.Add(1)
		return nil, false
	}

	sc.lru.MoveToFront(elem)
	sc.hits.Add(1)
	return elem.Value.(*cacheEntry).stmt, true
}

// Put stores a prepared statement under a SQL text. A statement already
// cached under the key is replaced and closed; when the cache is full the
// least recently used statement is evicted first.
func (sc *StmtCache) Put(key string, stmt *sql.Stmt) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if elem, ok := sc.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		if entry.stmt != stmt {
			closeAsync(entry.stmt)
			entry.stmt = stmt
		}
		sc.lru.MoveToFront(elem)
		return
	}

	if sc.lru.Len() >= sc.capacity {
		sc.evictOldest()
	}

	sc.items[key] = sc.lru.PushFront(&cacheEntry{key: key, stmt: stmt})
}

// Remove drops and closes the statement cached under a SQL text, reporting
// whether one was present.
func (sc *StmtCache) Remove(key string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	elem, ok := sc.items[key]
	if !ok {
		return false
	}

	sc.lru.Remove(elem)
	delete(sc.items, key)
	closeAsync(elem.Value.(*cacheEntry).stmt)
	return true
}

// evictOldest removes and closes the least recently used statement.
// Caller holds the lock.
func (sc *StmtCache) evictOldest() {
	elem := sc.lru.Back()
	if elem == nil {
		return
	}

	sc.lru.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(sc.items, entry.key)

	closeAsync(entry.stmt)
	sc.evictions.Add(1)
}

// Clear closes and removes every cached statement.
func (sc *StmtCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for elem := sc.lru.Front(); elem != nil; elem = elem.Next() {
		closeAsync(elem.Value.(*cacheEntry).stmt)
	}

	sc.items = make(map[string]*list.Element, sc.capacity)
	sc.lru.Init()
}

// Len returns the number of cached statements.
func (sc *StmtCache) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.lru.Len()
}

// Stats holds cache performance counters.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits over total lookups, 0 when the cache was never read.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the cache counters.
func (sc *StmtCache) Stats() Stats {
	sc.mu.Lock()
	size := sc.lru.Len()
	sc.mu.Unlock()

	return Stats{
		Size:      size,
		Capacity:  sc.capacity,
		Hits:      sc.hits.Load(),
		Misses:    sc.misses.Load(),
		Evictions: sc.evictions.Load(),
	}
}

// closeAsync closes a statement off the caller's goroutine so eviction never
// blocks a query path on statement teardown.
func closeAsync(stmt *sql.Stmt) {
	go func() { _ = stmt.Close() }()
}
