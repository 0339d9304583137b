package correlator

import (
	"encoding/json"
	"math"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry is one asynchronous call waiting for its reply.
type entry struct {
	service   string
	symbol    string
	threadID  int64
	payload   json.RawMessage
	data      json.RawMessage
	direction Direction
	createdAt time.Time
	storedAt  time.Time

	// claimed is taken exactly once, by the reply that resolves the entry
	// or by the eviction that drops it.
	claimed atomic.Bool
}

// pendingTable holds at most one entry per thread id. Capacity is enforced
// by the LRU. Expired entries are swept on every access, oldest first, so no
// background goroutine is needed. Drops are reported through onDrop.
type pendingTable struct {
	lru    *lru.Cache[int64, *entry]
	ttl    time.Duration
	now    func() time.Time
	onDrop func(*entry, EvictReason)
}

func newPendingTable(capacity int, ttl time.Duration, onDrop func(*entry, EvictReason)) *pendingTable {
	if capacity <= 0 {
		capacity = math.MaxInt
	}
	t := &pendingTable{ttl: ttl, now: time.Now, onDrop: onDrop}
	// Only fails for a non-positive size.
	t.lru, _ = lru.NewWithEvict[int64, *entry](capacity, t.evicted)
	return t
}

func (t *pendingTable) evicted(_ int64, e *entry) {
	if !e.claimed.CompareAndSwap(false, true) {
		return
	}
	reason := EvictCapacity
	if t.expired(e) {
		reason = EvictExpired
	}
	if t.onDrop != nil {
		t.onDrop(e, reason)
	}
}

func (t *pendingTable) expired(e *entry) bool {
	return t.ttl > 0 && t.now().Sub(e.storedAt) >= t.ttl
}

// sweep drops expired entries. Entries are never promoted, so the oldest
// entry is also the least recently stored.
func (t *pendingTable) sweep() {
	if t.ttl <= 0 {
		return
	}
	for {
		key, e, ok := t.lru.GetOldest()
		if !ok || !t.expired(e) {
			return
		}
		t.lru.Remove(key)
	}
}

// put stores e and returns the live unresolved entry it replaced, if any.
func (t *pendingTable) put(e *entry) *entry {
	t.sweep()
	e.storedAt = t.now()
	var replaced *entry
	if prev, ok := t.lru.Peek(e.threadID); ok && prev.claimed.CompareAndSwap(false, true) {
		replaced = prev
	}
	// Add would update the key in place and keep its old position.
	t.lru.Remove(e.threadID)
	t.lru.Add(e.threadID, e)
	return replaced
}

// take removes and returns the entry for threadID. Entries already claimed
// by an eviction are reported as missing.
func (t *pendingTable) take(threadID int64) (*entry, bool) {
	t.sweep()
	e, ok := t.lru.Peek(threadID)
	if !ok {
		return nil, false
	}
	if !e.claimed.CompareAndSwap(false, true) {
		return nil, false
	}
	t.lru.Remove(threadID)
	return e, true
}

func (t *pendingTable) len() int {
	t.sweep()
	return t.lru.Len()
}
