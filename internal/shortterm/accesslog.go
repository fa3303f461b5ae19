package shortterm

import (
	"sync"
	"time"
)

// DefaultAccessLogCap bounds the number of distinct tracked keys.
const DefaultAccessLogCap = 500

// AccessEntry is the frequency/recency record for one key.
type AccessEntry struct {
	Frequency int
	Recency   time.Time
}

// AccessLog tracks access frequency and recency per context key or memory
// reference. Recording is cheap and safe to call fire-and-forget; a dropped
// update is acceptable.
type AccessLog struct {
	mu      sync.Mutex
	entries map[string]*AccessEntry
	cap     int
	now     func() time.Time
}

// NewAccessLog creates a tracker. A cap <= 0 falls back to
// DefaultAccessLogCap.
func NewAccessLog(cap int) *AccessLog {
	if cap <= 0 {
		cap = DefaultAccessLogCap
	}
	return &AccessLog{entries: map[string]*AccessEntry{}, cap: cap, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (a *AccessLog) WithClock(now func() time.Time) *AccessLog {
	a.now = now
	return a
}

// Record bumps the counter for key. On overflow the entry with the oldest
// recency is evicted.
func (a *AccessLog) Record(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.entries[key]; ok {
		e.Frequency++
		e.Recency = a.now()
		return
	}
	if len(a.entries) >= a.cap {
		a.evictOldestLocked()
	}
	a.entries[key] = &AccessEntry{Frequency: 1, Recency: a.now()}
}

func (a *AccessLog) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range a.entries {
		if first || e.Recency.Before(oldest) || (e.Recency.Equal(oldest) && k < oldestKey) {
			oldestKey, oldest = k, e.Recency
			first = false
		}
	}
	delete(a.entries, oldestKey)
}

// Lookup returns the entry for key, if tracked.
func (a *AccessLog) Lookup(key string) (AccessEntry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[key]
	if !ok {
		return AccessEntry{}, false
	}
	return *e, true
}

// Len returns the number of tracked keys.
func (a *AccessLog) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
