package shortterm

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/agent-recall/internal/model"
)

// DefaultPendingCap bounds the staging queue.
const DefaultPendingCap = 100

// Origin tells whether a pending item was staged implicitly by the runtime
// or by an explicit agent decision.
type Origin string

const (
	OriginImplicit Origin = "implicit"
	OriginAgent    Origin = "agent"
)

// PendingItem is one staged promotion candidate.
type PendingItem struct {
	ID              string
	Content         string
	Type            model.MemoryType
	Confidence      float64
	Source          model.SourceType
	Evidence        []string
	Rationale       string
	SuggestedBy     Origin
	ImportanceScore float64
	CreatedAt       time.Time
	AccessCount     int
}

// PendingMemories is the bounded staging queue of promotion candidates.
// Implicit items are threshold-gated at promotion time; agent-decision
// items are always eligible and are never evicted ahead of implicit ones.
type PendingMemories struct {
	mu    sync.Mutex
	items []*PendingItem // FIFO by staging order
	cap   int

	// onCapacity fires (outside the lock) when an Add hits the bound,
	// with the occupancy at that moment. Used to trigger a background
	// promotion pass.
	onCapacity func(occupancy int)
	now        func() time.Time
}

// NewPendingMemories creates a staging queue. A cap <= 0 falls back to
// DefaultPendingCap.
func NewPendingMemories(cap int) *PendingMemories {
	if cap <= 0 {
		cap = DefaultPendingCap
	}
	return &PendingMemories{cap: cap, now: time.Now}
}

// OnCapacity registers the capacity-reached hook.
func (p *PendingMemories) OnCapacity(fn func(occupancy int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCapacity = fn
}

// WithClock overrides the clock, for tests.
func (p *PendingMemories) WithClock(now func() time.Time) *PendingMemories {
	p.now = now
	return p
}

// Add stages an item, assigning an id and timestamp when absent. When the
// queue is full the oldest implicit item is evicted first; agent-decision
// items are only evicted when no implicit item remains. Returns the item id
// and whether the bound was hit.
func (p *PendingMemories) Add(item PendingItem) (string, bool) {
	p.mu.Lock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = p.now()
	}
	if item.SuggestedBy == "" {
		item.SuggestedBy = OriginImplicit
	}
	item.Confidence = model.ClampConfidence(item.Confidence)

	full := len(p.items) >= p.cap
	if full {
		p.evictOneLocked()
	}
	p.items = append(p.items, &item)

	occupancy := len(p.items)
	hook := p.onCapacity
	p.mu.Unlock()

	if full && hook != nil {
		hook(occupancy)
	}
	return item.ID, full
}

func (p *PendingMemories) evictOneLocked() {
	for i, it := range p.items {
		if it.SuggestedBy == OriginImplicit {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return
		}
	}
	if len(p.items) > 0 {
		p.items = p.items[1:]
	}
}

// Ready returns copies of the items eligible for promotion: every
// agent-decision item, plus implicit items whose stored importance score
// meets the threshold.
func (p *PendingMemories) Ready(threshold float64) []PendingItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ready []PendingItem
	for _, it := range p.items {
		if it.SuggestedBy == OriginAgent || it.ImportanceScore >= threshold {
			ready = append(ready, *it)
		}
	}
	return ready
}

// ClearPromoted removes the items whose ids appear in the promoted set.
// Calling it again with the same ids is a no-op.
func (p *PendingMemories) ClearPromoted(ids []string) {
	if len(ids) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	promoted := make(map[string]bool, len(ids))
	for _, id := range ids {
		promoted[id] = true
	}
	kept := p.items[:0]
	for _, it := range p.items {
		if !promoted[it.ID] {
			kept = append(kept, it)
		}
	}
	p.items = kept
}

// Remove deletes a single item by id, reporting whether it was present.
func (p *PendingMemories) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, it := range p.items {
		if it.ID == id {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns copies of all staged items in staging order.
func (p *PendingMemories) Snapshot() []PendingItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PendingItem, len(p.items))
	for i, it := range p.items {
		out[i] = *it
	}
	return out
}

// Len returns the current occupancy.
func (p *PendingMemories) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Cap returns the configured bound.
func (p *PendingMemories) Cap() int {
	return p.cap
}
