// Package shortterm provides the bounded session-scoped containers: the
// working-context scratchpad, the pending-memory staging queue, and the
// access log.
package shortterm

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/token"
)

// DefaultWorkingBudget is the token budget for the working context.
const DefaultWorkingBudget = 4000

// ItemSource records how a working-context entry was produced.
type ItemSource string

const (
	SourceInferred ItemSource = "inferred"
	SourceExplicit ItemSource = "explicit"
	SourceTool     ItemSource = "tool"
)

// Item is one working-context entry with its access metadata.
type Item struct {
	Key           string
	Value         string
	Source        ItemSource
	Confidence    float64
	AccessCount   int
	FirstSeen     time.Time
	LastAccessed  time.Time
	SuggestedType model.MemoryType // empty when not a promotion candidate
}

func (it Item) tokens() int {
	return token.Estimate(it.Key) + token.Estimate(it.Value)
}

// WorkingContext is a bounded key→value scratchpad. Mutations are guarded
// by an internal mutex; compound operations are additionally serialized by
// the owning session actor.
//
// Eviction policy: when the summed token cost of all entries exceeds the
// budget, entries are evicted least-recently-accessed first (ties broken by
// insertion order) until usage fits. Deterministic for a fixed clock.
type WorkingContext struct {
	mu     sync.Mutex
	items  map[string]*Item
	seq    map[string]int // insertion order, for deterministic tie-breaks
	nextSq int
	budget int
	now    func() time.Time
}

// NewWorkingContext creates a scratchpad with the given token budget.
// A budget <= 0 falls back to DefaultWorkingBudget.
func NewWorkingContext(budget int) *WorkingContext {
	if budget <= 0 {
		budget = DefaultWorkingBudget
	}
	return &WorkingContext{
		items:  map[string]*Item{},
		seq:    map[string]int{},
		budget: budget,
		now:    time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (w *WorkingContext) WithClock(now func() time.Time) *WorkingContext {
	w.now = now
	return w
}

// PutOptions carries the optional attributes of a Put.
type PutOptions struct {
	Source        ItemSource
	Confidence    float64 // <= 0 means infer from source
	SuggestedType model.MemoryType
}

// Put stores or refreshes an entry. Storing an existing key keeps its
// FirstSeen and bumps its access count. Missing attributes are inferred:
// source defaults to inferred, confidence follows the source, and a
// suggested type is guessed from the key when none is given.
func (w *WorkingContext) Put(key, value string, opts PutOptions) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	source := opts.Source
	if source == "" {
		source = SourceInferred
	}
	confidence := opts.Confidence
	if confidence <= 0 {
		confidence = defaultConfidence(source)
	}
	confidence = model.ClampConfidence(confidence)
	suggested := opts.SuggestedType
	if suggested == "" {
		suggested = inferType(key)
	}

	if existing, ok := w.items[key]; ok {
		existing.Value = value
		existing.Source = source
		existing.Confidence = confidence
		existing.SuggestedType = suggested
		existing.AccessCount++
		existing.LastAccessed = now
	} else {
		w.items[key] = &Item{
			Key:           key,
			Value:         value,
			Source:        source,
			Confidence:    confidence,
			SuggestedType: suggested,
			FirstSeen:     now,
			LastAccessed:  now,
		}
		w.seq[key] = w.nextSq
		w.nextSq++
	}

	w.evictLocked()
}

// Get returns an entry and refreshes its access metadata.
func (w *WorkingContext) Get(key string) (Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	it, ok := w.items[key]
	if !ok {
		return Item{}, false
	}
	it.AccessCount++
	it.LastAccessed = w.now()
	return *it, true
}

// Peek returns an entry without touching access metadata.
func (w *WorkingContext) Peek(key string) (Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, ok := w.items[key]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Delete removes an entry.
func (w *WorkingContext) Delete(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.items, key)
	delete(w.seq, key)
}

// Snapshot returns copies of all entries in insertion order, without
// touching access metadata.
func (w *WorkingContext) Snapshot() []Item {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Item, 0, len(w.items))
	for _, it := range w.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		return w.seq[out[i].Key] < w.seq[out[j].Key]
	})
	return out
}

// Map returns the entries as a flat key→value map.
func (w *WorkingContext) Map() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]string, len(w.items))
	for k, it := range w.items {
		out[k] = it.Value
	}
	return out
}

// Len returns the number of entries.
func (w *WorkingContext) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// TokensUsed returns the summed token cost of all entries.
func (w *WorkingContext) TokensUsed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.usedLocked()
}

func (w *WorkingContext) usedLocked() int {
	used := 0
	for _, it := range w.items {
		used += it.tokens()
	}
	return used
}

func (w *WorkingContext) evictLocked() {
	used := w.usedLocked()
	if used <= w.budget {
		return
	}

	// oldest access first, insertion order as tie-break
	keys := make([]string, 0, len(w.items))
	for k := range w.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := w.items[keys[i]], w.items[keys[j]]
		if !a.LastAccessed.Equal(b.LastAccessed) {
			return a.LastAccessed.Before(b.LastAccessed)
		}
		return w.seq[keys[i]] < w.seq[keys[j]]
	})

	for _, k := range keys {
		if used <= w.budget {
			return
		}
		used -= w.items[k].tokens()
		delete(w.items, k)
		delete(w.seq, k)
	}
}

func defaultConfidence(s ItemSource) float64 {
	switch s {
	case SourceExplicit:
		return 0.9
	case SourceTool:
		return 0.8
	default:
		return 0.6
	}
}

// inferType guesses a memory type from the key so that plainly-named
// observations become promotion candidates without an explicit tag.
func inferType(key string) model.MemoryType {
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "decision"):
		return model.TypeDecision
	case strings.Contains(k, "convention"), strings.Contains(k, "standard"), strings.Contains(k, "style"):
		return model.TypeConvention
	case strings.Contains(k, "risk"):
		return model.TypeRisk
	case strings.Contains(k, "lesson"):
		return model.TypeLessonLearned
	case strings.Contains(k, "bug"), strings.Contains(k, "error"):
		return model.TypeBug
	case strings.Contains(k, "assumption"):
		return model.TypeAssumption
	case strings.Contains(k, "hypothesis"):
		return model.TypeHypothesis
	default:
		return "" // not a promotion candidate
	}
}
