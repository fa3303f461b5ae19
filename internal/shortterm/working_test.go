package shortterm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/agent-recall/internal/model"
)

func TestWorkingContextPutGet(t *testing.T) {
	w := NewWorkingContext(0)
	w.Put("build_cmd", "make test", PutOptions{Source: SourceExplicit})

	it, ok := w.Get("build_cmd")
	require.True(t, ok)
	assert.Equal(t, "make test", it.Value)
	assert.Equal(t, SourceExplicit, it.Source)
	assert.Equal(t, 0.9, it.Confidence)
	assert.Equal(t, 1, it.AccessCount)

	it, _ = w.Get("build_cmd")
	assert.Equal(t, 2, it.AccessCount)
}

func TestWorkingContextRefreshKeepsFirstSeen(t *testing.T) {
	now := time.Now()
	clock := now
	w := NewWorkingContext(0).WithClock(func() time.Time { return clock })

	w.Put("k", "v1", PutOptions{})
	clock = now.Add(time.Minute)
	w.Put("k", "v2", PutOptions{})

	it, ok := w.Peek("k")
	require.True(t, ok)
	assert.Equal(t, "v2", it.Value)
	assert.Equal(t, now, it.FirstSeen)
	assert.Equal(t, now.Add(time.Minute), it.LastAccessed)
	assert.Equal(t, 1, it.AccessCount)
}

func TestWorkingContextInference(t *testing.T) {
	w := NewWorkingContext(0)
	w.Put("db_decision", "use sqlite", PutOptions{})
	w.Put("naming_convention", "snake_case tables", PutOptions{})
	w.Put("scratch", "temp note", PutOptions{})

	it, _ := w.Peek("db_decision")
	assert.Equal(t, model.TypeDecision, it.SuggestedType)
	it, _ = w.Peek("naming_convention")
	assert.Equal(t, model.TypeConvention, it.SuggestedType)
	it, _ = w.Peek("scratch")
	assert.Empty(t, it.SuggestedType, "plain keys are not promotion candidates")
	assert.Equal(t, 0.6, it.Confidence, "inferred source defaults to 0.6")
}

func TestWorkingContextEviction(t *testing.T) {
	now := time.Now()
	clock := now
	// budget of 10 tokens = 40 chars of key+value
	w := NewWorkingContext(10).WithClock(func() time.Time { return clock })

	w.Put("old", strings.Repeat("a", 20), PutOptions{})
	clock = now.Add(time.Second)
	w.Put("new", strings.Repeat("b", 20), PutOptions{})

	// both ~5 tokens, under budget
	assert.Equal(t, 2, w.Len())

	clock = now.Add(2 * time.Second)
	w.Put("big", strings.Repeat("c", 20), PutOptions{})

	// over budget: least-recently-accessed entry goes first
	_, oldOK := w.Peek("old")
	assert.False(t, oldOK, "oldest entry should be evicted")
	_, newOK := w.Peek("new")
	assert.True(t, newOK)
	_, bigOK := w.Peek("big")
	assert.True(t, bigOK)
}

func TestWorkingContextSnapshotOrder(t *testing.T) {
	w := NewWorkingContext(0)
	w.Put("a", "1", PutOptions{})
	w.Put("b", "2", PutOptions{})
	w.Put("c", "3", PutOptions{})

	snap := w.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{snap[0].Key, snap[1].Key, snap[2].Key})

	// snapshot does not touch access metadata
	it, _ := w.Peek("a")
	assert.Equal(t, 0, it.AccessCount)
}

func TestWorkingContextMap(t *testing.T) {
	w := NewWorkingContext(0)
	w.Put("k1", "v1", PutOptions{})
	w.Put("k2", "v2", PutOptions{})
	assert.Equal(t, map[string]string{"k1": "v1", "k2": "v2"}, w.Map())
}
