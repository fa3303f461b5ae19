package promotion

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/scoring"
	"github.com/rcliao/agent-recall/internal/shortterm"
	"github.com/rcliao/agent-recall/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e, err := NewEngine(st, scoring.NewDefault(), Options{
		Threshold: DefaultThreshold,
		MaxPerRun: DefaultMaxPerRun,
	})
	require.NoError(t, err)
	return e, st
}

func emptyContainers() Containers {
	return Containers{
		Working:  shortterm.NewWorkingContext(0),
		Pending:  shortterm.NewPendingMemories(0),
		Accesses: shortterm.NewAccessLog(0),
	}
}

func TestNewEngineValidation(t *testing.T) {
	_, st := newTestEngine(t)
	sc := scoring.NewDefault()

	_, err := NewEngine(st, sc, Options{Threshold: 1.1, MaxPerRun: 20})
	assert.Error(t, err, "threshold above 1 must be rejected")
	_, err = NewEngine(st, sc, Options{Threshold: -0.1, MaxPerRun: 20})
	assert.Error(t, err, "negative threshold must be rejected")
	_, err = NewEngine(st, sc, Options{Threshold: 0.5, MaxPerRun: 0})
	assert.Error(t, err, "max-per-run below 1 must be rejected")
}

func TestEvaluateThresholdGate(t *testing.T) {
	e, _ := newTestEngine(t)
	c := emptyContainers()

	c.Pending.Add(shortterm.PendingItem{
		ID: "low-implicit", Content: "meh", Type: model.TypeFact,
		ImportanceScore: 0.5,
	})
	c.Pending.Add(shortterm.PendingItem{
		ID: "low-agent", Content: "keep anyway", Type: model.TypeFact,
		ImportanceScore: 0.1, SuggestedBy: shortterm.OriginAgent,
	})

	candidates := e.Evaluate(c, 0.6)
	require.Len(t, candidates, 1)
	assert.Equal(t, "low-agent", candidates[0].PendingID,
		"implicit 0.5 excluded at threshold 0.6; agent-decision 0.1 still promoted")
	assert.True(t, candidates[0].AgentDecision)
}

func TestEvaluateWorkingContextMergesAccessLog(t *testing.T) {
	e, _ := newTestEngine(t)
	c := emptyContainers()

	c.Working.Put("schema_decision", "use ULID primary keys", shortterm.PutOptions{
		Source: shortterm.SourceExplicit,
	})
	// the access log has seen this key far more often than the item itself
	for i := 0; i < 10; i++ {
		c.Accesses.Record("schema_decision")
	}

	candidates := e.Evaluate(c, 0.6)
	require.Len(t, candidates, 1)
	cand := candidates[0]
	assert.Equal(t, model.TypeDecision, cand.Type)
	assert.Contains(t, cand.Content, "use ULID primary keys")
	// recency 1.0, frequency 1.0 (10/10), confidence 0.9, salience 1.0:
	// 0.2 + 0.3 + 0.225 + 0.25 = 0.975
	assert.InDelta(t, 0.975, cand.Score, 0.01)
}

func TestEvaluateSkipsUntaggedWorkingItems(t *testing.T) {
	e, _ := newTestEngine(t)
	c := emptyContainers()

	c.Working.Put("scratch", "temporary value", shortterm.PutOptions{})
	candidates := e.Evaluate(c, 0.0)
	assert.Empty(t, candidates, "items without a suggested type never become candidates")
}

func TestEvaluateSortsAndTruncates(t *testing.T) {
	_, st := newTestEngine(t)
	e, err := NewEngine(st, scoring.NewDefault(), Options{Threshold: 0.0, MaxPerRun: 2})
	require.NoError(t, err)

	c := emptyContainers()
	c.Pending.Add(shortterm.PendingItem{ID: "a", Content: "a", Type: model.TypeFact, ImportanceScore: 0.3})
	c.Pending.Add(shortterm.PendingItem{ID: "b", Content: "b", Type: model.TypeFact, ImportanceScore: 0.9})
	c.Pending.Add(shortterm.PendingItem{ID: "c", Content: "c", Type: model.TypeFact, ImportanceScore: 0.7})

	candidates := e.Evaluate(c, 0.0)
	require.Len(t, candidates, 2)
	assert.Equal(t, "b", candidates[0].PendingID)
	assert.Equal(t, "c", candidates[1].PendingID)
}

func TestPromotePersistsAndReportsCleanup(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	res := e.Promote(ctx, "sess", []Candidate{
		{Content: "good", Type: model.TypeDecision, Confidence: 0.9, Source: model.SourceAgent, PendingID: "p1", Score: 0.8},
		{Content: "", Type: model.TypeDecision, Confidence: 0.9, Source: model.SourceAgent, PendingID: "p2", Score: 0.8},
	})

	assert.Equal(t, 2, res.Evaluated)
	assert.Equal(t, 1, res.Promoted, "an invalid candidate must not abort the batch")
	assert.Equal(t, []string{"p1"}, res.PromotedPendingIDs)

	stored, err := st.Query(ctx, "sess", store.QueryParams{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "good", stored[0].Content)
}

func TestRunRoundTrip(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	c := emptyContainers()

	c.Pending.Add(shortterm.PendingItem{
		ID: "ready", Content: "pool exhaustion causes timeouts", Type: model.TypeDiscovery,
		Confidence: 0.8, ImportanceScore: 0.75,
	})

	res := e.Run(ctx, "sess", c, -1)
	assert.Equal(t, 1, res.Promoted)
	assert.Equal(t, []string{"ready"}, res.PromotedPendingIDs)

	stored, err := st.Query(ctx, "sess", store.QueryParams{})
	require.NoError(t, err)
	require.Len(t, stored, 1)

	got, err := st.Get(ctx, "sess", stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.TypeDiscovery, got.Type)
	assert.Equal(t, 0.8, got.Confidence)

	_, err = st.Get(ctx, "other-session", stored[0].ID)
	assert.True(t, errors.Is(err, store.ErrMemoryNotFound))
}

func TestSessionIsolationDuringPromotion(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	a := emptyContainers()
	a.Pending.Add(shortterm.PendingItem{Content: "session a memory", Type: model.TypeFact, ImportanceScore: 0.9})
	b := emptyContainers()
	b.Pending.Add(shortterm.PendingItem{Content: "session b memory", Type: model.TypeFact, ImportanceScore: 0.9})

	e.Run(ctx, "a", a, -1)
	e.Run(ctx, "b", b, -1)

	memsA, _ := st.Query(ctx, "a", store.QueryParams{})
	memsB, _ := st.Query(ctx, "b", store.QueryParams{})
	require.Len(t, memsA, 1)
	require.Len(t, memsB, 1)
	assert.Equal(t, "session a memory", memsA[0].Content)
	assert.Equal(t, "session b memory", memsB[0].Content)
}

func TestWorkingCandidateRecencyAffectsScore(t *testing.T) {
	_, st := newTestEngine(t)
	now := time.Now()
	sc := scoring.NewDefault().WithClock(func() time.Time { return now })
	e, err := NewEngine(st, sc, Options{Threshold: 0.0, MaxPerRun: 20})
	require.NoError(t, err)

	c := emptyContainers()
	old := now.Add(-4 * time.Hour)
	c.Working.WithClock(func() time.Time { return old })
	c.Working.Put("stale_decision", "long ago", shortterm.PutOptions{})

	fresh := emptyContainers()
	fresh.Working.WithClock(func() time.Time { return now })
	fresh.Working.Put("stale_decision", "just now", shortterm.PutOptions{})

	oldCands := e.Evaluate(c, 0.0)
	freshCands := e.Evaluate(fresh, 0.0)
	require.Len(t, oldCands, 1)
	require.Len(t, freshCands, 1)
	assert.Less(t, oldCands[0].Score, freshCands[0].Score)
}
