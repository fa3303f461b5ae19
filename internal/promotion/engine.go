// Package promotion evaluates short-term observations against the importance
// score and persists the ones worth keeping in long-term storage.
package promotion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/scoring"
	"github.com/rcliao/agent-recall/internal/shortterm"
	"github.com/rcliao/agent-recall/internal/store"
)

const (
	// DefaultThreshold gates implicit candidates.
	DefaultThreshold = 0.6

	// DefaultCloseThreshold is the permissive override used on session
	// close, the last chance to promote.
	DefaultCloseThreshold = 0.4

	// DefaultMaxPerRun bounds one evaluation pass.
	DefaultMaxPerRun = 20
)

// Options configures an Engine.
type Options struct {
	Threshold float64
	MaxPerRun int
	Logger    *slog.Logger
}

// Candidate is an ephemeral scored promotion candidate. It exists only for
// the duration of one evaluation pass and is never stored.
type Candidate struct {
	Content       string
	Type          model.MemoryType
	Confidence    float64
	Source        model.SourceType
	Evidence      []string
	Rationale     string
	Score         float64
	PendingID     string // staging id; empty for working-context candidates
	AgentDecision bool
}

// Result reports one promotion pass.
type Result struct {
	Evaluated          int
	Promoted           int
	PromotedPendingIDs []string
}

// Containers bundles one session's short-term state for evaluation.
type Containers struct {
	Working  *shortterm.WorkingContext
	Pending  *shortterm.PendingMemories
	Accesses *shortterm.AccessLog
}

// Engine turns short-term containers into ranked candidates and persists
// the worthy ones. It is stateless per pass; all state lives in the
// containers and the store.
type Engine struct {
	store     store.Store
	scorer    *scoring.Scorer
	threshold float64
	maxPerRun int
	logger    *slog.Logger
}

// NewEngine validates configuration and builds an Engine. The threshold
// must be in [0,1] and maxPerRun >= 1; invalid values are rejected, not
// clamped.
func NewEngine(st store.Store, sc *scoring.Scorer, opts Options) (*Engine, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("promotion: threshold must be in [0,1], got %v", opts.Threshold)
	}
	if opts.MaxPerRun < 1 {
		return nil, fmt.Errorf("promotion: max-per-run must be >= 1, got %d", opts.MaxPerRun)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     st,
		scorer:    sc,
		threshold: opts.Threshold,
		maxPerRun: opts.MaxPerRun,
		logger:    logger,
	}, nil
}

// Threshold returns the configured promotion threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

// Evaluate builds the candidate set for one pass: working-context items with
// a suggested type (merged with access-log stats and scored fresh), plus
// ready pending items. Implicit candidates below the threshold are dropped;
// agent-decision items always pass. The result is sorted descending by
// score (stable on ties) and truncated to max-per-run.
func (e *Engine) Evaluate(c Containers, threshold float64) []Candidate {
	var candidates []Candidate

	if c.Working != nil {
		for _, item := range c.Working.Snapshot() {
			if item.SuggestedType == "" || item.Value == "" {
				continue
			}
			in := scoring.Input{
				LastAccessed: item.LastAccessed,
				AccessCount:  item.AccessCount,
				Confidence:   item.Confidence,
				Type:         item.SuggestedType,
			}
			if c.Accesses != nil {
				if logged, ok := c.Accesses.Lookup(item.Key); ok {
					if logged.Frequency > in.AccessCount {
						in.AccessCount = logged.Frequency
					}
					in.LastAccessed = logged.Recency
				}
			}
			score := e.scorer.Score(in)
			if score < threshold {
				continue
			}
			candidates = append(candidates, Candidate{
				Content:    fmt.Sprintf("%s: %s", item.Key, item.Value),
				Type:       item.SuggestedType,
				Confidence: item.Confidence,
				Source:     sourceFor(item.Source),
				Evidence:   []string{item.Key},
				Score:      score,
			})
		}
	}

	if c.Pending != nil {
		for _, item := range c.Pending.Ready(threshold) {
			if item.Type == "" || item.Content == "" {
				continue
			}
			source := item.Source
			if source == "" {
				source = model.SourceAgent
			}
			candidates = append(candidates, Candidate{
				Content:       item.Content,
				Type:          item.Type,
				Confidence:    item.Confidence,
				Source:        source,
				Evidence:      item.Evidence,
				Rationale:     item.Rationale,
				Score:         item.ImportanceScore,
				PendingID:     item.ID,
				AgentDecision: item.SuggestedBy == shortterm.OriginAgent,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > e.maxPerRun {
		candidates = candidates[:e.maxPerRun]
	}
	return candidates
}

// Promote persists candidates through the long-term store. Persistence
// failures are per-item: one failing candidate is logged and skipped, the
// rest of the batch continues.
func (e *Engine) Promote(ctx context.Context, sessionID string, candidates []Candidate) Result {
	res := Result{Evaluated: len(candidates)}
	for _, cand := range candidates {
		_, err := e.store.Persist(ctx, model.MemoryInput{
			Content:    cand.Content,
			Type:       cand.Type,
			Confidence: model.ClampConfidence(cand.Confidence),
			Source:     cand.Source,
			SessionID:  sessionID,
			Rationale:  cand.Rationale,
			Evidence:   cand.Evidence,
		})
		if err != nil {
			e.logger.Warn("promotion persist failed",
				"session", sessionID, "type", cand.Type, "error", err)
			continue
		}
		res.Promoted++
		if cand.PendingID != "" {
			res.PromotedPendingIDs = append(res.PromotedPendingIDs, cand.PendingID)
		}
	}
	return res
}

// Run executes one full pass at the given threshold (<0 means the
// configured default) and returns the ids of promoted pending items for
// caller-driven cleanup.
func (e *Engine) Run(ctx context.Context, sessionID string, c Containers, threshold float64) Result {
	if threshold < 0 {
		threshold = e.threshold
	}
	candidates := e.Evaluate(c, threshold)
	res := e.Promote(ctx, sessionID, candidates)
	if res.Promoted > 0 {
		e.logger.Info("promotion pass complete",
			"session", sessionID, "evaluated", res.Evaluated, "promoted", res.Promoted)
	}
	return res
}

func sourceFor(s shortterm.ItemSource) model.SourceType {
	switch s {
	case shortterm.SourceTool:
		return model.SourceTool
	case shortterm.SourceExplicit:
		return model.SourceUser
	default:
		return model.SourceAgent
	}
}
