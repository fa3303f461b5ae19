// Package builder assembles the token-bounded context bundle handed to the
// LLM on each turn: conversation (summarized when over budget), working
// context, and ranked long-term memories.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/store"
	"github.com/rcliao/agent-recall/internal/token"
)

// SummaryWorkingKey is the working-context key under which the session
// stashes its latest conversation summary. It is internal plumbing and is
// always filtered out of the exposed working-context map.
const SummaryWorkingKey = "__conversation_summary__"

const (
	hintedFetchLimit           = 10
	defaultFetchLimit          = 5
	defaultMinRecallConfidence = 0.7
)

// Message is one conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options configures one build.
type Options struct {
	Budget              Budget // zero value means DefaultBudget
	QueryHint           string
	IncludeMemories     bool
	IncludeConversation bool
	ForceSummarize      bool
}

// DefaultOptions includes everything with the default budget.
func DefaultOptions() Options {
	return Options{IncludeMemories: true, IncludeConversation: true}
}

// TokenCounts reports the approximate cost of each context section.
type TokenCounts struct {
	Conversation int `json:"conversation"`
	Working      int `json:"working"`
	LongTerm     int `json:"long_term"`
	Total        int `json:"total"`
}

// Result is the assembled context bundle.
type Result struct {
	Conversation     []Message            `json:"conversation,omitempty"`
	Summary          string               `json:"summary,omitempty"`
	SummaryFromCache bool                 `json:"summary_from_cache,omitempty"`
	WorkingContext   map[string]string    `json:"working_context"`
	Memories         []model.StoredMemory `json:"memories"`
	TokenCounts      TokenCounts          `json:"token_counts"`
}

// Builder assembles context bundles. Safe for concurrent use; it holds no
// per-session state beyond the summary cache.
type Builder struct {
	store  store.Store
	cache  *summaryCache
	logger *slog.Logger
}

// New creates a Builder over the given long-term store.
func New(st store.Store, logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := newSummaryCache()
	if err != nil {
		return nil, err
	}
	return &Builder{store: st, cache: cache, logger: logger}, nil
}

// Build assembles the bundle for one turn. Long-term recall is best-effort:
// store failures degrade to an empty memory list. The caller (the session
// owner) is responsible for session existence checks.
func (b *Builder) Build(ctx context.Context, sessionID string, conversation []Message, working map[string]string, opts Options) (*Result, error) {
	budget := opts.Budget
	if budget.Total == 0 {
		budget = DefaultBudget()
	}
	if err := budget.Validate(); err != nil {
		return nil, err
	}

	res := &Result{WorkingContext: map[string]string{}}

	if opts.IncludeConversation {
		b.buildConversation(res, sessionID, conversation, budget, opts.ForceSummarize)
	}

	for k, v := range working {
		if k == SummaryWorkingKey {
			continue
		}
		res.WorkingContext[k] = v
		res.TokenCounts.Working += token.Estimate(k) + token.Estimate(v)
	}

	if opts.IncludeMemories {
		res.Memories = b.recall(ctx, sessionID, opts.QueryHint, budget.LongTerm)
		for _, m := range res.Memories {
			res.TokenCounts.LongTerm += token.MemoryOverhead + token.Estimate(m.Content)
		}
	}

	res.TokenCounts.Total = res.TokenCounts.Conversation + res.TokenCounts.Working + res.TokenCounts.LongTerm
	return res, nil
}

func (b *Builder) buildConversation(res *Result, sessionID string, conversation []Message, budget Budget, force bool) {
	convTokens := 0
	for _, m := range conversation {
		convTokens += token.MessageOverhead + token.Estimate(m.Content)
	}

	if convTokens <= budget.Conversation {
		res.Conversation = conversation
		res.TokenCounts.Conversation = convTokens
		return
	}

	if !force {
		if cached, ok := b.cache.get(sessionID, len(conversation)); ok {
			res.Summary = cached
			res.SummaryFromCache = true
			res.TokenCounts.Conversation = token.MessageOverhead + token.Estimate(cached)
			return
		}
	}

	summary := Summarize(conversation, budget.Conversation)
	b.cache.set(sessionID, len(conversation), summary)
	res.Summary = summary
	res.TokenCounts.Conversation = token.MessageOverhead + token.Estimate(summary)
}

// recall fetches long-term memories. A query hint widens the fetch (it does
// not rescore); without one only high-confidence memories are pulled.
// Results are sorted by confidence and greedily packed into the long-term
// budget.
func (b *Builder) recall(ctx context.Context, sessionID, hint string, budgetTokens int) []model.StoredMemory {
	params := store.QueryParams{Limit: defaultFetchLimit, MinConfidence: defaultMinRecallConfidence}
	if hint != "" {
		params = store.QueryParams{Limit: hintedFetchLimit}
	}

	memories, err := b.store.Query(ctx, sessionID, params)
	if err != nil {
		b.logger.Warn("long-term recall degraded to empty", "session", sessionID, "error", err)
		return nil
	}

	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Confidence > memories[j].Confidence
	})

	selected := token.SelectWithinBudget(memories, budgetTokens, func(m model.StoredMemory) int {
		return token.MemoryOverhead + token.Estimate(m.Content)
	})

	for _, m := range selected {
		b.store.RecordAccess(ctx, sessionID, m.ID)
	}
	return selected
}

// FormatForPrompt renders the bundle as markdown sections. Every embedded
// value is sanitized and length-truncated first.
func FormatForPrompt(res *Result) string {
	var sb strings.Builder

	if res.Summary != "" {
		sb.WriteString("## Conversation Summary\n\n")
		sb.WriteString(sanitize(res.Summary))
		sb.WriteString("\n\n")
	}

	if len(res.WorkingContext) > 0 {
		sb.WriteString("## Working Context\n\n")
		keys := make([]string, 0, len(res.WorkingContext))
		for k := range res.WorkingContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %s\n", sanitize(k), sanitize(res.WorkingContext[k]))
		}
		sb.WriteString("\n")
	}

	if len(res.Memories) > 0 {
		sb.WriteString("## Relevant Memories\n\n")
		for _, m := range res.Memories {
			fmt.Fprintf(&sb, "- [%s] %s (confidence %.2f)\n", m.Type, sanitize(m.Content), m.Confidence)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
