package builder

import (
	"sort"
	"strings"

	"github.com/rcliao/agent-recall/internal/embedding"
	"github.com/rcliao/agent-recall/internal/token"
)

// Summarize produces an extractive summary of a conversation that fits the
// token budget. Sentences are scored by the TF-IDF weight of their terms
// against the whole conversation, with a bonus for sentences from the
// opening and closing messages, then the top sentences are emitted in their
// original order.
func Summarize(messages []Message, budgetTokens int) string {
	if len(messages) == 0 || budgetTokens <= 0 {
		return ""
	}

	var all strings.Builder
	for _, m := range messages {
		all.WriteString(m.Content)
		all.WriteString(" ")
	}
	corpus := embedding.GenerateOrEmpty(all.String())

	type scored struct {
		index int
		text  string
		score float64
	}
	var sentences []scored
	idx := 0
	for mi, m := range messages {
		bonus := 0.0
		// opening messages carry task framing, closing ones the latest state
		if mi < 2 || mi >= len(messages)-2 {
			bonus = 0.15
		}
		for _, s := range splitSentences(m.Content) {
			sentences = append(sentences, scored{
				index: idx,
				text:  s,
				score: sentenceScore(s, corpus) + bonus,
			})
			idx++
		}
	}
	if len(sentences) == 0 {
		return ""
	}

	ranked := make([]scored, len(sentences))
	copy(ranked, sentences)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	// greedily take top sentences while the summary fits the budget
	charBudget := budgetTokens * 4
	picked := map[int]bool{}
	used := 0
	for _, s := range ranked {
		cost := len(s.text) + 1
		if used+cost > charBudget {
			continue
		}
		picked[s.index] = true
		used += cost
	}

	// re-emit in original order
	var out []string
	for _, s := range sentences {
		if picked[s.index] {
			out = append(out, s.text)
		}
	}
	summary := strings.Join(out, " ")
	if token.Estimate(summary) > budgetTokens {
		summary = truncateBytes(summary, charBudget)
	}
	return summary
}

func sentenceScore(s string, corpus embedding.Embedding) float64 {
	tokens := embedding.Tokenize(s)
	if len(tokens) == 0 {
		return 0
	}
	total := 0.0
	for _, t := range tokens {
		total += corpus[t]
	}
	return total / float64(len(tokens))
}

// splitSentences breaks text on sentence terminators and newlines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '\n':
			flush()
		}
	}
	flush()
	return sentences
}
