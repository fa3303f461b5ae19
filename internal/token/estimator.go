// Package token provides character-based token estimation and greedy
// budget-constrained selection.
//
// Counts are an approximation contract (1 token ≈ 4 chars), good enough for
// budget decisions but not for billing.
package token

const charsPerToken = 4

const (
	// MessageOverhead covers role markers and separators added per
	// conversational message when it is serialized into a prompt.
	MessageOverhead = 4

	// MemoryOverhead covers framing and metadata added per long-term
	// memory when it is serialized into a prompt.
	MemoryOverhead = 10
)

// Estimate approximates the token count of text. Empty text costs zero.
func Estimate(text string) int {
	return len(text) / charsPerToken
}

// SelectWithinBudget greedily accumulates items in input order while the
// running total stays within budget. Selection stops permanently at the
// first item that would exceed the budget; later, cheaper items are not
// considered. Deterministic and order-preserving.
func SelectWithinBudget[T any](items []T, budget int, cost func(T) int) []T {
	var selected []T
	total := 0
	for _, item := range items {
		c := cost(item)
		if total+c > budget {
			break
		}
		selected = append(selected, item)
		total += c
	}
	return selected
}
