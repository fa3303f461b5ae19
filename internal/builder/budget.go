package builder

import "fmt"

// systemCap bounds the system share of any budget.
const systemCap = 2000

// Budget is the token allocation for one context build. The sub-budgets
// are informative allocations, not a strict partition: a component may run
// over its share without failing the build (soft budgeting).
type Budget struct {
	Total        int `json:"total" yaml:"total"`
	System       int `json:"system" yaml:"system"`
	Conversation int `json:"conversation" yaml:"conversation"`
	Working      int `json:"working" yaml:"working"`
	LongTerm     int `json:"long_term" yaml:"long_term"`
}

// DefaultBudget returns the standard 32k allocation.
func DefaultBudget() Budget {
	return AllocateBudget(32000)
}

// AllocateBudget derives a budget from a total using fixed ratios: system
// total/16 capped at 2000, conversation 62.5%, working 12.5%, long-term
// the remainder.
func AllocateBudget(total int) Budget {
	if total <= 0 {
		total = 32000
	}
	system := total / 16
	if system > systemCap {
		system = systemCap
	}
	conversation := total * 5 / 8
	working := total / 8
	return Budget{
		Total:        total,
		System:       system,
		Conversation: conversation,
		Working:      working,
		LongTerm:     total - system - conversation - working,
	}
}

// Validate rejects non-positive totals and negative sub-budgets.
func (b Budget) Validate() error {
	if b.Total <= 0 {
		return fmt.Errorf("builder: budget total must be > 0, got %d", b.Total)
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"system", b.System},
		{"conversation", b.Conversation},
		{"working", b.Working},
		{"long_term", b.LongTerm},
	} {
		if f.value < 0 {
			return fmt.Errorf("builder: budget %s must be >= 0, got %d", f.name, f.value)
		}
	}
	return nil
}
