// Package scoring implements the multi-factor importance score that decides
// which short-term observations are worth promoting to durable storage.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/rcliao/agent-recall/internal/model"
)

// DefaultFrequencyCap is the access count at which the frequency factor
// saturates at 1.0.
const DefaultFrequencyCap = 10

// recencyHalfLife controls decay: the recency factor is 0.5 at this age.
const recencyHalfLife = 30 * time.Minute

// Weights are the per-factor multipliers. They must be non-negative but are
// not required to sum to 1; callers shift emphasis by raising one factor.
type Weights struct {
	Recency    float64 `yaml:"recency" json:"recency"`
	Frequency  float64 `yaml:"frequency" json:"frequency"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
	Salience   float64 `yaml:"salience" json:"salience"`
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{Recency: 0.2, Frequency: 0.3, Confidence: 0.25, Salience: 0.25}
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"recency", w.Recency},
		{"frequency", w.Frequency},
		{"confidence", w.Confidence},
		{"salience", w.Salience},
	} {
		if f.value < 0 || math.IsNaN(f.value) {
			return fmt.Errorf("scoring: weight %s must be non-negative, got %v", f.name, f.value)
		}
	}
	return nil
}

// Input is the scorable view of a promotion candidate.
type Input struct {
	LastAccessed time.Time
	AccessCount  int
	Confidence   float64
	Type         model.MemoryType
}

// Breakdown exposes the raw factors alongside the combined score.
type Breakdown struct {
	Recency    float64 `json:"recency"`
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
	Salience   float64 `json:"salience"`
	Total      float64 `json:"total"`
}

// Scorer combines the four factors under configurable weights.
type Scorer struct {
	weights Weights
	freqCap int
	now     func() time.Time
}

// New builds a Scorer. The frequency cap must be >= 1.
func New(w Weights, freqCap int) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if freqCap < 1 {
		return nil, fmt.Errorf("scoring: frequency cap must be >= 1, got %d", freqCap)
	}
	return &Scorer{weights: w, freqCap: freqCap, now: time.Now}, nil
}

// NewDefault builds a Scorer with default weights and frequency cap.
func NewDefault() *Scorer {
	s, _ := New(DefaultWeights(), DefaultFrequencyCap)
	return s
}

// WithClock overrides the clock, for tests.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Score returns the combined importance in [0,1].
func (s *Scorer) Score(in Input) float64 {
	return s.Explain(in).Total
}

// Explain returns the per-factor breakdown plus the clamped total.
func (s *Scorer) Explain(in Input) Breakdown {
	b := Breakdown{
		Recency:    RecencyScore(in.LastAccessed, s.now()),
		Frequency:  FrequencyScore(in.AccessCount, s.freqCap),
		Confidence: model.ClampConfidence(in.Confidence),
		Salience:   Salience(in.Type),
	}
	total := s.weights.Recency*b.Recency +
		s.weights.Frequency*b.Frequency +
		s.weights.Confidence*b.Confidence +
		s.weights.Salience*b.Salience
	b.Total = Clamp01(total)
	return b
}

// RecencyScore decays hyperbolically with age: 1.0 at zero elapsed time,
// 0.5 at the half-life, asymptotically toward 0. Future timestamps floor
// the age at zero.
func RecencyScore(lastAccessed, now time.Time) float64 {
	minutes := now.Sub(lastAccessed).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	return 1 / (1 + minutes/recencyHalfLife.Minutes())
}

// FrequencyScore is linear in the access count up to cap, flat at 1 beyond.
func FrequencyScore(count, cap int) float64 {
	if count <= 0 {
		return 0
	}
	if cap < 1 {
		cap = 1
	}
	f := float64(count) / float64(cap)
	if f > 1 {
		return 1
	}
	return f
}

// Salience rates how inherently worth keeping a memory type is. Decisions,
// conventions, risks, and lessons always rate highest; everything
// unrecognized bottoms out at 0.3.
func Salience(t model.MemoryType) float64 {
	switch t {
	case model.TypeDecision, model.TypeArchitecturalDecision, model.TypeImplementationDecision,
		model.TypeAlternative, model.TypeTradeOff,
		model.TypeConvention, model.TypeCodingStandard, model.TypeArchitecturalConvention,
		model.TypeAgentRule, model.TypeProcessConvention,
		model.TypeRisk,
		model.TypeLessonLearned, model.TypeRootCause:
		return 1.0
	case model.TypeDiscovery:
		return 0.8
	case model.TypeFact:
		return 0.7
	case model.TypeHypothesis:
		return 0.5
	case model.TypeAssumption:
		return 0.4
	default:
		return 0.3
	}
}

// Clamp01 forces v into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
