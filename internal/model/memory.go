// Package model defines the memory vocabulary and core data types.
package model

import (
	"fmt"
	"time"
)

// MemoryType classifies what a memory asserts.
type MemoryType string

const (
	TypeFact                    MemoryType = "fact"
	TypeAssumption              MemoryType = "assumption"
	TypeHypothesis              MemoryType = "hypothesis"
	TypeDiscovery               MemoryType = "discovery"
	TypeRisk                    MemoryType = "risk"
	TypeUnknown                 MemoryType = "unknown"
	TypeDecision                MemoryType = "decision"
	TypeArchitecturalDecision   MemoryType = "architectural_decision"
	TypeImplementationDecision  MemoryType = "implementation_decision"
	TypeAlternative             MemoryType = "alternative"
	TypeTradeOff                MemoryType = "trade_off"
	TypeConvention              MemoryType = "convention"
	TypeCodingStandard          MemoryType = "coding_standard"
	TypeArchitecturalConvention MemoryType = "architectural_convention"
	TypeAgentRule               MemoryType = "agent_rule"
	TypeProcessConvention       MemoryType = "process_convention"
	TypeError                   MemoryType = "error"
	TypeBug                     MemoryType = "bug"
	TypeFailure                 MemoryType = "failure"
	TypeIncident                MemoryType = "incident"
	TypeRootCause               MemoryType = "root_cause"
	TypeLessonLearned           MemoryType = "lesson_learned"
)

// ValidMemoryTypes are the allowed memory types.
var ValidMemoryTypes = map[MemoryType]bool{
	TypeFact:                    true,
	TypeAssumption:              true,
	TypeHypothesis:              true,
	TypeDiscovery:               true,
	TypeRisk:                    true,
	TypeUnknown:                 true,
	TypeDecision:                true,
	TypeArchitecturalDecision:   true,
	TypeImplementationDecision:  true,
	TypeAlternative:             true,
	TypeTradeOff:                true,
	TypeConvention:              true,
	TypeCodingStandard:          true,
	TypeArchitecturalConvention: true,
	TypeAgentRule:               true,
	TypeProcessConvention:       true,
	TypeError:                   true,
	TypeBug:                     true,
	TypeFailure:                 true,
	TypeIncident:                true,
	TypeRootCause:               true,
	TypeLessonLearned:           true,
}

// NormalizeMemoryType maps unrecognized values (e.g. rows written by a newer
// schema) to TypeUnknown instead of failing the read.
func NormalizeMemoryType(t MemoryType) MemoryType {
	if ValidMemoryTypes[t] {
		return t
	}
	return TypeUnknown
}

// SourceType records where a memory came from.
type SourceType string

const (
	SourceUser             SourceType = "user"
	SourceAgent            SourceType = "agent"
	SourceTool             SourceType = "tool"
	SourceExternalDocument SourceType = "external_document"
)

// ValidSourceTypes are the allowed source types.
var ValidSourceTypes = map[SourceType]bool{
	SourceUser:             true,
	SourceAgent:            true,
	SourceTool:             true,
	SourceExternalDocument: true,
}

// Relationship names a typed link between two memories.
type Relationship string

const (
	RelRefines        Relationship = "refines"
	RelConfirms       Relationship = "confirms"
	RelContradicts    Relationship = "contradicts"
	RelDerivedFrom    Relationship = "derived_from"
	RelSupersededBy   Relationship = "superseded_by"
	RelHasAlternative Relationship = "has_alternative"
	RelHasRootCause   Relationship = "has_root_cause"
	RelProducedLesson Relationship = "produced_lesson"
	RelRelatesTo      Relationship = "relates_to"
)

// ValidRelationships are the allowed link relationships.
var ValidRelationships = map[Relationship]bool{
	RelRefines:        true,
	RelConfirms:       true,
	RelContradicts:    true,
	RelDerivedFrom:    true,
	RelSupersededBy:   true,
	RelHasAlternative: true,
	RelHasRootCause:   true,
	RelProducedLesson: true,
	RelRelatesTo:      true,
}

// MemoryInput is the write-side shape handed to the long-term store.
type MemoryInput struct {
	ID         string     `json:"id,omitempty"`
	Content    string     `json:"content"`
	Type       MemoryType `json:"memory_type"`
	Confidence float64    `json:"confidence"`
	Source     SourceType `json:"source_type"`
	SessionID  string     `json:"session_id"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
	Rationale  string     `json:"rationale,omitempty"`
	Evidence   []string   `json:"evidence,omitempty"`
}

// Validate rejects inputs outside the closed vocabularies. Nothing is
// silently coerced; callers that want clamping use ClampConfidence first.
func (in MemoryInput) Validate() error {
	if in.Content == "" {
		return fmt.Errorf("invalid memory: empty content")
	}
	if !ValidMemoryTypes[in.Type] {
		return fmt.Errorf("invalid memory type %q", in.Type)
	}
	if !ValidSourceTypes[in.Source] {
		return fmt.Errorf("invalid source type %q", in.Source)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return fmt.Errorf("invalid confidence %v (must be in [0,1])", in.Confidence)
	}
	return nil
}

// StoredMemory is a durable memory as read back from the long-term store.
type StoredMemory struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	Content        string     `json:"content"`
	Type           MemoryType `json:"memory_type"`
	Confidence     float64    `json:"confidence"`
	Source         SourceType `json:"source_type"`
	CreatedAt      time.Time  `json:"created_at"`
	Rationale      string     `json:"rationale,omitempty"`
	Evidence       []string   `json:"evidence,omitempty"`
	SupersededBy   string     `json:"superseded_by,omitempty"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// ClampConfidence forces a confidence value into [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
