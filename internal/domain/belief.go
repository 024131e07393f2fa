package domain

import (
	"time"

	"github.com/google/uuid"
)

// Belief is a confidence-scored statement held by an agent. Beliefs are
// soft-deleted: deactivation preserves the row for audit and for
// deprecation-chain queries.
type Belief struct {
	ID                 uuid.UUID   `json:"id"`
	AgentID            uuid.UUID   `json:"agent_id"`
	Statement          string      `json:"statement"`
	Confidence         float32     `json:"confidence"`
	Category           string      `json:"category,omitempty"`
	Tags               []string    `json:"tags,omitempty"`
	EvidenceMemoryIDs  []uuid.UUID `json:"evidence_memory_ids,omitempty"`
	ReinforcementCount int         `json:"reinforcement_count"`
	Active             bool        `json:"active"`
	CreatedAt          time.Time   `json:"created_at"`
	LastUpdated        time.Time   `json:"last_updated"`
	Version            int64       `json:"version"`
}

// ClampConfidence forces a confidence value into [0, 1].
func ClampConfidence(c float32) float32 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Reinforce applies a bounded additive confidence boost and increments the
// reinforcement count. Confidence never decreases here and never exceeds 1.0.
func (b *Belief) Reinforce(boost float32) {
	if boost < 0 {
		boost = 0
	}
	b.Confidence = ClampConfidence(b.Confidence + boost)
	b.ReinforcementCount++
	b.LastUpdated = time.Now()
}

// AddEvidence appends a memory reference if it is not already recorded.
func (b *Belief) AddEvidence(memoryID uuid.UUID) {
	for _, id := range b.EvidenceMemoryIDs {
		if id == memoryID {
			return
		}
	}
	b.EvidenceMemoryIDs = append(b.EvidenceMemoryIDs, memoryID)
}

// Deactivate soft-deletes the belief.
func (b *Belief) Deactivate() {
	b.Active = false
	b.LastUpdated = time.Now()
}

func (b *Belief) IsHighConfidence(threshold float32) bool {
	return b.Confidence >= threshold
}

// BeliefWithScore pairs a belief with a similarity score from a lookup.
type BeliefWithScore struct {
	Belief
	Score float32 `json:"score"`
}

// EvidenceRecord is an opaque piece of source evidence handed to the
// analyzer. The analyzer never interprets Content itself; extraction is
// delegated to the ExtractionClient oracle.
type EvidenceRecord struct {
	ID           uuid.UUID `json:"id"`
	AgentID      uuid.UUID `json:"agent_id"`
	Content      string    `json:"content"`
	CategoryHint string    `json:"category_hint,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExtractedBelief is a candidate statement produced by the extraction oracle.
type ExtractedBelief struct {
	Statement  string   `json:"statement"`
	Category   string   `json:"category"`
	Confidence float32  `json:"confidence"`
	Positive   bool     `json:"positive"`
	Tags       []string `json:"tags,omitempty"`
}
