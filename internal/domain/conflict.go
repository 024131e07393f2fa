package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConflictResolution is the strategy applied when a detected conflict is
// resolved. No strategy silently deletes data.
type ConflictResolution string

const (
	// ResolutionTakeNew deactivates the older belief; the new one wins.
	ResolutionTakeNew ConflictResolution = "take_new"
	// ResolutionKeepOld keeps the existing belief and lowers the newcomer's confidence.
	ResolutionKeepOld ConflictResolution = "keep_old"
	// ResolutionMarkUncertain lowers confidence on both conflicting beliefs.
	ResolutionMarkUncertain ConflictResolution = "mark_uncertain"
	// ResolutionMerge keeps both beliefs and links them for later synthesis.
	ResolutionMerge ConflictResolution = "merge"
	// ResolutionManualReview flags the conflict and applies no automatic change.
	ResolutionManualReview ConflictResolution = "require_manual_review"
	// ResolutionArchiveOld deactivates the older belief but records the supersession.
	ResolutionArchiveOld ConflictResolution = "archive_old"
)

func ValidConflictResolution(r string) bool {
	switch ConflictResolution(r) {
	case ResolutionTakeNew, ResolutionKeepOld, ResolutionMarkUncertain,
		ResolutionMerge, ResolutionManualReview, ResolutionArchiveOld:
		return true
	}
	return false
}

type ConflictSeverity string

const (
	SeverityLow    ConflictSeverity = "low"
	SeverityMedium ConflictSeverity = "medium"
	SeverityHigh   ConflictSeverity = "high"
)

// BeliefConflict records a detected contradiction between two beliefs, or
// between a belief and a piece of evidence. Conflicts are never implicitly
// deleted; resolution marks them resolved and records the strategy used.
type BeliefConflict struct {
	ID                  uuid.UUID          `json:"id"`
	AgentID             uuid.UUID          `json:"agent_id"`
	BeliefID            uuid.UUID          `json:"belief_id"`
	ConflictingBeliefID uuid.UUID          `json:"conflicting_belief_id,omitempty"`
	MemoryID            uuid.UUID          `json:"memory_id,omitempty"`
	Description         string             `json:"description,omitempty"`
	Severity            ConflictSeverity   `json:"severity"`
	Resolved            bool               `json:"resolved"`
	Resolution          ConflictResolution `json:"resolution,omitempty"`
	DetectedAt          time.Time          `json:"detected_at"`
	ResolvedAt          *time.Time         `json:"resolved_at,omitempty"`
}
