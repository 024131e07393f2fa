package domain

import (
	"time"

	"github.com/google/uuid"
)

type RelationshipType string

const (
	// Temporal relationships - belief evolution and deprecation
	RelationSupersedes RelationshipType = "supersedes"
	RelationUpdates    RelationshipType = "updates"
	RelationDeprecates RelationshipType = "deprecates"
	RelationReplaces   RelationshipType = "replaces"

	// Logical relationships - reasoning and inference
	RelationSupports    RelationshipType = "supports"
	RelationContradicts RelationshipType = "contradicts"
	RelationImplies     RelationshipType = "implies"
	RelationReinforces  RelationshipType = "reinforces"
	RelationWeakens     RelationshipType = "weakens"

	// Semantic relationships - content organization
	RelationRelatesTo   RelationshipType = "relates_to"
	RelationSpecializes RelationshipType = "specializes"
	RelationGeneralizes RelationshipType = "generalizes"
	RelationExtends     RelationshipType = "extends"
	RelationDerivesFrom RelationshipType = "derives_from"

	// Causal relationships
	RelationCauses   RelationshipType = "causes"
	RelationCausedBy RelationshipType = "caused_by"
	RelationEnables  RelationshipType = "enables"
	RelationPrevents RelationshipType = "prevents"

	// Contextual relationships
	RelationDependsOn  RelationshipType = "depends_on"
	RelationPrecedes   RelationshipType = "precedes"
	RelationFollows    RelationshipType = "follows"
	RelationContextFor RelationshipType = "context_for"

	// Evidence relationships
	RelationEvidencedBy         RelationshipType = "evidenced_by"
	RelationProvidesEvidenceFor RelationshipType = "provides_evidence_for"
	RelationConflictsWith       RelationshipType = "conflicts_with"

	// Similarity relationships
	RelationSimilarTo     RelationshipType = "similar_to"
	RelationAnalogousTo   RelationshipType = "analogous_to"
	RelationContrastsWith RelationshipType = "contrasts_with"

	// Custom relationship, semantics carried in metadata
	RelationCustom RelationshipType = "custom"
)

// RelationCategories maps each relationship type to its semantic category.
var RelationCategories = map[RelationshipType]string{
	RelationSupersedes:          "temporal",
	RelationUpdates:             "temporal",
	RelationDeprecates:          "temporal",
	RelationReplaces:            "temporal",
	RelationSupports:            "logical",
	RelationContradicts:         "logical",
	RelationImplies:             "logical",
	RelationReinforces:          "logical",
	RelationWeakens:             "logical",
	RelationRelatesTo:           "semantic",
	RelationSpecializes:         "semantic",
	RelationGeneralizes:         "semantic",
	RelationExtends:             "semantic",
	RelationDerivesFrom:         "semantic",
	RelationCauses:              "causal",
	RelationCausedBy:            "causal",
	RelationEnables:             "causal",
	RelationPrevents:            "causal",
	RelationDependsOn:           "contextual",
	RelationPrecedes:            "contextual",
	RelationFollows:             "contextual",
	RelationContextFor:          "contextual",
	RelationEvidencedBy:         "evidence",
	RelationProvidesEvidenceFor: "evidence",
	RelationConflictsWith:       "evidence",
	RelationSimilarTo:           "similarity",
	RelationAnalogousTo:         "similarity",
	RelationContrastsWith:       "similarity",
	RelationCustom:              "custom",
}

// TemporalRelations are types whose effective window is meaningful.
var TemporalRelations = map[RelationshipType]bool{
	RelationSupersedes: true,
	RelationUpdates:    true,
	RelationDeprecates: true,
	RelationReplaces:   true,
}

// DeprecatingRelations mark the target belief as superseded by the source.
var DeprecatingRelations = map[RelationshipType]bool{
	RelationSupersedes: true,
	RelationUpdates:    true,
	RelationDeprecates: true,
	RelationReplaces:   true,
}

// BidirectionalRelations indicates which relations are symmetric by nature.
var BidirectionalRelations = map[RelationshipType]bool{
	RelationSimilarTo:   true,
	RelationAnalogousTo: true,
	RelationRelatesTo:   true,
}

// ConflictingRelations are types that express contradiction between beliefs.
var ConflictingRelations = map[RelationshipType]bool{
	RelationContradicts:   true,
	RelationConflictsWith: true,
}

func ValidRelationshipType(r string) bool {
	_, ok := RelationCategories[RelationshipType(r)]
	return ok
}

// InverseRelation returns the natural inverse of a relationship type, or ""
// when no inverse exists.
func InverseRelation(r RelationshipType) RelationshipType {
	switch r {
	case RelationCauses:
		return RelationCausedBy
	case RelationCausedBy:
		return RelationCauses
	case RelationSpecializes:
		return RelationGeneralizes
	case RelationGeneralizes:
		return RelationSpecializes
	case RelationPrecedes:
		return RelationFollows
	case RelationFollows:
		return RelationPrecedes
	case RelationEvidencedBy:
		return RelationProvidesEvidenceFor
	case RelationProvidesEvidenceFor:
		return RelationEvidencedBy
	}
	return ""
}

// DeprecatingTypes returns the temporal types used by supersession queries.
func DeprecatingTypes() []RelationshipType {
	return []RelationshipType{RelationSupersedes, RelationUpdates, RelationDeprecates, RelationReplaces}
}

// BeliefRelationship is a typed, strength-weighted, optionally time-bounded
// directed edge between two beliefs in the same agent partition.
type BeliefRelationship struct {
	ID             uuid.UUID        `json:"id"`
	AgentID        uuid.UUID        `json:"agent_id"`
	SourceBeliefID uuid.UUID        `json:"source_belief_id"`
	TargetBeliefID uuid.UUID        `json:"target_belief_id"`
	Type           RelationshipType `json:"relationship_type"`
	Strength       float32          `json:"strength"`
	Active         bool             `json:"active"`
	EffectiveFrom  *time.Time       `json:"effective_from,omitempty"`
	EffectiveUntil *time.Time       `json:"effective_until,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Priority       *int             `json:"priority,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	LastUpdated    time.Time        `json:"last_updated"`
	Version        int64            `json:"version"`
}

// IsCurrentlyEffective reports whether the relationship is active and inside
// its effective window at the given instant. Unset bounds are treated as
// always-effective for every relationship type.
func (r *BeliefRelationship) IsCurrentlyEffective(now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.EffectiveFrom != nil && now.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveUntil != nil && !now.Before(*r.EffectiveUntil) {
		return false
	}
	return true
}

// IsDeprecating reports whether this edge marks its target as superseded.
func (r *BeliefRelationship) IsDeprecating() bool {
	return DeprecatingRelations[r.Type]
}

// Category returns the semantic category of the relationship type.
func (r *BeliefRelationship) Category() string {
	return RelationCategories[r.Type]
}
