package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// All store operations are agent-scoped: an id lookup with the wrong agent
// behaves as if the row does not exist. Updates use optimistic concurrency
// via the Version field; a stale version fails with store.ErrVersionConflict
// and is never silently overwritten.

type BeliefStore interface {
	Create(ctx context.Context, b *Belief) error
	GetByID(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*Belief, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (map[uuid.UUID]Belief, error)
	Update(ctx context.Context, b *Belief) error
	Delete(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error

	GetByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool, limit, offset int) ([]Belief, error)
	GetByCategory(ctx context.Context, agentID uuid.UUID, category string, limit int) ([]Belief, error)
	GetByConfidenceAbove(ctx context.Context, agentID uuid.UUID, threshold float32, limit int) ([]Belief, error)
	GetByConfidenceBelow(ctx context.Context, agentID uuid.UUID, threshold float32, limit int) ([]Belief, error)
	SearchByStatement(ctx context.Context, agentID uuid.UUID, text string, limit int) ([]Belief, error)
	CountByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool) (int64, error)
	Exists(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (bool, error)

	// Vector search; only meaningful when SupportsVectorSearch reports true.
	FindSimilarByEmbedding(ctx context.Context, agentID uuid.UUID, embedding []float32, threshold float32, limit int) ([]BeliefWithScore, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	SupportsVectorSearch(ctx context.Context) bool

	Ping(ctx context.Context) error
}

type RelationshipStore interface {
	Create(ctx context.Context, r *BeliefRelationship) error
	GetByID(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*BeliefRelationship, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (map[uuid.UUID]BeliefRelationship, error)
	Update(ctx context.Context, r *BeliefRelationship) error
	Delete(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error
	// SetActive toggles soft deletion. Returns false (not an error) when the
	// relationship does not exist in the given agent partition.
	SetActive(ctx context.Context, id uuid.UUID, agentID uuid.UUID, active bool) (bool, error)

	GetByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool, limit, offset int) ([]BeliefRelationship, error)
	GetBySource(ctx context.Context, agentID uuid.UUID, sourceBeliefID uuid.UUID, types []RelationshipType, activeOnly bool) ([]BeliefRelationship, error)
	GetByTarget(ctx context.Context, agentID uuid.UUID, targetBeliefID uuid.UUID, types []RelationshipType, activeOnly bool) ([]BeliefRelationship, error)
	GetForBelief(ctx context.Context, agentID uuid.UUID, beliefID uuid.UUID) ([]BeliefRelationship, error)
	GetByType(ctx context.Context, agentID uuid.UUID, relType RelationshipType, limit int) ([]BeliefRelationship, error)
	GetBetween(ctx context.Context, agentID uuid.UUID, sourceBeliefID, targetBeliefID uuid.UUID) ([]BeliefRelationship, error)
	GetByStrengthAbove(ctx context.Context, agentID uuid.UUID, threshold float32, limit, offset int) ([]BeliefRelationship, error)
	CountByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool) (int64, error)

	// Aggregations computed in the backend, never by enumerating rows here.
	TypeDistribution(ctx context.Context, agentID uuid.UUID) (map[RelationshipType]int64, error)
	AverageStrength(ctx context.Context, agentID uuid.UUID, includeInactive bool) (float64, error)

	// Integrity scans for graph validation.
	FindOrphaned(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error)
	FindSelfReferencing(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error)
	FindTemporallyInvalid(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error)

	// DeprecatedBeliefIDs returns targets of active deprecating edges.
	DeprecatedBeliefIDs(ctx context.Context, agentID uuid.UUID, limit int) ([]uuid.UUID, error)
	CountDeprecatedBeliefs(ctx context.Context, agentID uuid.UUID) (int64, error)
	DeleteInactiveOlderThan(ctx context.Context, agentID uuid.UUID, cutoff time.Time) (int64, error)

	Ping(ctx context.Context) error
}

type ConflictStore interface {
	Create(ctx context.Context, c *BeliefConflict) error
	GetByID(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*BeliefConflict, error)
	Update(ctx context.Context, c *BeliefConflict) error
	GetUnresolved(ctx context.Context, agentID uuid.UUID, limit int) ([]BeliefConflict, error)
	GetByBelief(ctx context.Context, agentID uuid.UUID, beliefID uuid.UUID) ([]BeliefConflict, error)
}

// ExtractionClient is the external extraction/conflict oracle. The analyzer
// treats it as opaque and must survive its failure without corrupting the
// graph (a failed conflict check is reported as unknown, never as clean).
type ExtractionClient interface {
	ExtractBeliefs(ctx context.Context, content string, agentID uuid.UUID, categoryHint string) ([]ExtractedBelief, error)
	AreConflicting(ctx context.Context, stmtA, stmtB, categoryA, categoryB string) (bool, error)
	CalculateSimilarity(ctx context.Context, stmtA, stmtB string) (float32, error)
	CalculateConfidence(ctx context.Context, content, statement, context string) (float32, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
