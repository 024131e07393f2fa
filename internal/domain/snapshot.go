package domain

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotHardCap bounds the number of beliefs a materialized snapshot may
// contain. Snapshots are a convenience for export and small-dataset
// analysis, never the default path for agent-wide graph operations.
const SnapshotHardCap = 1000

// KnowledgeGraphSnapshot is a bounded, read-only view of an agent's graph,
// built on demand. It is derived data, not a stored entity.
type KnowledgeGraphSnapshot struct {
	AgentID       uuid.UUID             `json:"agent_id"`
	Beliefs       map[uuid.UUID]Belief  `json:"beliefs"`
	Relationships []BeliefRelationship  `json:"relationships"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// GraphStatistics summarizes an agent's graph. Values come from backend
// aggregation queries, not from row enumeration in application code.
type GraphStatistics struct {
	AgentID                 uuid.UUID                  `json:"agent_id"`
	BeliefCount             int64                      `json:"belief_count"`
	ActiveBeliefCount       int64                      `json:"active_belief_count"`
	RelationshipCount       int64                      `json:"relationship_count"`
	ActiveRelationshipCount int64                      `json:"active_relationship_count"`
	DeprecatedBeliefCount   int64                      `json:"deprecated_belief_count"`
	TypeDistribution        map[RelationshipType]int64 `json:"relationship_type_distribution"`
	AverageStrength         float64                    `json:"average_strength"`
}
