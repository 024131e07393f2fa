package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/credo-ai/credo/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DeprecationStrength is assigned to supersession edges created through
	// DeprecateBeliefWith. A belief replacing another is a certain statement.
	DeprecationStrength = 1.0

	defaultListLimit = 100
)

// RelationshipService manages the typed edges of an agent's knowledge graph.
// All operations are agent-partitioned: identifiers from another agent's
// partition behave as if they do not exist.
type RelationshipService struct {
	relationships domain.RelationshipStore
	beliefs       domain.BeliefStore
	logger        *zap.Logger
}

func NewRelationshipService(relationships domain.RelationshipStore, beliefs domain.BeliefStore, logger *zap.Logger) *RelationshipService {
	return &RelationshipService{
		relationships: relationships,
		beliefs:       beliefs,
		logger:        logger,
	}
}

// CreateRelationshipInput carries everything needed to create an edge.
// EffectiveFrom/EffectiveUntil and Priority are optional.
type CreateRelationshipInput struct {
	AgentID        uuid.UUID
	SourceBeliefID uuid.UUID
	TargetBeliefID uuid.UUID
	Type           domain.RelationshipType
	Strength       float32
	Reason         string
	Priority       *int
	Metadata       map[string]any
	EffectiveFrom  *time.Time
	EffectiveUntil *time.Time
}

func (s *RelationshipService) CreateRelationship(ctx context.Context, in CreateRelationshipInput) (*domain.BeliefRelationship, error) {
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}

	rel := &domain.BeliefRelationship{
		AgentID:        in.AgentID,
		SourceBeliefID: in.SourceBeliefID,
		TargetBeliefID: in.TargetBeliefID,
		Type:           in.Type,
		Strength:       in.Strength,
		Active:         true,
		EffectiveFrom:  in.EffectiveFrom,
		EffectiveUntil: in.EffectiveUntil,
		Reason:         in.Reason,
		Priority:       in.Priority,
		Metadata:       in.Metadata,
	}
	if err := s.relationships.Create(ctx, rel); err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}

	s.logger.Debug("relationship created",
		zap.String("agent_id", in.AgentID.String()),
		zap.String("relationship_id", rel.ID.String()),
		zap.String("type", string(rel.Type)),
	)
	return rel, nil
}

// CreateRelationshipWithMetadata is a convenience for edges whose semantics
// live in the metadata map, typically custom relations.
func (s *RelationshipService) CreateRelationshipWithMetadata(ctx context.Context, agentID, sourceID, targetID uuid.UUID, relType domain.RelationshipType, strength float32, metadata map[string]any) (*domain.BeliefRelationship, error) {
	return s.CreateRelationship(ctx, CreateRelationshipInput{
		AgentID:        agentID,
		SourceBeliefID: sourceID,
		TargetBeliefID: targetID,
		Type:           relType,
		Strength:       strength,
		Metadata:       metadata,
	})
}

// CreateTemporalRelationship creates an edge bounded to an effective window.
// Both bounds are required here; use CreateRelationship for open-ended edges.
func (s *RelationshipService) CreateTemporalRelationship(ctx context.Context, agentID, sourceID, targetID uuid.UUID, relType domain.RelationshipType, strength float32, from, until time.Time) (*domain.BeliefRelationship, error) {
	return s.CreateRelationship(ctx, CreateRelationshipInput{
		AgentID:        agentID,
		SourceBeliefID: sourceID,
		TargetBeliefID: targetID,
		Type:           relType,
		Strength:       strength,
		EffectiveFrom:  &from,
		EffectiveUntil: &until,
	})
}

// DeprecateBeliefWith records that newBeliefID supersedes oldBeliefID. The
// edge points from the superseding belief to the superseded one at full
// strength. The old belief stays active; deprecation is a graph property,
// not a flag on the belief row.
func (s *RelationshipService) DeprecateBeliefWith(ctx context.Context, agentID, oldBeliefID, newBeliefID uuid.UUID, reason string) (*domain.BeliefRelationship, error) {
	return s.CreateRelationship(ctx, CreateRelationshipInput{
		AgentID:        agentID,
		SourceBeliefID: newBeliefID,
		TargetBeliefID: oldBeliefID,
		Type:           domain.RelationSupersedes,
		Strength:       DeprecationStrength,
		Reason:         reason,
	})
}

// UpdateRelationshipInput is the mutable subset of an edge. Endpoints and
// type are immutable after creation; delete and recreate to change them.
type UpdateRelationshipInput struct {
	Strength       *float32
	Reason         *string
	Priority       *int
	Metadata       map[string]any
	EffectiveFrom  *time.Time
	EffectiveUntil *time.Time
}

func (s *RelationshipService) UpdateRelationship(ctx context.Context, agentID, id uuid.UUID, in UpdateRelationshipInput) (*domain.BeliefRelationship, error) {
	rel, err := s.relationships.GetByID(ctx, id, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRelationshipNotFound
		}
		return nil, err
	}

	if in.Strength != nil {
		if *in.Strength < 0 || *in.Strength > 1 {
			return nil, ErrStrengthOutOfRange
		}
		rel.Strength = *in.Strength
	}
	if in.Reason != nil {
		rel.Reason = *in.Reason
	}
	if in.Priority != nil {
		rel.Priority = in.Priority
	}
	if in.Metadata != nil {
		rel.Metadata = in.Metadata
	}
	if in.EffectiveFrom != nil {
		rel.EffectiveFrom = in.EffectiveFrom
	}
	if in.EffectiveUntil != nil {
		rel.EffectiveUntil = in.EffectiveUntil
	}
	if rel.EffectiveFrom != nil && rel.EffectiveUntil != nil && !rel.EffectiveFrom.Before(*rel.EffectiveUntil) {
		return nil, ErrInvalidTemporalWindow
	}

	if err := s.relationships.Update(ctx, rel); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRelationshipNotFound
		}
		return nil, err
	}
	return rel, nil
}

// Deactivate soft-deletes an edge. The returned bool reports whether the edge
// existed in the agent's partition.
func (s *RelationshipService) Deactivate(ctx context.Context, agentID, id uuid.UUID) (bool, error) {
	return s.relationships.SetActive(ctx, id, agentID, false)
}

// Reactivate restores a soft-deleted edge.
func (s *RelationshipService) Reactivate(ctx context.Context, agentID, id uuid.UUID) (bool, error) {
	return s.relationships.SetActive(ctx, id, agentID, true)
}

func (s *RelationshipService) Delete(ctx context.Context, agentID, id uuid.UUID) error {
	err := s.relationships.Delete(ctx, id, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrRelationshipNotFound
	}
	return err
}

func (s *RelationshipService) GetByID(ctx context.Context, agentID, id uuid.UUID) (*domain.BeliefRelationship, error) {
	rel, err := s.relationships.GetByID(ctx, id, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRelationshipNotFound
	}
	return rel, err
}

// BulkResult reports the outcome of a single item in a bulk create.
type BulkResult struct {
	Relationship *domain.BeliefRelationship `json:"relationship,omitempty"`
	Error        string                     `json:"error,omitempty"`
}

// CreateBulk creates edges one at a time. A failing item records its error
// and does not stop the remaining items; there is no all-or-nothing
// semantics here.
func (s *RelationshipService) CreateBulk(ctx context.Context, inputs []CreateRelationshipInput) []BulkResult {
	results := make([]BulkResult, 0, len(inputs))
	for _, in := range inputs {
		rel, err := s.CreateRelationship(ctx, in)
		if err != nil {
			results = append(results, BulkResult{Error: err.Error()})
			continue
		}
		results = append(results, BulkResult{Relationship: rel})
	}
	return results
}

func (s *RelationshipService) ListByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool, limit, offset int) ([]domain.BeliefRelationship, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.relationships.GetByAgent(ctx, agentID, includeInactive, limit, offset)
}

func (s *RelationshipService) ListForBelief(ctx context.Context, agentID, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	return s.relationships.GetForBelief(ctx, agentID, beliefID)
}

func (s *RelationshipService) ListByType(ctx context.Context, agentID uuid.UUID, relType domain.RelationshipType, limit int) ([]domain.BeliefRelationship, error) {
	if !domain.ValidRelationshipType(string(relType)) {
		return nil, ErrInvalidRelationType
	}
	return s.relationships.GetByType(ctx, agentID, relType, limit)
}

func (s *RelationshipService) ListBetween(ctx context.Context, agentID, sourceID, targetID uuid.UUID) ([]domain.BeliefRelationship, error) {
	return s.relationships.GetBetween(ctx, agentID, sourceID, targetID)
}

// FindDeprecatedBeliefs returns beliefs that are the target of at least one
// active supersession edge.
func (s *RelationshipService) FindDeprecatedBeliefs(ctx context.Context, agentID uuid.UUID, limit int) ([]domain.Belief, error) {
	ids, err := s.relationships.DeprecatedBeliefIDs(ctx, agentID, limit)
	if err != nil {
		return nil, err
	}
	byID, err := s.beliefs.GetByIDs(ctx, ids, agentID)
	if err != nil {
		return nil, err
	}
	beliefs := make([]domain.Belief, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			beliefs = append(beliefs, b)
		}
	}
	return beliefs, nil
}

// FindSupersedingBeliefs returns the beliefs that directly supersede the
// given belief, via any currently effective deprecating edge.
func (s *RelationshipService) FindSupersedingBeliefs(ctx context.Context, agentID, beliefID uuid.UUID) ([]domain.Belief, error) {
	edges, err := s.relationships.GetByTarget(ctx, agentID, beliefID, domain.DeprecatingTypes(), true)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var ids []uuid.UUID
	for i := range edges {
		if edges[i].IsCurrentlyEffective(now) {
			ids = append(ids, edges[i].SourceBeliefID)
		}
	}
	byID, err := s.beliefs.GetByIDs(ctx, ids, agentID)
	if err != nil {
		return nil, err
	}
	beliefs := make([]domain.Belief, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			beliefs = append(beliefs, b)
		}
	}
	return beliefs, nil
}

// CleanupKnowledgeGraph permanently removes inactive edges older than the
// cutoff. Active edges are never touched.
func (s *RelationshipService) CleanupKnowledgeGraph(ctx context.Context, agentID uuid.UUID, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	removed, err := s.relationships.DeleteInactiveOlderThan(ctx, agentID, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("knowledge graph cleanup",
			zap.String("agent_id", agentID.String()),
			zap.Int64("removed", removed),
		)
	}
	return removed, nil
}

func (s *RelationshipService) Health(ctx context.Context) error {
	return s.relationships.Ping(ctx)
}

func (s *RelationshipService) validateInput(ctx context.Context, in CreateRelationshipInput) error {
	if !domain.ValidRelationshipType(string(in.Type)) {
		return ErrInvalidRelationType
	}
	if in.SourceBeliefID == in.TargetBeliefID {
		return ErrSelfReference
	}
	if in.Strength < 0 || in.Strength > 1 {
		return ErrStrengthOutOfRange
	}
	if in.EffectiveFrom != nil && in.EffectiveUntil != nil && !in.EffectiveFrom.Before(*in.EffectiveUntil) {
		return ErrInvalidTemporalWindow
	}

	// Both endpoints must exist in the caller's partition before an edge can
	// reference them.
	for _, id := range []uuid.UUID{in.SourceBeliefID, in.TargetBeliefID} {
		exists, err := s.beliefs.Exists(ctx, id, in.AgentID)
		if err != nil {
			return fmt.Errorf("check belief %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrBeliefNotFound, id)
		}
	}
	return nil
}
