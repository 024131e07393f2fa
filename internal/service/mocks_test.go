package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/credo-ai/credo/internal/store"
	"github.com/google/uuid"
)

// mockBeliefStore implements domain.BeliefStore in memory with the same
// agent scoping and version compare-and-set semantics as the real store.
type mockBeliefStore struct {
	beliefs    map[uuid.UUID]*domain.Belief
	embeddings map[uuid.UUID][]float32
	vectors    bool
}

func newMockBeliefStore() *mockBeliefStore {
	return &mockBeliefStore{
		beliefs:    make(map[uuid.UUID]*domain.Belief),
		embeddings: make(map[uuid.UUID][]float32),
	}
}

func (m *mockBeliefStore) Create(ctx context.Context, b *domain.Belief) error {
	b.ID = uuid.New()
	b.Active = true
	if b.ReinforcementCount == 0 {
		b.ReinforcementCount = 1
	}
	b.CreatedAt = time.Now()
	b.LastUpdated = b.CreatedAt
	b.Version = 1
	copied := *b
	m.beliefs[b.ID] = &copied
	return nil
}

func (m *mockBeliefStore) GetByID(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*domain.Belief, error) {
	b, ok := m.beliefs[id]
	if !ok || b.AgentID != agentID {
		return nil, store.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *mockBeliefStore) GetByIDs(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (map[uuid.UUID]domain.Belief, error) {
	result := make(map[uuid.UUID]domain.Belief)
	for _, id := range ids {
		if b, ok := m.beliefs[id]; ok && b.AgentID == agentID {
			result[id] = *b
		}
	}
	return result, nil
}

func (m *mockBeliefStore) Update(ctx context.Context, b *domain.Belief) error {
	existing, ok := m.beliefs[b.ID]
	if !ok || existing.AgentID != b.AgentID {
		return store.ErrNotFound
	}
	if existing.Version != b.Version {
		return store.ErrVersionConflict
	}
	b.Version++
	b.LastUpdated = time.Now()
	copied := *b
	m.beliefs[b.ID] = &copied
	return nil
}

func (m *mockBeliefStore) Delete(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error {
	b, ok := m.beliefs[id]
	if !ok || b.AgentID != agentID {
		return store.ErrNotFound
	}
	delete(m.beliefs, id)
	return nil
}

func (m *mockBeliefStore) GetByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool, limit, offset int) ([]domain.Belief, error) {
	var result []domain.Belief
	for _, b := range m.beliefs {
		if b.AgentID != agentID {
			continue
		}
		if !includeInactive && !b.Active {
			continue
		}
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	if offset < len(result) {
		result = result[offset:]
	} else {
		result = nil
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockBeliefStore) GetByCategory(ctx context.Context, agentID uuid.UUID, category string, limit int) ([]domain.Belief, error) {
	var result []domain.Belief
	for _, b := range m.beliefs {
		if b.AgentID == agentID && b.Active && b.Category == category {
			result = append(result, *b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Confidence > result[j].Confidence })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockBeliefStore) GetByConfidenceAbove(ctx context.Context, agentID uuid.UUID, threshold float32, limit int) ([]domain.Belief, error) {
	var result []domain.Belief
	for _, b := range m.beliefs {
		if b.AgentID == agentID && b.Active && b.Confidence >= threshold {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *mockBeliefStore) GetByConfidenceBelow(ctx context.Context, agentID uuid.UUID, threshold float32, limit int) ([]domain.Belief, error) {
	var result []domain.Belief
	for _, b := range m.beliefs {
		if b.AgentID == agentID && b.Active && b.Confidence < threshold {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *mockBeliefStore) SearchByStatement(ctx context.Context, agentID uuid.UUID, text string, limit int) ([]domain.Belief, error) {
	var result []domain.Belief
	for _, b := range m.beliefs {
		if b.AgentID == agentID && b.Active && strings.Contains(strings.ToLower(b.Statement), strings.ToLower(text)) {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *mockBeliefStore) CountByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool) (int64, error) {
	var count int64
	for _, b := range m.beliefs {
		if b.AgentID != agentID {
			continue
		}
		if !includeInactive && !b.Active {
			continue
		}
		count++
	}
	return count, nil
}

func (m *mockBeliefStore) Exists(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (bool, error) {
	b, ok := m.beliefs[id]
	return ok && b.AgentID == agentID, nil
}

func (m *mockBeliefStore) FindSimilarByEmbedding(ctx context.Context, agentID uuid.UUID, embedding []float32, threshold float32, limit int) ([]domain.BeliefWithScore, error) {
	return nil, nil
}

func (m *mockBeliefStore) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	if _, ok := m.beliefs[id]; !ok {
		return store.ErrNotFound
	}
	m.embeddings[id] = embedding
	return nil
}

func (m *mockBeliefStore) SupportsVectorSearch(ctx context.Context) bool { return m.vectors }

func (m *mockBeliefStore) Ping(ctx context.Context) error { return nil }

// mockRelationshipStore implements domain.RelationshipStore in memory.
type mockRelationshipStore struct {
	rels     map[uuid.UUID]*domain.BeliefRelationship
	orphaned []uuid.UUID
}

func newMockRelationshipStore() *mockRelationshipStore {
	return &mockRelationshipStore{rels: make(map[uuid.UUID]*domain.BeliefRelationship)}
}

func (m *mockRelationshipStore) Create(ctx context.Context, r *domain.BeliefRelationship) error {
	r.ID = uuid.New()
	r.Active = true
	r.CreatedAt = time.Now()
	r.LastUpdated = r.CreatedAt
	r.Version = 1
	copied := *r
	m.rels[r.ID] = &copied
	return nil
}

func (m *mockRelationshipStore) GetByID(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*domain.BeliefRelationship, error) {
	r, ok := m.rels[id]
	if !ok || r.AgentID != agentID {
		return nil, store.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *mockRelationshipStore) GetByIDs(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (map[uuid.UUID]domain.BeliefRelationship, error) {
	result := make(map[uuid.UUID]domain.BeliefRelationship)
	for _, id := range ids {
		if r, ok := m.rels[id]; ok && r.AgentID == agentID {
			result[id] = *r
		}
	}
	return result, nil
}

func (m *mockRelationshipStore) Update(ctx context.Context, r *domain.BeliefRelationship) error {
	existing, ok := m.rels[r.ID]
	if !ok || existing.AgentID != r.AgentID {
		return store.ErrNotFound
	}
	if existing.Version != r.Version {
		return store.ErrVersionConflict
	}
	r.Version++
	r.LastUpdated = time.Now()
	copied := *r
	m.rels[r.ID] = &copied
	return nil
}

func (m *mockRelationshipStore) Delete(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error {
	r, ok := m.rels[id]
	if !ok || r.AgentID != agentID {
		return store.ErrNotFound
	}
	delete(m.rels, id)
	return nil
}

func (m *mockRelationshipStore) SetActive(ctx context.Context, id uuid.UUID, agentID uuid.UUID, active bool) (bool, error) {
	r, ok := m.rels[id]
	if !ok || r.AgentID != agentID {
		return false, nil
	}
	r.Active = active
	r.LastUpdated = time.Now()
	r.Version++
	return true, nil
}

func (m *mockRelationshipStore) GetByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool, limit, offset int) ([]domain.BeliefRelationship, error) {
	var result []domain.BeliefRelationship
	for _, r := range m.rels {
		if r.AgentID != agentID {
			continue
		}
		if !includeInactive && !r.Active {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	if offset < len(result) {
		result = result[offset:]
	} else {
		result = nil
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockRelationshipStore) GetBySource(ctx context.Context, agentID uuid.UUID, sourceBeliefID uuid.UUID, types []domain.RelationshipType, activeOnly bool) ([]domain.BeliefRelationship, error) {
	return m.byEndpoint(agentID, types, activeOnly, func(r *domain.BeliefRelationship) bool {
		return r.SourceBeliefID == sourceBeliefID
	}), nil
}

func (m *mockRelationshipStore) GetByTarget(ctx context.Context, agentID uuid.UUID, targetBeliefID uuid.UUID, types []domain.RelationshipType, activeOnly bool) ([]domain.BeliefRelationship, error) {
	return m.byEndpoint(agentID, types, activeOnly, func(r *domain.BeliefRelationship) bool {
		return r.TargetBeliefID == targetBeliefID
	}), nil
}

func (m *mockRelationshipStore) byEndpoint(agentID uuid.UUID, types []domain.RelationshipType, activeOnly bool, match func(*domain.BeliefRelationship) bool) []domain.BeliefRelationship {
	var result []domain.BeliefRelationship
	for _, r := range m.rels {
		if r.AgentID != agentID || !match(r) {
			continue
		}
		if activeOnly && !r.Active {
			continue
		}
		if len(types) > 0 && !containsType(types, r.Type) {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result
}

func (m *mockRelationshipStore) GetForBelief(ctx context.Context, agentID uuid.UUID, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	var result []domain.BeliefRelationship
	for _, r := range m.rels {
		if r.AgentID == agentID && (r.SourceBeliefID == beliefID || r.TargetBeliefID == beliefID) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRelationshipStore) GetByType(ctx context.Context, agentID uuid.UUID, relType domain.RelationshipType, limit int) ([]domain.BeliefRelationship, error) {
	var result []domain.BeliefRelationship
	for _, r := range m.rels {
		if r.AgentID == agentID && r.Active && r.Type == relType {
			result = append(result, *r)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockRelationshipStore) GetBetween(ctx context.Context, agentID uuid.UUID, sourceBeliefID, targetBeliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	var result []domain.BeliefRelationship
	for _, r := range m.rels {
		if r.AgentID == agentID && r.SourceBeliefID == sourceBeliefID && r.TargetBeliefID == targetBeliefID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRelationshipStore) GetByStrengthAbove(ctx context.Context, agentID uuid.UUID, threshold float32, limit, offset int) ([]domain.BeliefRelationship, error) {
	var result []domain.BeliefRelationship
	for _, r := range m.rels {
		if r.AgentID == agentID && r.Active && r.Strength >= threshold {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	if offset < len(result) {
		result = result[offset:]
	} else {
		result = nil
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockRelationshipStore) CountByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool) (int64, error) {
	var count int64
	for _, r := range m.rels {
		if r.AgentID != agentID {
			continue
		}
		if !includeInactive && !r.Active {
			continue
		}
		count++
	}
	return count, nil
}

func (m *mockRelationshipStore) TypeDistribution(ctx context.Context, agentID uuid.UUID) (map[domain.RelationshipType]int64, error) {
	dist := make(map[domain.RelationshipType]int64)
	for _, r := range m.rels {
		if r.AgentID == agentID && r.Active {
			dist[r.Type]++
		}
	}
	return dist, nil
}

func (m *mockRelationshipStore) AverageStrength(ctx context.Context, agentID uuid.UUID, includeInactive bool) (float64, error) {
	var sum float64
	var count int64
	for _, r := range m.rels {
		if r.AgentID != agentID {
			continue
		}
		if !includeInactive && !r.Active {
			continue
		}
		sum += float64(r.Strength)
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

func (m *mockRelationshipStore) FindOrphaned(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	return m.orphaned, nil
}

func (m *mockRelationshipStore) FindSelfReferencing(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, r := range m.rels {
		if r.AgentID == agentID && r.SourceBeliefID == r.TargetBeliefID {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (m *mockRelationshipStore) FindTemporallyInvalid(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, r := range m.rels {
		if r.AgentID == agentID && r.EffectiveFrom != nil && r.EffectiveUntil != nil && !r.EffectiveFrom.Before(*r.EffectiveUntil) {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (m *mockRelationshipStore) DeprecatedBeliefIDs(ctx context.Context, agentID uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, r := range m.rels {
		if r.AgentID == agentID && r.Active && domain.DeprecatingRelations[r.Type] && !seen[r.TargetBeliefID] {
			seen[r.TargetBeliefID] = true
			ids = append(ids, r.TargetBeliefID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *mockRelationshipStore) CountDeprecatedBeliefs(ctx context.Context, agentID uuid.UUID) (int64, error) {
	seen := make(map[uuid.UUID]bool)
	for _, r := range m.rels {
		if r.AgentID == agentID && r.Active && domain.DeprecatingRelations[r.Type] {
			seen[r.TargetBeliefID] = true
		}
	}
	return int64(len(seen)), nil
}

func (m *mockRelationshipStore) DeleteInactiveOlderThan(ctx context.Context, agentID uuid.UUID, cutoff time.Time) (int64, error) {
	var removed int64
	for id, r := range m.rels {
		if r.AgentID == agentID && !r.Active && r.LastUpdated.Before(cutoff) {
			delete(m.rels, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockRelationshipStore) Ping(ctx context.Context) error { return nil }

func containsType(types []domain.RelationshipType, t domain.RelationshipType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// mockConflictStore implements domain.ConflictStore in memory.
type mockConflictStore struct {
	conflicts map[uuid.UUID]*domain.BeliefConflict
}

func newMockConflictStore() *mockConflictStore {
	return &mockConflictStore{conflicts: make(map[uuid.UUID]*domain.BeliefConflict)}
}

func (m *mockConflictStore) Create(ctx context.Context, c *domain.BeliefConflict) error {
	c.ID = uuid.New()
	if c.Severity == "" {
		c.Severity = domain.SeverityMedium
	}
	c.DetectedAt = time.Now()
	copied := *c
	m.conflicts[c.ID] = &copied
	return nil
}

func (m *mockConflictStore) GetByID(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*domain.BeliefConflict, error) {
	c, ok := m.conflicts[id]
	if !ok || c.AgentID != agentID {
		return nil, store.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockConflictStore) Update(ctx context.Context, c *domain.BeliefConflict) error {
	existing, ok := m.conflicts[c.ID]
	if !ok || existing.AgentID != c.AgentID {
		return store.ErrNotFound
	}
	copied := *c
	m.conflicts[c.ID] = &copied
	return nil
}

func (m *mockConflictStore) GetUnresolved(ctx context.Context, agentID uuid.UUID, limit int) ([]domain.BeliefConflict, error) {
	var result []domain.BeliefConflict
	for _, c := range m.conflicts {
		if c.AgentID == agentID && !c.Resolved {
			result = append(result, *c)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockConflictStore) GetByBelief(ctx context.Context, agentID uuid.UUID, beliefID uuid.UUID) ([]domain.BeliefConflict, error) {
	var result []domain.BeliefConflict
	for _, c := range m.conflicts {
		if c.AgentID == agentID && (c.BeliefID == beliefID || c.ConflictingBeliefID == beliefID) {
			result = append(result, *c)
		}
	}
	return result, nil
}

// mockMatcher is a fixed-response similarity strategy.
type mockMatcher struct {
	results []domain.BeliefWithScore
	err     error
}

func (m *mockMatcher) Name() string                                   { return "mock" }
func (m *mockMatcher) Score(ctx context.Context, a, b string) float64 { return 0 }
func (m *mockMatcher) SupportsVectorSearch() bool                     { return false }

func (m *mockMatcher) Search(ctx context.Context, agentID uuid.UUID, statement string, threshold float32, limit int) ([]domain.BeliefWithScore, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}
