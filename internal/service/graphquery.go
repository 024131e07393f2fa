package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTraversalDepth bounds BFS when the caller does not say otherwise.
	DefaultTraversalDepth = 5
	// MaxTraversalDepth is the hard ceiling for any traversal request.
	MaxTraversalDepth = 20
	// MaxDeprecationChainLength bounds chain walks independently of cycle
	// detection, so a pathological graph cannot produce unbounded output.
	MaxDeprecationChainLength = 100

	clusterPageSize = 500
)

// GraphQueryService answers traversal and analysis queries against an
// agent's knowledge graph. The graph is never materialized up front: every
// query loads only the edges its own traversal touches.
type GraphQueryService struct {
	beliefs       domain.BeliefStore
	relationships domain.RelationshipStore
	logger        *zap.Logger
}

func NewGraphQueryService(beliefs domain.BeliefStore, relationships domain.RelationshipStore, logger *zap.Logger) *GraphQueryService {
	return &GraphQueryService{
		beliefs:       beliefs,
		relationships: relationships,
		logger:        logger,
	}
}

// ReachableBeliefIDs walks outgoing edges breadth-first from startID up to
// maxDepth hops, following only active, currently effective edges of the
// given types (all types when empty). The start belief is not included.
func (s *GraphQueryService) ReachableBeliefIDs(ctx context.Context, agentID, startID uuid.UUID, maxDepth int, types []domain.RelationshipType) ([]uuid.UUID, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultTraversalDepth
	}
	if maxDepth > MaxTraversalDepth {
		maxDepth = MaxTraversalDepth
	}

	now := time.Now()
	visited := map[uuid.UUID]bool{startID: true}
	frontier := []uuid.UUID{startID}
	var reachable []uuid.UUID

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []uuid.UUID
		for _, id := range frontier {
			edges, err := s.relationships.GetBySource(ctx, agentID, id, types, true)
			if err != nil {
				return nil, fmt.Errorf("expand belief %s: %w", id, err)
			}
			for i := range edges {
				if !edges[i].IsCurrentlyEffective(now) {
					continue
				}
				target := edges[i].TargetBeliefID
				if visited[target] {
					continue
				}
				visited[target] = true
				reachable = append(reachable, target)
				next = append(next, target)
			}
		}
		frontier = next
	}
	return reachable, nil
}

// ShortestPathIDs returns the relationship ids along a shortest path from
// fromID to toID over active, currently effective edges. Among equally short
// paths the one whose weakest edge is strongest wins. The result is empty
// when the endpoints coincide or no path exists.
func (s *GraphQueryService) ShortestPathIDs(ctx context.Context, agentID, fromID, toID uuid.UUID) ([]uuid.UUID, error) {
	if fromID == toID {
		return nil, nil
	}

	type pathState struct {
		prev        uuid.UUID
		edgeID      uuid.UUID
		minStrength float32
	}

	now := time.Now()
	states := map[uuid.UUID]pathState{fromID: {minStrength: 1.0}}
	frontier := []uuid.UUID{fromID}

	for depth := 0; depth < MaxTraversalDepth && len(frontier) > 0; depth++ {
		// Candidate states discovered this layer. A node reached by several
		// same-length paths keeps the one with the strongest weakest edge.
		layer := make(map[uuid.UUID]pathState)

		for _, id := range frontier {
			edges, err := s.relationships.GetBySource(ctx, agentID, id, nil, true)
			if err != nil {
				return nil, fmt.Errorf("expand belief %s: %w", id, err)
			}
			for i := range edges {
				if !edges[i].IsCurrentlyEffective(now) {
					continue
				}
				target := edges[i].TargetBeliefID
				if _, seen := states[target]; seen {
					continue
				}
				minStrength := states[id].minStrength
				if edges[i].Strength < minStrength {
					minStrength = edges[i].Strength
				}
				candidate := pathState{prev: id, edgeID: edges[i].ID, minStrength: minStrength}
				if best, ok := layer[target]; !ok || candidate.minStrength > best.minStrength {
					layer[target] = candidate
				}
			}
		}

		if len(layer) == 0 {
			return nil, nil
		}

		frontier = frontier[:0]
		for id, st := range layer {
			states[id] = st
			frontier = append(frontier, id)
		}
		sort.Slice(frontier, func(i, j int) bool {
			return frontier[i].String() < frontier[j].String()
		})

		if _, found := states[toID]; found {
			break
		}
	}

	if _, found := states[toID]; !found {
		return nil, nil
	}

	var path []uuid.UUID
	for at := toID; at != fromID; at = states[at].prev {
		path = append(path, states[at].edgeID)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// AreDirectlyConnected reports whether any active edge exists between the
// two beliefs in either direction.
func (s *GraphQueryService) AreDirectlyConnected(ctx context.Context, agentID, a, b uuid.UUID) (bool, error) {
	edges, err := s.relationships.GetBetween(ctx, agentID, a, b)
	if err != nil {
		return false, err
	}
	for i := range edges {
		if edges[i].Active {
			return true, nil
		}
	}
	return false, nil
}

// ConnectedBeliefIDs returns the immediate active neighbors of a belief in
// both edge directions, deduplicated.
func (s *GraphQueryService) ConnectedBeliefIDs(ctx context.Context, agentID, beliefID uuid.UUID) ([]uuid.UUID, error) {
	outgoing, err := s.relationships.GetBySource(ctx, agentID, beliefID, nil, true)
	if err != nil {
		return nil, err
	}
	incoming, err := s.relationships.GetByTarget(ctx, agentID, beliefID, nil, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	var neighbors []uuid.UUID
	for i := range outgoing {
		if id := outgoing[i].TargetBeliefID; !seen[id] {
			seen[id] = true
			neighbors = append(neighbors, id)
		}
	}
	for i := range incoming {
		if id := incoming[i].SourceBeliefID; !seen[id] {
			seen[id] = true
			neighbors = append(neighbors, id)
		}
	}
	return neighbors, nil
}

// BeliefClusterIDs groups beliefs into connected components over active
// edges with strength >= minStrength, using union-find over paged edge
// reads. Components smaller than minClusterSize are dropped.
func (s *GraphQueryService) BeliefClusterIDs(ctx context.Context, agentID uuid.UUID, minStrength float32, minClusterSize int) ([][]uuid.UUID, error) {
	if minClusterSize < 2 {
		minClusterSize = 2
	}

	parent := make(map[uuid.UUID]uuid.UUID)
	var find func(uuid.UUID) uuid.UUID
	find = func(id uuid.UUID) uuid.UUID {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b uuid.UUID) {
		if _, ok := parent[a]; !ok {
			parent[a] = a
		}
		if _, ok := parent[b]; !ok {
			parent[b] = b
		}
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for offset := 0; ; offset += clusterPageSize {
		edges, err := s.relationships.GetByStrengthAbove(ctx, agentID, minStrength, clusterPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("page edges at offset %d: %w", offset, err)
		}
		for i := range edges {
			union(edges[i].SourceBeliefID, edges[i].TargetBeliefID)
		}
		if len(edges) < clusterPageSize {
			break
		}
	}

	members := make(map[uuid.UUID][]uuid.UUID)
	for id := range parent {
		root := find(id)
		members[root] = append(members[root], id)
	}

	var clusters [][]uuid.UUID
	for _, cluster := range members {
		if len(cluster) < minClusterSize {
			continue
		}
		sort.Slice(cluster, func(i, j int) bool { return cluster[i].String() < cluster[j].String() })
		clusters = append(clusters, cluster)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return clusters[i][0].String() < clusters[j][0].String()
	})
	return clusters, nil
}

// DeprecationChainIDs walks the supersession history starting at beliefID,
// following active deprecating edges from each belief to its superseder.
// The result starts with beliefID itself. A cycle in the chain is a
// structural defect and fails with ErrGraphInconsistency rather than
// looping.
func (s *GraphQueryService) DeprecationChainIDs(ctx context.Context, agentID, beliefID uuid.UUID) ([]uuid.UUID, error) {
	chain := []uuid.UUID{beliefID}
	seen := map[uuid.UUID]bool{beliefID: true}
	now := time.Now()
	current := beliefID

	for len(chain) <= MaxDeprecationChainLength {
		edges, err := s.relationships.GetByTarget(ctx, agentID, current, domain.DeprecatingTypes(), true)
		if err != nil {
			return nil, fmt.Errorf("fetch supersession of %s: %w", current, err)
		}

		// Multiple supersession edges on one belief: the strongest edge
		// defines the canonical chain.
		next := uuid.Nil
		var best float32 = -1
		for i := range edges {
			if !edges[i].IsCurrentlyEffective(now) {
				continue
			}
			if edges[i].Strength > best {
				best = edges[i].Strength
				next = edges[i].SourceBeliefID
			}
		}
		if next == uuid.Nil {
			return chain, nil
		}
		if seen[next] {
			return nil, fmt.Errorf("%w: supersession cycle at belief %s", ErrGraphInconsistency, next)
		}
		seen[next] = true
		chain = append(chain, next)
		current = next
	}
	return nil, fmt.Errorf("%w: supersession chain exceeds %d links", ErrGraphInconsistency, MaxDeprecationChainLength)
}

// IsBeliefDeprecated reports whether the belief has at least one active,
// currently effective supersession edge pointing at it.
func (s *GraphQueryService) IsBeliefDeprecated(ctx context.Context, agentID, beliefID uuid.UUID) (bool, error) {
	ids, err := s.SupersedingBeliefIDs(ctx, agentID, beliefID)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// SupersedingBeliefIDs returns the direct superseders of a belief.
func (s *GraphQueryService) SupersedingBeliefIDs(ctx context.Context, agentID, beliefID uuid.UUID) ([]uuid.UUID, error) {
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
	return ids, nil
}

// DeprecatedBeliefIDs returns all beliefs in the agent's partition that are
// targets of active supersession edges.
func (s *GraphQueryService) DeprecatedBeliefIDs(ctx context.Context, agentID uuid.UUID, limit int) ([]uuid.UUID, error) {
	return s.relationships.DeprecatedBeliefIDs(ctx, agentID, limit)
}

// ContradictoryPair is an edge asserting contradiction between two beliefs.
type ContradictoryPair struct {
	RelationshipID uuid.UUID               `json:"relationship_id"`
	BeliefID       uuid.UUID               `json:"belief_id"`
	OtherBeliefID  uuid.UUID               `json:"other_belief_id"`
	Type           domain.RelationshipType `json:"relationship_type"`
	Strength       float32                 `json:"strength"`
}

// ContradictoryPairs lists active contradiction edges in the agent's graph.
func (s *GraphQueryService) ContradictoryPairs(ctx context.Context, agentID uuid.UUID, limit int) ([]ContradictoryPair, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var pairs []ContradictoryPair
	for relType := range domain.ConflictingRelations {
		edges, err := s.relationships.GetByType(ctx, agentID, relType, limit)
		if err != nil {
			return nil, err
		}
		for i := range edges {
			if !edges[i].Active {
				continue
			}
			pairs = append(pairs, ContradictoryPair{
				RelationshipID: edges[i].ID,
				BeliefID:       edges[i].SourceBeliefID,
				OtherBeliefID:  edges[i].TargetBeliefID,
				Type:           edges[i].Type,
				Strength:       edges[i].Strength,
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].RelationshipID.String() < pairs[j].RelationshipID.String()
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs, nil
}

// ValidateGraphStructure scans for structural defects and returns one
// human-readable issue per finding. An empty result means the graph passed.
func (s *GraphQueryService) ValidateGraphStructure(ctx context.Context, agentID uuid.UUID) ([]string, error) {
	var issues []string

	orphaned, err := s.relationships.FindOrphaned(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("orphan scan: %w", err)
	}
	for _, id := range orphaned {
		issues = append(issues, fmt.Sprintf("relationship %s references a missing belief", id))
	}

	selfRefs, err := s.relationships.FindSelfReferencing(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("self-reference scan: %w", err)
	}
	for _, id := range selfRefs {
		issues = append(issues, fmt.Sprintf("relationship %s is a self-loop", id))
	}

	invalid, err := s.relationships.FindTemporallyInvalid(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("temporal scan: %w", err)
	}
	for _, id := range invalid {
		issues = append(issues, fmt.Sprintf("relationship %s has effective_from at or after effective_until", id))
	}

	if len(issues) > 0 {
		s.logger.Warn("graph validation found issues",
			zap.String("agent_id", agentID.String()),
			zap.Int("issue_count", len(issues)),
		)
	}
	return issues, nil
}

// Statistics assembles graph-level counts from backend aggregations.
func (s *GraphQueryService) Statistics(ctx context.Context, agentID uuid.UUID) (*domain.GraphStatistics, error) {
	stats := &domain.GraphStatistics{AgentID: agentID}

	var err error
	if stats.BeliefCount, err = s.beliefs.CountByAgent(ctx, agentID, true); err != nil {
		return nil, err
	}
	if stats.ActiveBeliefCount, err = s.beliefs.CountByAgent(ctx, agentID, false); err != nil {
		return nil, err
	}
	if stats.RelationshipCount, err = s.relationships.CountByAgent(ctx, agentID, true); err != nil {
		return nil, err
	}
	if stats.ActiveRelationshipCount, err = s.relationships.CountByAgent(ctx, agentID, false); err != nil {
		return nil, err
	}
	if stats.TypeDistribution, err = s.relationships.TypeDistribution(ctx, agentID); err != nil {
		return nil, err
	}
	if stats.AverageStrength, err = s.relationships.AverageStrength(ctx, agentID, false); err != nil {
		return nil, err
	}

	if stats.DeprecatedBeliefCount, err = s.relationships.CountDeprecatedBeliefs(ctx, agentID); err != nil {
		return nil, err
	}
	return stats, nil
}

// Snapshot materializes a bounded view of the agent's graph for export. The
// belief count is capped at domain.SnapshotHardCap regardless of the
// requested limit.
func (s *GraphQueryService) Snapshot(ctx context.Context, agentID uuid.UUID, limit int) (*domain.KnowledgeGraphSnapshot, error) {
	if limit <= 0 || limit > domain.SnapshotHardCap {
		limit = domain.SnapshotHardCap
	}

	beliefs, err := s.beliefs.GetByAgent(ctx, agentID, false, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("load beliefs: %w", err)
	}

	snapshot := &domain.KnowledgeGraphSnapshot{
		AgentID:     agentID,
		Beliefs:     make(map[uuid.UUID]domain.Belief, len(beliefs)),
		GeneratedAt: time.Now().UTC(),
	}
	included := make(map[uuid.UUID]bool, len(beliefs))
	for _, b := range beliefs {
		snapshot.Beliefs[b.ID] = b
		included[b.ID] = true
	}

	// Only edges with both endpoints inside the snapshot are exported, so
	// the view is self-contained.
	for offset := 0; ; offset += clusterPageSize {
		edges, err := s.relationships.GetByAgent(ctx, agentID, false, clusterPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("load relationships: %w", err)
		}
		for i := range edges {
			if included[edges[i].SourceBeliefID] && included[edges[i].TargetBeliefID] {
				snapshot.Relationships = append(snapshot.Relationships, edges[i])
			}
		}
		if len(edges) < clusterPageSize {
			break
		}
	}
	return snapshot, nil
}

func (s *GraphQueryService) Health(ctx context.Context) error {
	if err := s.beliefs.Ping(ctx); err != nil {
		return err
	}
	return s.relationships.Ping(ctx)
}
