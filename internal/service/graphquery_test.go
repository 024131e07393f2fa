package service

import (
	"context"
	"testing"
	"time"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type graphFixture struct {
	svc       *GraphQueryService
	beliefs   *mockBeliefStore
	rels      *mockRelationshipStore
	agentID   uuid.UUID
	beliefIDs []uuid.UUID
}

func newGraphFixture(t *testing.T, beliefCount int) *graphFixture {
	t.Helper()
	beliefStore := newMockBeliefStore()
	relStore := newMockRelationshipStore()

	f := &graphFixture{
		svc:     NewGraphQueryService(beliefStore, relStore, zap.NewNop()),
		beliefs: beliefStore,
		rels:    relStore,
		agentID: uuid.New(),
	}
	for i := 0; i < beliefCount; i++ {
		b := &domain.Belief{AgentID: f.agentID, Statement: "belief", Confidence: 0.8}
		require.NoError(t, beliefStore.Create(context.Background(), b))
		f.beliefIDs = append(f.beliefIDs, b.ID)
	}
	return f
}

func (f *graphFixture) edge(t *testing.T, from, to int, relType domain.RelationshipType, strength float32) *domain.BeliefRelationship {
	t.Helper()
	rel := &domain.BeliefRelationship{
		AgentID:        f.agentID,
		SourceBeliefID: f.beliefIDs[from],
		TargetBeliefID: f.beliefIDs[to],
		Type:           relType,
		Strength:       strength,
	}
	require.NoError(t, f.rels.Create(context.Background(), rel))
	return rel
}

func TestReachableBeliefIDs(t *testing.T) {
	f := newGraphFixture(t, 4)
	f.edge(t, 0, 1, domain.RelationSupports, 0.8)
	f.edge(t, 1, 2, domain.RelationSupports, 0.8)
	f.edge(t, 3, 0, domain.RelationSupports, 0.8) // incoming, not followed

	ids, err := f.svc.ReachableBeliefIDs(context.Background(), f.agentID, f.beliefIDs[0], 5, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.beliefIDs[1], f.beliefIDs[2]}, ids)
}

func TestReachableBeliefIDsRespectsDepth(t *testing.T) {
	f := newGraphFixture(t, 3)
	f.edge(t, 0, 1, domain.RelationSupports, 0.8)
	f.edge(t, 1, 2, domain.RelationSupports, 0.8)

	ids, err := f.svc.ReachableBeliefIDs(context.Background(), f.agentID, f.beliefIDs[0], 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.beliefIDs[1]}, ids)
}

func TestReachableBeliefIDsFiltersByType(t *testing.T) {
	f := newGraphFixture(t, 3)
	f.edge(t, 0, 1, domain.RelationSupports, 0.8)
	f.edge(t, 0, 2, domain.RelationContradicts, 0.8)

	ids, err := f.svc.ReachableBeliefIDs(context.Background(), f.agentID, f.beliefIDs[0], 5,
		[]domain.RelationshipType{domain.RelationSupports})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.beliefIDs[1]}, ids)
}

func TestReachableBeliefIDsHandlesCycles(t *testing.T) {
	f := newGraphFixture(t, 3)
	f.edge(t, 0, 1, domain.RelationSupports, 0.8)
	f.edge(t, 1, 2, domain.RelationSupports, 0.8)
	f.edge(t, 2, 0, domain.RelationSupports, 0.8)

	ids, err := f.svc.ReachableBeliefIDs(context.Background(), f.agentID, f.beliefIDs[0], 10, nil)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestShortestPathSameBeliefIsEmpty(t *testing.T) {
	f := newGraphFixture(t, 1)

	path, err := f.svc.ShortestPathIDs(context.Background(), f.agentID, f.beliefIDs[0], f.beliefIDs[0])
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestShortestPathUnreachableIsEmpty(t *testing.T) {
	f := newGraphFixture(t, 2)

	path, err := f.svc.ShortestPathIDs(context.Background(), f.agentID, f.beliefIDs[0], f.beliefIDs[1])
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestShortestPathReturnsEdgeSequence(t *testing.T) {
	f := newGraphFixture(t, 3)
	e1 := f.edge(t, 0, 1, domain.RelationSupports, 0.8)
	e2 := f.edge(t, 1, 2, domain.RelationSupports, 0.8)

	path, err := f.svc.ShortestPathIDs(context.Background(), f.agentID, f.beliefIDs[0], f.beliefIDs[2])
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e1.ID, e2.ID}, path)
}

func TestShortestPathPrefersFewerHops(t *testing.T) {
	f := newGraphFixture(t, 4)
	f.edge(t, 0, 1, domain.RelationSupports, 1.0)
	f.edge(t, 1, 3, domain.RelationSupports, 1.0)
	direct := f.edge(t, 0, 3, domain.RelationSupports, 0.1)

	path, err := f.svc.ShortestPathIDs(context.Background(), f.agentID, f.beliefIDs[0], f.beliefIDs[3])
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{direct.ID}, path)
}

func TestShortestPathTieBreaksOnWeakestEdge(t *testing.T) {
	f := newGraphFixture(t, 4)
	// Two 2-hop routes; the one through belief 2 has the stronger weakest edge.
	f.edge(t, 0, 1, domain.RelationSupports, 0.9)
	f.edge(t, 1, 3, domain.RelationSupports, 0.2)
	strongA := f.edge(t, 0, 2, domain.RelationSupports, 0.8)
	strongB := f.edge(t, 2, 3, domain.RelationSupports, 0.7)

	path, err := f.svc.ShortestPathIDs(context.Background(), f.agentID, f.beliefIDs[0], f.beliefIDs[3])
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{strongA.ID, strongB.ID}, path)
}

func TestShortestPathIgnoresExpiredEdges(t *testing.T) {
	f := newGraphFixture(t, 2)
	rel := f.edge(t, 0, 1, domain.RelationSupports, 0.9)

	past := time.Now().Add(-time.Hour)
	f.rels.rels[rel.ID].EffectiveUntil = &past

	path, err := f.svc.ShortestPathIDs(context.Background(), f.agentID, f.beliefIDs[0], f.beliefIDs[1])
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBeliefClusters(t *testing.T) {
	f := newGraphFixture(t, 6)
	// Cluster one: 0-1-2. Cluster two: 3-4. Belief 5 is isolated.
	f.edge(t, 0, 1, domain.RelationRelatesTo, 0.9)
	f.edge(t, 1, 2, domain.RelationRelatesTo, 0.8)
	f.edge(t, 3, 4, domain.RelationRelatesTo, 0.7)

	clusters, err := f.svc.BeliefClusterIDs(context.Background(), f.agentID, 0.5, 2)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 3)
	assert.Len(t, clusters[1], 2)
}

func TestBeliefClustersFiltersWeakEdges(t *testing.T) {
	f := newGraphFixture(t, 3)
	f.edge(t, 0, 1, domain.RelationRelatesTo, 0.9)
	f.edge(t, 1, 2, domain.RelationRelatesTo, 0.2) // below threshold

	clusters, err := f.svc.BeliefClusterIDs(context.Background(), f.agentID, 0.5, 2)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []uuid.UUID{f.beliefIDs[0], f.beliefIDs[1]}, clusters[0])
}

func TestDeprecationChain(t *testing.T) {
	f := newGraphFixture(t, 3)
	// belief 0 superseded by 1, which is superseded by 2.
	f.edge(t, 1, 0, domain.RelationSupersedes, 1.0)
	f.edge(t, 2, 1, domain.RelationSupersedes, 1.0)

	chain, err := f.svc.DeprecationChainIDs(context.Background(), f.agentID, f.beliefIDs[0])
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.beliefIDs[0], f.beliefIDs[1], f.beliefIDs[2]}, chain)
}

func TestDeprecationChainSingleton(t *testing.T) {
	f := newGraphFixture(t, 1)

	chain, err := f.svc.DeprecationChainIDs(context.Background(), f.agentID, f.beliefIDs[0])
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.beliefIDs[0]}, chain)
}

func TestDeprecationChainCycleFails(t *testing.T) {
	f := newGraphFixture(t, 2)
	f.edge(t, 1, 0, domain.RelationSupersedes, 1.0)
	f.edge(t, 0, 1, domain.RelationSupersedes, 1.0)

	_, err := f.svc.DeprecationChainIDs(context.Background(), f.agentID, f.beliefIDs[0])
	assert.ErrorIs(t, err, ErrGraphInconsistency)
}

func TestIsBeliefDeprecated(t *testing.T) {
	f := newGraphFixture(t, 2)
	f.edge(t, 1, 0, domain.RelationUpdates, 1.0)

	deprecated, err := f.svc.IsBeliefDeprecated(context.Background(), f.agentID, f.beliefIDs[0])
	require.NoError(t, err)
	assert.True(t, deprecated)

	deprecated, err = f.svc.IsBeliefDeprecated(context.Background(), f.agentID, f.beliefIDs[1])
	require.NoError(t, err)
	assert.False(t, deprecated)
}

func TestAreDirectlyConnected(t *testing.T) {
	f := newGraphFixture(t, 3)
	f.edge(t, 0, 1, domain.RelationSupports, 0.5)

	connected, err := f.svc.AreDirectlyConnected(context.Background(), f.agentID, f.beliefIDs[0], f.beliefIDs[1])
	require.NoError(t, err)
	assert.True(t, connected)

	connected, err = f.svc.AreDirectlyConnected(context.Background(), f.agentID, f.beliefIDs[0], f.beliefIDs[2])
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestConnectedBeliefIDsBothDirections(t *testing.T) {
	f := newGraphFixture(t, 3)
	f.edge(t, 0, 1, domain.RelationSupports, 0.5)
	f.edge(t, 2, 0, domain.RelationSupports, 0.5)

	ids, err := f.svc.ConnectedBeliefIDs(context.Background(), f.agentID, f.beliefIDs[0])
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.beliefIDs[1], f.beliefIDs[2]}, ids)
}

func TestValidateGraphStructure(t *testing.T) {
	f := newGraphFixture(t, 2)
	f.rels.orphaned = []uuid.UUID{uuid.New()}

	rel := f.edge(t, 0, 1, domain.RelationSupports, 0.5)
	from := time.Now()
	until := from.Add(-time.Hour)
	f.rels.rels[rel.ID].EffectiveFrom = &from
	f.rels.rels[rel.ID].EffectiveUntil = &until

	issues, err := f.svc.ValidateGraphStructure(context.Background(), f.agentID)
	require.NoError(t, err)
	assert.Len(t, issues, 2)
}

func TestValidateGraphStructureCleanGraph(t *testing.T) {
	f := newGraphFixture(t, 2)
	f.edge(t, 0, 1, domain.RelationSupports, 0.5)

	issues, err := f.svc.ValidateGraphStructure(context.Background(), f.agentID)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestStatistics(t *testing.T) {
	f := newGraphFixture(t, 3)
	f.edge(t, 0, 1, domain.RelationSupports, 0.8)
	f.edge(t, 1, 2, domain.RelationSupersedes, 1.0)

	stats, err := f.svc.Statistics(context.Background(), f.agentID)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.BeliefCount)
	assert.Equal(t, int64(3), stats.ActiveBeliefCount)
	assert.Equal(t, int64(2), stats.RelationshipCount)
	assert.Equal(t, int64(1), stats.DeprecatedBeliefCount)
	assert.Equal(t, int64(1), stats.TypeDistribution[domain.RelationSupports])
	assert.Equal(t, int64(1), stats.TypeDistribution[domain.RelationSupersedes])
	assert.InDelta(t, 0.9, stats.AverageStrength, 0.001)
}

func TestStatisticsCountsAllDeprecatedBeliefs(t *testing.T) {
	f := newGraphFixture(t, 121)

	// One superseding belief deprecating 120 others, well past the page
	// size used by id listings.
	for i := 1; i <= 120; i++ {
		f.edge(t, 0, i, domain.RelationSupersedes, 1.0)
	}

	stats, err := f.svc.Statistics(context.Background(), f.agentID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), stats.DeprecatedBeliefCount)

	// The id listing itself stays bounded.
	ids, err := f.rels.DeprecatedBeliefIDs(context.Background(), f.agentID, 0)
	require.NoError(t, err)
	assert.Len(t, ids, 100)
}

func TestSnapshotExcludesDanglingEdges(t *testing.T) {
	f := newGraphFixture(t, 2)
	f.edge(t, 0, 1, domain.RelationSupports, 0.5)

	// An edge whose endpoint belongs to a belief missing from the snapshot.
	outside := &domain.BeliefRelationship{
		AgentID:        f.agentID,
		SourceBeliefID: f.beliefIDs[0],
		TargetBeliefID: uuid.New(),
		Type:           domain.RelationSupports,
		Strength:       0.5,
	}
	require.NoError(t, f.rels.Create(context.Background(), outside))

	snapshot, err := f.svc.Snapshot(context.Background(), f.agentID, 0)
	require.NoError(t, err)

	assert.Len(t, snapshot.Beliefs, 2)
	assert.Len(t, snapshot.Relationships, 1)
	assert.Equal(t, f.agentID, snapshot.AgentID)
	assert.False(t, snapshot.GeneratedAt.IsZero())
}

func TestContradictoryPairs(t *testing.T) {
	f := newGraphFixture(t, 3)
	f.edge(t, 0, 1, domain.RelationContradicts, 1.0)
	f.edge(t, 1, 2, domain.RelationSupports, 0.5)

	pairs, err := f.svc.ContradictoryPairs(context.Background(), f.agentID, 10)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, f.beliefIDs[0], pairs[0].BeliefID)
	assert.Equal(t, f.beliefIDs[1], pairs[0].OtherBeliefID)
}
