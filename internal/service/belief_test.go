package service

import (
	"context"
	"errors"
	"testing"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/credo-ai/credo/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func newBeliefService(beliefs *mockBeliefStore, embedder domain.EmbeddingClient) *BeliefService {
	return NewBeliefService(beliefs, embedder, zap.NewNop())
}

func TestCreateBelief(t *testing.T) {
	beliefs := newMockBeliefStore()
	embedder := &stubEmbedder{}
	svc := newBeliefService(beliefs, embedder)
	agentID := uuid.New()

	b, err := svc.Create(context.Background(), CreateBeliefInput{
		AgentID:    agentID,
		Statement:  "  user works remotely  ",
		Confidence: 0.7,
		Category:   "fact",
	})
	require.NoError(t, err)

	assert.Equal(t, "user works remotely", b.Statement)
	assert.True(t, b.Active)
	assert.Equal(t, int64(1), b.Version)
	assert.Equal(t, 1, embedder.calls)
	assert.NotEmpty(t, beliefs.embeddings[b.ID])
}

func TestCreateBeliefRejectsEmptyStatement(t *testing.T) {
	svc := newBeliefService(newMockBeliefStore(), nil)

	_, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: uuid.New(), Statement: "   ", Confidence: 0.5})
	assert.ErrorIs(t, err, ErrEmptyStatement)
}

func TestCreateBeliefRejectsConfidenceOutOfRange(t *testing.T) {
	svc := newBeliefService(newMockBeliefStore(), nil)

	for _, confidence := range []float32{-0.1, 1.5} {
		_, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: uuid.New(), Statement: "x", Confidence: confidence})
		assert.ErrorIs(t, err, ErrInvalidConfidence)
	}
}

func TestCreateBeliefSurvivesEmbeddingFailure(t *testing.T) {
	beliefs := newMockBeliefStore()
	embedder := &stubEmbedder{err: errors.New("embedding provider down")}
	svc := newBeliefService(beliefs, embedder)
	agentID := uuid.New()

	b, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "still created", Confidence: 0.5})
	require.NoError(t, err)

	stored, err := svc.GetByID(context.Background(), agentID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "still created", stored.Statement)
	assert.Empty(t, beliefs.embeddings[b.ID])
}

func TestGetByIDUnknownBelief(t *testing.T) {
	svc := newBeliefService(newMockBeliefStore(), nil)

	_, err := svc.GetByID(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrBeliefNotFound)
}

func TestGetByIDWrongAgent(t *testing.T) {
	beliefs := newMockBeliefStore()
	svc := newBeliefService(beliefs, nil)
	agentID := uuid.New()

	b, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "private", Confidence: 0.5})
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), uuid.New(), b.ID)
	assert.ErrorIs(t, err, ErrBeliefNotFound)
}

func TestUpdateConfidence(t *testing.T) {
	beliefs := newMockBeliefStore()
	svc := newBeliefService(beliefs, nil)
	agentID := uuid.New()

	b, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "shifting", Confidence: 0.5})
	require.NoError(t, err)

	updated, err := svc.UpdateConfidence(context.Background(), agentID, b.ID, 0.9, "confirmed by user")
	require.NoError(t, err)
	assert.Equal(t, float32(0.9), updated.Confidence)
	assert.Equal(t, int64(2), updated.Version)

	_, err = svc.UpdateConfidence(context.Background(), agentID, b.ID, 1.2, "")
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestUpdateConfidenceStaleReadConflicts(t *testing.T) {
	beliefs := newMockBeliefStore()
	svc := newBeliefService(beliefs, nil)
	agentID := uuid.New()

	b, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "contested", Confidence: 0.5})
	require.NoError(t, err)

	staleSvc := NewBeliefService(&staleBeliefStore{mockBeliefStore: beliefs}, nil, zap.NewNop())

	_, err = staleSvc.UpdateConfidence(context.Background(), agentID, b.ID, 0.8, "")
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	// The winning write is untouched.
	current, err := svc.GetByID(context.Background(), agentID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), current.Confidence)
}

func TestDeactivateBeliefIsIdempotent(t *testing.T) {
	beliefs := newMockBeliefStore()
	svc := newBeliefService(beliefs, nil)
	agentID := uuid.New()

	b, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "fading", Confidence: 0.5})
	require.NoError(t, err)

	first, err := svc.Deactivate(context.Background(), agentID, b.ID)
	require.NoError(t, err)
	assert.False(t, first.Active)

	second, err := svc.Deactivate(context.Background(), agentID, b.ID)
	require.NoError(t, err)
	assert.False(t, second.Active)
	assert.Equal(t, first.Version, second.Version)
}

func TestListByAgentExcludesInactiveByDefault(t *testing.T) {
	beliefs := newMockBeliefStore()
	svc := newBeliefService(beliefs, nil)
	agentID := uuid.New()

	active, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "active", Confidence: 0.5})
	require.NoError(t, err)
	retired, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "retired", Confidence: 0.5})
	require.NoError(t, err)
	_, err = svc.Deactivate(context.Background(), agentID, retired.ID)
	require.NoError(t, err)

	visible, err := svc.ListByAgent(context.Background(), agentID, false, 0, 0)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, active.ID, visible[0].ID)

	all, err := svc.ListByAgent(context.Background(), agentID, true, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListConfidenceBands(t *testing.T) {
	beliefs := newMockBeliefStore()
	svc := newBeliefService(beliefs, nil)
	agentID := uuid.New()

	for _, c := range []float32{0.2, 0.6, 0.95} {
		_, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "belief", Confidence: c})
		require.NoError(t, err)
	}

	high, err := svc.ListHighConfidence(context.Background(), agentID, 0.9, 10)
	require.NoError(t, err)
	assert.Len(t, high, 1)

	low, err := svc.ListLowConfidence(context.Background(), agentID, 0.5, 10)
	require.NoError(t, err)
	assert.Len(t, low, 1)
}

func TestSearchByStatement(t *testing.T) {
	beliefs := newMockBeliefStore()
	svc := newBeliefService(beliefs, nil)
	agentID := uuid.New()

	_, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "prefers strong coffee", Confidence: 0.5})
	require.NoError(t, err)

	found, err := svc.SearchByStatement(context.Background(), agentID, "coffee", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	none, err := svc.SearchByStatement(context.Background(), agentID, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteBelief(t *testing.T) {
	beliefs := newMockBeliefStore()
	svc := newBeliefService(beliefs, nil)
	agentID := uuid.New()

	b, err := svc.Create(context.Background(), CreateBeliefInput{AgentID: agentID, Statement: "ephemeral", Confidence: 0.5})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), agentID, b.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), agentID, b.ID), ErrBeliefNotFound)

	count, err := svc.Count(context.Background(), agentID, true)
	require.NoError(t, err)
	assert.Zero(t, count)
}
