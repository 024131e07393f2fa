package similarity

import (
	"context"
	"testing"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBeliefStore struct {
	domain.BeliefStore
	beliefs []domain.Belief
}

func (s *stubBeliefStore) SearchByStatement(ctx context.Context, agentID uuid.UUID, text string, limit int) ([]domain.Belief, error) {
	return s.beliefs, nil
}

func (s *stubBeliefStore) GetByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool, limit, offset int) ([]domain.Belief, error) {
	return s.beliefs, nil
}

func TestTextScoreIdenticalStatements(t *testing.T) {
	s := NewTextStrategy(nil)
	score := s.Score(context.Background(), "the user prefers dark mode", "the user prefers dark mode")
	assert.InDelta(t, 1.0, score, 0.001)
}

func TestTextScoreReflexiveForStopwordOnlyStatements(t *testing.T) {
	s := NewTextStrategy(nil)

	// Statements whose every token is stripped by tokenization still score
	// 1 against themselves.
	assert.Equal(t, 1.0, s.Score(context.Background(), "it is", "it is"))
	assert.Equal(t, 1.0, s.Score(context.Background(), "a", "a"))
	assert.Equal(t, 1.0, s.Score(context.Background(), "The  User ", "the user"))
}

func TestTextScoreSymmetric(t *testing.T) {
	s := NewTextStrategy(nil)
	a := "user prefers dark mode in the editor"
	b := "dark mode is preferred"
	assert.Equal(t, s.Score(context.Background(), a, b), s.Score(context.Background(), b, a))
}

func TestTextScoreDisjointStatements(t *testing.T) {
	s := NewTextStrategy(nil)
	score := s.Score(context.Background(), "coffee tastes bitter", "python supports generators")
	assert.Equal(t, 0.0, score)
}

func TestTextScoreRange(t *testing.T) {
	s := NewTextStrategy(nil)
	pairs := [][2]string{
		{"user likes coffee", "user likes coffee very much"},
		{"", "anything"},
		{"a", "a"},
		{"server listens on port 8080", "the server listens on port 8080 by default"},
	}
	for _, p := range pairs {
		score := s.Score(context.Background(), p[0], p[1])
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestTextSearchFiltersByThreshold(t *testing.T) {
	agentID := uuid.New()
	store := &stubBeliefStore{beliefs: []domain.Belief{
		{ID: uuid.New(), AgentID: agentID, Statement: "user prefers dark mode"},
		{ID: uuid.New(), AgentID: agentID, Statement: "completely unrelated statement about weather"},
	}}
	s := NewTextStrategy(store)

	results, err := s.Search(context.Background(), agentID, "user prefers dark mode", 0.8, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "user prefers dark mode", results[0].Statement)
}

func TestTextSearchOrdersByScoreDescending(t *testing.T) {
	agentID := uuid.New()
	store := &stubBeliefStore{beliefs: []domain.Belief{
		{ID: uuid.New(), AgentID: agentID, Statement: "user drinks coffee sometimes"},
		{ID: uuid.New(), AgentID: agentID, Statement: "user drinks coffee every morning"},
	}}
	s := NewTextStrategy(store)

	results, err := s.Search(context.Background(), agentID, "user drinks coffee every morning", 0.1, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestCosineBounds(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0, 0}, []float32{1, 0, 0}), 0.001)
	assert.Equal(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}))
	assert.Equal(t, 0.0, cosine(nil, nil))
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 2}))
}
