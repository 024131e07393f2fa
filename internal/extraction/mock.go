package extraction

import (
	"context"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
)

// MockClient is a configurable extraction client for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	ExtractResponse    []domain.ExtractedBelief
	ExtractError       error
	ConflictResponse   bool
	ConflictError      error
	SimilarityResponse float32
	SimilarityError    error
	ConfidenceResponse float32
	ConfidenceError    error

	// Call tracking for assertions
	ExtractCalls  []string
	ConflictCalls []struct{ A, B string }
}

func NewMockClient() *MockClient {
	return &MockClient{
		ExtractResponse:    []domain.ExtractedBelief{},
		SimilarityResponse: 0.5,
		ConfidenceResponse: 0.5,
	}
}

func (m *MockClient) ExtractBeliefs(ctx context.Context, content string, agentID uuid.UUID, categoryHint string) ([]domain.ExtractedBelief, error) {
	m.ExtractCalls = append(m.ExtractCalls, content)
	if m.ExtractError != nil {
		return nil, m.ExtractError
	}
	return m.ExtractResponse, nil
}

func (m *MockClient) AreConflicting(ctx context.Context, stmtA, stmtB, categoryA, categoryB string) (bool, error) {
	m.ConflictCalls = append(m.ConflictCalls, struct{ A, B string }{stmtA, stmtB})
	if m.ConflictError != nil {
		return false, m.ConflictError
	}
	return m.ConflictResponse, nil
}

func (m *MockClient) CalculateSimilarity(ctx context.Context, stmtA, stmtB string) (float32, error) {
	if m.SimilarityError != nil {
		return 0, m.SimilarityError
	}
	return m.SimilarityResponse, nil
}

func (m *MockClient) CalculateConfidence(ctx context.Context, content, statement, extra string) (float32, error) {
	if m.ConfidenceError != nil {
		return 0, m.ConfidenceError
	}
	return m.ConfidenceResponse, nil
}

var _ domain.ExtractionClient = (*MockClient)(nil)
