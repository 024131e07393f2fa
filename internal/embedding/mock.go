package embedding

import (
	"context"
	"hash/fnv"

	"github.com/credo-ai/credo/internal/domain"
)

const mockDimensions = 1536

// MockClient produces deterministic embeddings derived from the input text.
// Identical inputs embed identically, which is enough for tests.
type MockClient struct {
	EmbedError error
	EmbedCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.EmbedCalls = append(m.EmbedCalls, text)
	if m.EmbedError != nil {
		return nil, m.EmbedError
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, mockDimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)) / float32(1<<31)
	}
	return vec, nil
}

var _ domain.EmbeddingClient = (*MockClient)(nil)
