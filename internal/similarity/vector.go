package similarity

import (
	"context"
	"fmt"
	"math"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
)

// VectorStrategy delegates similarity to embedding cosine distance computed
// by the store backend.
type VectorStrategy struct {
	beliefs  domain.BeliefStore
	embedder domain.EmbeddingClient
}

func NewVectorStrategy(beliefs domain.BeliefStore, embedder domain.EmbeddingClient) *VectorStrategy {
	return &VectorStrategy{beliefs: beliefs, embedder: embedder}
}

func (v *VectorStrategy) Name() string { return "vector" }

func (v *VectorStrategy) SupportsVectorSearch() bool { return true }

// Score embeds both statements and returns their cosine similarity. Used only
// for ad hoc pair comparisons; Search pushes the distance computation into
// the store.
func (v *VectorStrategy) Score(ctx context.Context, a, b string) float64 {
	ea, err := v.embedder.Embed(ctx, a)
	if err != nil {
		return 0
	}
	eb, err := v.embedder.Embed(ctx, b)
	if err != nil {
		return 0
	}
	return cosine(ea, eb)
}

func (v *VectorStrategy) Search(ctx context.Context, agentID uuid.UUID, statement string, threshold float32, limit int) ([]domain.BeliefWithScore, error) {
	embedding, err := v.embedder.Embed(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("embed statement: %w", err)
	}
	return v.beliefs.FindSimilarByEmbedding(ctx, agentID, embedding, threshold, limit)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	score := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
