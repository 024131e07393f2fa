// Package similarity provides pluggable statement-similarity strategies used
// by the analyzer to find reinforcement candidates.
package similarity

import (
	"context"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Strategy scores statement pairs and searches an agent's beliefs for
// statements similar to a candidate. Score is symmetric and reflexive and
// always lands in [0, 1].
type Strategy interface {
	Name() string
	Score(ctx context.Context, a, b string) float64
	Search(ctx context.Context, agentID uuid.UUID, statement string, threshold float32, limit int) ([]domain.BeliefWithScore, error)
	SupportsVectorSearch() bool
}

// Select picks the best strategy the deployment supports. Vector search wins
// when both an embedding client and a vector-capable store are available;
// otherwise token overlap over statement text is used. Capability detection
// happens once, at construction time.
func Select(ctx context.Context, beliefs domain.BeliefStore, embedder domain.EmbeddingClient, logger *zap.Logger) Strategy {
	if embedder != nil && beliefs.SupportsVectorSearch(ctx) {
		logger.Info("similarity strategy selected", zap.String("strategy", "vector"))
		return NewVectorStrategy(beliefs, embedder)
	}
	logger.Info("similarity strategy selected", zap.String("strategy", "text"))
	return NewTextStrategy(beliefs)
}
