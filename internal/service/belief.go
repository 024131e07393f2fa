package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/credo-ai/credo/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BeliefService owns the lifecycle of individual beliefs. Graph-level
// questions about beliefs live in GraphQueryService.
type BeliefService struct {
	beliefs  domain.BeliefStore
	embedder domain.EmbeddingClient
	logger   *zap.Logger
}

func NewBeliefService(beliefs domain.BeliefStore, embedder domain.EmbeddingClient, logger *zap.Logger) *BeliefService {
	return &BeliefService{
		beliefs:  beliefs,
		embedder: embedder,
		logger:   logger,
	}
}

type CreateBeliefInput struct {
	AgentID           uuid.UUID
	Statement         string
	Confidence        float32
	Category          string
	Tags              []string
	EvidenceMemoryIDs []uuid.UUID
}

func (s *BeliefService) Create(ctx context.Context, in CreateBeliefInput) (*domain.Belief, error) {
	in.Statement = strings.TrimSpace(in.Statement)
	if in.Statement == "" {
		return nil, ErrEmptyStatement
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return nil, ErrInvalidConfidence
	}

	belief := &domain.Belief{
		AgentID:           in.AgentID,
		Statement:         in.Statement,
		Confidence:        in.Confidence,
		Category:          in.Category,
		Tags:              in.Tags,
		EvidenceMemoryIDs: in.EvidenceMemoryIDs,
	}
	if err := s.beliefs.Create(ctx, belief); err != nil {
		return nil, fmt.Errorf("create belief: %w", err)
	}

	// Embedding failures never fail the create; the belief simply stays
	// outside vector search until re-embedded.
	if s.embedder != nil {
		if embedding, err := s.embedder.Embed(ctx, belief.Statement); err != nil {
			s.logger.Warn("belief embedding failed",
				zap.String("belief_id", belief.ID.String()),
				zap.Error(err),
			)
		} else if err := s.beliefs.UpdateEmbedding(ctx, belief.ID, embedding); err != nil {
			s.logger.Warn("belief embedding store failed",
				zap.String("belief_id", belief.ID.String()),
				zap.Error(err),
			)
		}
	}
	return belief, nil
}

func (s *BeliefService) GetByID(ctx context.Context, agentID, id uuid.UUID) (*domain.Belief, error) {
	b, err := s.beliefs.GetByID(ctx, id, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBeliefNotFound
	}
	return b, err
}

func (s *BeliefService) ListByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool, limit, offset int) ([]domain.Belief, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.beliefs.GetByAgent(ctx, agentID, includeInactive, limit, offset)
}

func (s *BeliefService) ListByCategory(ctx context.Context, agentID uuid.UUID, category string, limit int) ([]domain.Belief, error) {
	return s.beliefs.GetByCategory(ctx, agentID, category, limit)
}

func (s *BeliefService) ListHighConfidence(ctx context.Context, agentID uuid.UUID, threshold float32, limit int) ([]domain.Belief, error) {
	return s.beliefs.GetByConfidenceAbove(ctx, agentID, threshold, limit)
}

func (s *BeliefService) ListLowConfidence(ctx context.Context, agentID uuid.UUID, threshold float32, limit int) ([]domain.Belief, error) {
	return s.beliefs.GetByConfidenceBelow(ctx, agentID, threshold, limit)
}

func (s *BeliefService) SearchByStatement(ctx context.Context, agentID uuid.UUID, text string, limit int) ([]domain.Belief, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return s.beliefs.SearchByStatement(ctx, agentID, text, limit)
}

// UpdateConfidence sets a belief's confidence to an explicit value. A stale
// read surfaces as store.ErrVersionConflict; the caller re-reads and decides
// whether the update still applies.
func (s *BeliefService) UpdateConfidence(ctx context.Context, agentID, id uuid.UUID, confidence float32, reason string) (*domain.Belief, error) {
	if confidence < 0 || confidence > 1 {
		return nil, ErrInvalidConfidence
	}

	b, err := s.beliefs.GetByID(ctx, id, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBeliefNotFound
		}
		return nil, err
	}

	previous := b.Confidence
	b.Confidence = confidence
	if err := s.beliefs.Update(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("belief confidence updated",
		zap.String("agent_id", agentID.String()),
		zap.String("belief_id", id.String()),
		zap.Float32("from", previous),
		zap.Float32("to", confidence),
		zap.String("reason", reason),
	)
	return b, nil
}

// Deactivate soft-deletes a belief. Its relationships stay in place so
// deprecation history remains queryable.
func (s *BeliefService) Deactivate(ctx context.Context, agentID, id uuid.UUID) (*domain.Belief, error) {
	b, err := s.beliefs.GetByID(ctx, id, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBeliefNotFound
		}
		return nil, err
	}
	if !b.Active {
		return b, nil
	}

	b.Deactivate()
	if err := s.beliefs.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BeliefService) Delete(ctx context.Context, agentID, id uuid.UUID) error {
	err := s.beliefs.Delete(ctx, id, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrBeliefNotFound
	}
	return err
}

func (s *BeliefService) Count(ctx context.Context, agentID uuid.UUID, includeInactive bool) (int64, error) {
	return s.beliefs.CountByAgent(ctx, agentID, includeInactive)
}

func (s *BeliefService) Health(ctx context.Context) error {
	return s.beliefs.Ping(ctx)
}
