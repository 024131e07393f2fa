package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const beliefColumns = `id, agent_id, statement, confidence, category, tags, evidence_memory_ids,
	 reinforcement_count, active, created_at, last_updated, version`

type BeliefStore struct {
	db *pgxpool.Pool
}

func NewBeliefStore(db *pgxpool.Pool) *BeliefStore {
	return &BeliefStore{db: db}
}

func (s *BeliefStore) Create(ctx context.Context, b *domain.Belief) error {
	b.Confidence = domain.ClampConfidence(b.Confidence)
	if b.ReinforcementCount == 0 {
		b.ReinforcementCount = 1
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO beliefs (agent_id, statement, confidence, category, tags, evidence_memory_ids, reinforcement_count, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		 RETURNING id, active, created_at, last_updated, version`,
		b.AgentID, b.Statement, b.Confidence, b.Category, b.Tags, b.EvidenceMemoryIDs, b.ReinforcementCount,
	).Scan(&b.ID, &b.Active, &b.CreatedAt, &b.LastUpdated, &b.Version)
}

func (s *BeliefStore) GetByID(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*domain.Belief, error) {
	b := &domain.Belief{}
	err := s.db.QueryRow(ctx,
		`SELECT `+beliefColumns+` FROM beliefs WHERE id = $1 AND agent_id = $2`,
		id, agentID,
	).Scan(&b.ID, &b.AgentID, &b.Statement, &b.Confidence, &b.Category, &b.Tags, &b.EvidenceMemoryIDs,
		&b.ReinforcementCount, &b.Active, &b.CreatedAt, &b.LastUpdated, &b.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *BeliefStore) GetByIDs(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (map[uuid.UUID]domain.Belief, error) {
	result := make(map[uuid.UUID]domain.Belief, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+beliefColumns+` FROM beliefs WHERE id = ANY($1) AND agent_id = $2`,
		ids, agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b domain.Belief
		if err := scanBelief(rows, &b); err != nil {
			return nil, err
		}
		result[b.ID] = b
	}
	return result, rows.Err()
}

// Update writes the belief back using compare-and-set on version. On success
// the in-memory version is bumped to match the stored row.
func (s *BeliefStore) Update(ctx context.Context, b *domain.Belief) error {
	b.Confidence = domain.ClampConfidence(b.Confidence)

	tag, err := s.db.Exec(ctx,
		`UPDATE beliefs
		 SET statement = $3, confidence = $4, category = $5, tags = $6,
		     evidence_memory_ids = $7, reinforcement_count = $8, active = $9,
		     last_updated = NOW(), version = version + 1
		 WHERE id = $1 AND agent_id = $2 AND version = $10`,
		b.ID, b.AgentID, b.Statement, b.Confidence, b.Category, b.Tags,
		b.EvidenceMemoryIDs, b.ReinforcementCount, b.Active, b.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		exists, existsErr := s.Exists(ctx, b.ID, b.AgentID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	b.Version++
	return nil
}

func (s *BeliefStore) Delete(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM beliefs WHERE id = $1 AND agent_id = $2`, id, agentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BeliefStore) GetByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool, limit, offset int) ([]domain.Belief, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + beliefColumns + ` FROM beliefs WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, agentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBeliefs(rows)
}

func (s *BeliefStore) GetByCategory(ctx context.Context, agentID uuid.UUID, category string, limit int) ([]domain.Belief, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+beliefColumns+` FROM beliefs
		 WHERE agent_id = $1 AND category = $2 AND active
		 ORDER BY confidence DESC LIMIT $3`,
		agentID, category, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBeliefs(rows)
}

func (s *BeliefStore) GetByConfidenceAbove(ctx context.Context, agentID uuid.UUID, threshold float32, limit int) ([]domain.Belief, error) {
	return s.getByConfidence(ctx, agentID, threshold, limit, ">=", "DESC")
}

func (s *BeliefStore) GetByConfidenceBelow(ctx context.Context, agentID uuid.UUID, threshold float32, limit int) ([]domain.Belief, error) {
	return s.getByConfidence(ctx, agentID, threshold, limit, "<", "ASC")
}

func (s *BeliefStore) getByConfidence(ctx context.Context, agentID uuid.UUID, threshold float32, limit int, op, order string) ([]domain.Belief, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(
		`SELECT %s FROM beliefs
		 WHERE agent_id = $1 AND active AND confidence %s $2
		 ORDER BY confidence %s LIMIT $3`,
		beliefColumns, op, order,
	)
	rows, err := s.db.Query(ctx, query, agentID, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBeliefs(rows)
}

func (s *BeliefStore) SearchByStatement(ctx context.Context, agentID uuid.UUID, text string, limit int) ([]domain.Belief, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+beliefColumns+` FROM beliefs
		 WHERE agent_id = $1 AND active AND statement ILIKE '%' || $2 || '%'
		 ORDER BY confidence DESC LIMIT $3`,
		agentID, text, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBeliefs(rows)
}

func (s *BeliefStore) CountByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool) (int64, error) {
	query := `SELECT COUNT(*) FROM beliefs WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	var count int64
	err := s.db.QueryRow(ctx, query, agentID).Scan(&count)
	return count, err
}

func (s *BeliefStore) Exists(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM beliefs WHERE id = $1 AND agent_id = $2)`,
		id, agentID,
	).Scan(&exists)
	return exists, err
}

func (s *BeliefStore) FindSimilarByEmbedding(ctx context.Context, agentID uuid.UUID, embedding []float32, threshold float32, limit int) ([]domain.BeliefWithScore, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT `+beliefColumns+`, 1 - (embedding <=> $2) AS score
		 FROM beliefs
		 WHERE agent_id = $1 AND active AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $2) >= $3
		 ORDER BY embedding <=> $2
		 LIMIT $4`,
		agentID, vec, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var results []domain.BeliefWithScore
	for rows.Next() {
		var bs domain.BeliefWithScore
		if err := rows.Scan(
			&bs.ID, &bs.AgentID, &bs.Statement, &bs.Confidence, &bs.Category, &bs.Tags,
			&bs.EvidenceMemoryIDs, &bs.ReinforcementCount, &bs.Active, &bs.CreatedAt,
			&bs.LastUpdated, &bs.Version, &bs.Score,
		); err != nil {
			return nil, err
		}
		results = append(results, bs)
	}
	return results, rows.Err()
}

func (s *BeliefStore) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	tag, err := s.db.Exec(ctx,
		`UPDATE beliefs SET embedding = $2, last_updated = NOW() WHERE id = $1`,
		id, vec,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SupportsVectorSearch checks for the pgvector extension. The result drives
// similarity-strategy selection at construction time.
func (s *BeliefStore) SupportsVectorSearch(ctx context.Context) bool {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')`,
	).Scan(&exists)
	return err == nil && exists
}

func (s *BeliefStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanBelief(rows pgx.Rows, b *domain.Belief) error {
	return rows.Scan(&b.ID, &b.AgentID, &b.Statement, &b.Confidence, &b.Category, &b.Tags,
		&b.EvidenceMemoryIDs, &b.ReinforcementCount, &b.Active, &b.CreatedAt, &b.LastUpdated, &b.Version)
}

func collectBeliefs(rows pgx.Rows) ([]domain.Belief, error) {
	var beliefs []domain.Belief
	for rows.Next() {
		var b domain.Belief
		if err := scanBelief(rows, &b); err != nil {
			return nil, err
		}
		beliefs = append(beliefs, b)
	}
	return beliefs, rows.Err()
}
