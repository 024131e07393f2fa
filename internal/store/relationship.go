package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const relationshipColumns = `id, agent_id, source_belief_id, target_belief_id, relationship_type,
	 strength, active, effective_from, effective_until, reason, priority, metadata,
	 created_at, last_updated, version`

type RelationshipStore struct {
	db *pgxpool.Pool
}

func NewRelationshipStore(db *pgxpool.Pool) *RelationshipStore {
	return &RelationshipStore{db: db}
}

func (s *RelationshipStore) Create(ctx context.Context, r *domain.BeliefRelationship) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO belief_relationships
		 (agent_id, source_belief_id, target_belief_id, relationship_type, strength,
		  active, effective_from, effective_until, reason, priority, metadata)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8, $9, $10)
		 RETURNING id, active, created_at, last_updated, version`,
		r.AgentID, r.SourceBeliefID, r.TargetBeliefID, r.Type, r.Strength,
		r.EffectiveFrom, r.EffectiveUntil, r.Reason, r.Priority, r.Metadata,
	).Scan(&r.ID, &r.Active, &r.CreatedAt, &r.LastUpdated, &r.Version)
}

func (s *RelationshipStore) GetByID(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*domain.BeliefRelationship, error) {
	r := &domain.BeliefRelationship{}
	err := s.db.QueryRow(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships WHERE id = $1 AND agent_id = $2`,
		id, agentID,
	).Scan(&r.ID, &r.AgentID, &r.SourceBeliefID, &r.TargetBeliefID, &r.Type,
		&r.Strength, &r.Active, &r.EffectiveFrom, &r.EffectiveUntil, &r.Reason, &r.Priority, &r.Metadata,
		&r.CreatedAt, &r.LastUpdated, &r.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *RelationshipStore) GetByIDs(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (map[uuid.UUID]domain.BeliefRelationship, error) {
	result := make(map[uuid.UUID]domain.BeliefRelationship, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships WHERE id = ANY($1) AND agent_id = $2`,
		ids, agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.BeliefRelationship
		if err := scanRelationship(rows, &r); err != nil {
			return nil, err
		}
		result[r.ID] = r
	}
	return result, rows.Err()
}

// Update rewrites mutable fields (strength, metadata, temporal window,
// reason, priority, active) using compare-and-set on version. Endpoints and
// type are immutable after creation and are not part of the SET list.
func (s *RelationshipStore) Update(ctx context.Context, r *domain.BeliefRelationship) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_relationships
		 SET strength = $3, metadata = $4, effective_from = $5, effective_until = $6,
		     reason = $7, priority = $8, active = $9, last_updated = NOW(), version = version + 1
		 WHERE id = $1 AND agent_id = $2 AND version = $10`,
		r.ID, r.AgentID, r.Strength, r.Metadata, r.EffectiveFrom, r.EffectiveUntil,
		r.Reason, r.Priority, r.Active, r.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM belief_relationships WHERE id = $1 AND agent_id = $2)`,
			r.ID, r.AgentID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	r.Version++
	return nil
}

func (s *RelationshipStore) Delete(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM belief_relationships WHERE id = $1 AND agent_id = $2`,
		id, agentID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RelationshipStore) SetActive(ctx context.Context, id uuid.UUID, agentID uuid.UUID, active bool) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_relationships
		 SET active = $3, last_updated = NOW(), version = version + 1
		 WHERE id = $1 AND agent_id = $2`,
		id, agentID, active,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *RelationshipStore) GetByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool, limit, offset int) ([]domain.BeliefRelationship, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + relationshipColumns + ` FROM belief_relationships WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, agentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (s *RelationshipStore) GetBySource(ctx context.Context, agentID uuid.UUID, sourceBeliefID uuid.UUID, types []domain.RelationshipType, activeOnly bool) ([]domain.BeliefRelationship, error) {
	return s.getByEndpoint(ctx, agentID, sourceBeliefID, "source_belief_id", types, activeOnly)
}

func (s *RelationshipStore) GetByTarget(ctx context.Context, agentID uuid.UUID, targetBeliefID uuid.UUID, types []domain.RelationshipType, activeOnly bool) ([]domain.BeliefRelationship, error) {
	return s.getByEndpoint(ctx, agentID, targetBeliefID, "target_belief_id", types, activeOnly)
}

func (s *RelationshipStore) getByEndpoint(ctx context.Context, agentID uuid.UUID, beliefID uuid.UUID, column string, types []domain.RelationshipType, activeOnly bool) ([]domain.BeliefRelationship, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM belief_relationships WHERE agent_id = $1 AND %s = $2`,
		relationshipColumns, column,
	)
	args := []any{agentID, beliefID}

	if activeOnly {
		query += ` AND active`
	}
	if len(types) > 0 {
		typeCodes := make([]string, len(types))
		for i, t := range types {
			typeCodes[i] = string(t)
		}
		query += fmt.Sprintf(" AND relationship_type = ANY($%d)", len(args)+1)
		args = append(args, typeCodes)
	}
	query += ` ORDER BY strength DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (s *RelationshipStore) GetForBelief(ctx context.Context, agentID uuid.UUID, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships
		 WHERE agent_id = $1 AND (source_belief_id = $2 OR target_belief_id = $2)
		 ORDER BY strength DESC`,
		agentID, beliefID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (s *RelationshipStore) GetByType(ctx context.Context, agentID uuid.UUID, relType domain.RelationshipType, limit int) ([]domain.BeliefRelationship, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships
		 WHERE agent_id = $1 AND relationship_type = $2 AND active
		 ORDER BY strength DESC LIMIT $3`,
		agentID, relType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (s *RelationshipStore) GetBetween(ctx context.Context, agentID uuid.UUID, sourceBeliefID, targetBeliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships
		 WHERE agent_id = $1 AND source_belief_id = $2 AND target_belief_id = $3
		 ORDER BY created_at DESC`,
		agentID, sourceBeliefID, targetBeliefID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (s *RelationshipStore) GetByStrengthAbove(ctx context.Context, agentID uuid.UUID, threshold float32, limit, offset int) ([]domain.BeliefRelationship, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships
		 WHERE agent_id = $1 AND active AND strength >= $2
		 ORDER BY id LIMIT $3 OFFSET $4`,
		agentID, threshold, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (s *RelationshipStore) CountByAgent(ctx context.Context, agentID uuid.UUID, includeInactive bool) (int64, error) {
	query := `SELECT COUNT(*) FROM belief_relationships WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	var count int64
	err := s.db.QueryRow(ctx, query, agentID).Scan(&count)
	return count, err
}

func (s *RelationshipStore) TypeDistribution(ctx context.Context, agentID uuid.UUID) (map[domain.RelationshipType]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT relationship_type, COUNT(*)
		 FROM belief_relationships
		 WHERE agent_id = $1 AND active
		 GROUP BY relationship_type`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[domain.RelationshipType]int64)
	for rows.Next() {
		var relType domain.RelationshipType
		var count int64
		if err := rows.Scan(&relType, &count); err != nil {
			return nil, err
		}
		dist[relType] = count
	}
	return dist, rows.Err()
}

func (s *RelationshipStore) AverageStrength(ctx context.Context, agentID uuid.UUID, includeInactive bool) (float64, error) {
	query := `SELECT COALESCE(AVG(strength), 0) FROM belief_relationships WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	var avg float64
	err := s.db.QueryRow(ctx, query, agentID).Scan(&avg)
	return avg, err
}

// FindOrphaned returns relationships whose source or target belief row no
// longer exists. Orphans can appear after administrative hard deletes since
// referential integrity is checked at write time, not continuously.
func (s *RelationshipStore) FindOrphaned(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.id FROM belief_relationships r
		 LEFT JOIN beliefs src ON r.source_belief_id = src.id
		 LEFT JOIN beliefs tgt ON r.target_belief_id = tgt.id
		 WHERE r.agent_id = $1 AND (src.id IS NULL OR tgt.id IS NULL)`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (s *RelationshipStore) FindSelfReferencing(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM belief_relationships
		 WHERE agent_id = $1 AND source_belief_id = target_belief_id`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (s *RelationshipStore) FindTemporallyInvalid(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM belief_relationships
		 WHERE agent_id = $1 AND effective_from IS NOT NULL AND effective_until IS NOT NULL
		   AND effective_from >= effective_until`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (s *RelationshipStore) DeprecatedBeliefIDs(ctx context.Context, agentID uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT target_belief_id FROM belief_relationships
		 WHERE agent_id = $1 AND active
		   AND relationship_type = ANY($2)
		 LIMIT $3`,
		agentID, deprecatingTypeCodes(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (s *RelationshipStore) CountDeprecatedBeliefs(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT target_belief_id) FROM belief_relationships
		 WHERE agent_id = $1 AND active
		   AND relationship_type = ANY($2)`,
		agentID, deprecatingTypeCodes(),
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *RelationshipStore) DeleteInactiveOlderThan(ctx context.Context, agentID uuid.UUID, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM belief_relationships
		 WHERE agent_id = $1 AND NOT active AND last_updated < $2`,
		agentID, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *RelationshipStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func deprecatingTypeCodes() []string {
	types := domain.DeprecatingTypes()
	codes := make([]string, len(types))
	for i, t := range types {
		codes[i] = string(t)
	}
	return codes
}

func scanRelationship(rows pgx.Rows, r *domain.BeliefRelationship) error {
	return rows.Scan(&r.ID, &r.AgentID, &r.SourceBeliefID, &r.TargetBeliefID, &r.Type,
		&r.Strength, &r.Active, &r.EffectiveFrom, &r.EffectiveUntil, &r.Reason, &r.Priority, &r.Metadata,
		&r.CreatedAt, &r.LastUpdated, &r.Version)
}

func collectRelationships(rows pgx.Rows) ([]domain.BeliefRelationship, error) {
	var rels []domain.BeliefRelationship
	for rows.Next() {
		var r domain.BeliefRelationship
		if err := scanRelationship(rows, &r); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

func collectIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
