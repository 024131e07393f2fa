package store

import (
	"context"
	"errors"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const conflictColumns = `id, agent_id, belief_id, conflicting_belief_id, memory_id,
	 description, severity, resolved, resolution, detected_at, resolved_at`

type ConflictStore struct {
	db *pgxpool.Pool
}

func NewConflictStore(db *pgxpool.Pool) *ConflictStore {
	return &ConflictStore{db: db}
}

func (s *ConflictStore) Create(ctx context.Context, c *domain.BeliefConflict) error {
	if c.Severity == "" {
		c.Severity = domain.SeverityMedium
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO belief_conflicts
		 (agent_id, belief_id, conflicting_belief_id, memory_id, description, severity, resolved, resolution)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		 RETURNING id, detected_at`,
		c.AgentID, c.BeliefID, nullableUUID(c.ConflictingBeliefID), nullableUUID(c.MemoryID),
		c.Description, c.Severity, c.Resolution,
	).Scan(&c.ID, &c.DetectedAt)
}

func (s *ConflictStore) GetByID(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*domain.BeliefConflict, error) {
	c := &domain.BeliefConflict{}
	var conflictingID, memoryID *uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM belief_conflicts WHERE id = $1 AND agent_id = $2`,
		id, agentID,
	).Scan(&c.ID, &c.AgentID, &c.BeliefID, &conflictingID, &memoryID,
		&c.Description, &c.Severity, &c.Resolved, &c.Resolution, &c.DetectedAt, &c.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if conflictingID != nil {
		c.ConflictingBeliefID = *conflictingID
	}
	if memoryID != nil {
		c.MemoryID = *memoryID
	}
	return c, nil
}

func (s *ConflictStore) Update(ctx context.Context, c *domain.BeliefConflict) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_conflicts
		 SET description = $3, severity = $4, resolved = $5, resolution = $6, resolved_at = $7
		 WHERE id = $1 AND agent_id = $2`,
		c.ID, c.AgentID, c.Description, c.Severity, c.Resolved, c.Resolution, c.ResolvedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ConflictStore) GetUnresolved(ctx context.Context, agentID uuid.UUID, limit int) ([]domain.BeliefConflict, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+conflictColumns+` FROM belief_conflicts
		 WHERE agent_id = $1 AND NOT resolved
		 ORDER BY detected_at DESC LIMIT $2`,
		agentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConflicts(rows)
}

func (s *ConflictStore) GetByBelief(ctx context.Context, agentID uuid.UUID, beliefID uuid.UUID) ([]domain.BeliefConflict, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+conflictColumns+` FROM belief_conflicts
		 WHERE agent_id = $1 AND (belief_id = $2 OR conflicting_belief_id = $2)
		 ORDER BY detected_at DESC`,
		agentID, beliefID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConflicts(rows)
}

func collectConflicts(rows pgx.Rows) ([]domain.BeliefConflict, error) {
	var conflicts []domain.BeliefConflict
	for rows.Next() {
		var c domain.BeliefConflict
		var conflictingID, memoryID *uuid.UUID
		if err := rows.Scan(&c.ID, &c.AgentID, &c.BeliefID, &conflictingID, &memoryID,
			&c.Description, &c.Severity, &c.Resolved, &c.Resolution, &c.DetectedAt, &c.ResolvedAt); err != nil {
			return nil, err
		}
		if conflictingID != nil {
			c.ConflictingBeliefID = *conflictingID
		}
		if memoryID != nil {
			c.MemoryID = *memoryID
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
