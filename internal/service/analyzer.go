package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/credo-ai/credo/internal/similarity"
	"github.com/credo-ai/credo/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// SimilarityThreshold is the minimum score for treating an extracted
	// statement as a restatement of an existing belief.
	SimilarityThreshold = 0.85

	// ReinforcementConfidenceBoost is added per reinforcement, clamped at 1.0.
	ReinforcementConfidenceBoost = 0.05

	// UncertaintyPenalty is subtracted from a belief's confidence when a
	// resolution marks it uncertain.
	UncertaintyPenalty = 0.15

	// conflictCheckLimit bounds how many existing beliefs are checked against
	// each extracted statement by the conflict oracle.
	conflictCheckLimit = 5

	reviewScanLimit = 200

	// healthMinSamples is the minimum evidence count before the failure
	// rate participates in health reporting.
	healthMinSamples = 10
)

// Conflict status values reported by AnalyzeEvidence. StatusUnknown means
// the conflict oracle could not be consulted; it is never collapsed into
// StatusClean.
const (
	StatusClean             = "clean"
	StatusConflictsDetected = "conflicts_detected"
	StatusUnknown           = "unknown"
)

// AnalyzerService turns raw evidence into beliefs: it extracts candidate
// statements through the extraction oracle, reinforces restatements of
// existing beliefs, creates new beliefs otherwise, and records conflicts
// with what the agent already holds.
type AnalyzerService struct {
	beliefs       domain.BeliefStore
	relationships domain.RelationshipStore
	conflicts     domain.ConflictStore
	extraction    domain.ExtractionClient
	matcher       similarity.Strategy
	logger        *zap.Logger

	evidenceProcessed atomic.Int64
	evidenceFailed    atomic.Int64
	beliefsCreated    atomic.Int64
	beliefsReinforced atomic.Int64
	conflictsDetected atomic.Int64
}

func NewAnalyzerService(
	beliefs domain.BeliefStore,
	relationships domain.RelationshipStore,
	conflicts domain.ConflictStore,
	extraction domain.ExtractionClient,
	matcher similarity.Strategy,
	logger *zap.Logger,
) *AnalyzerService {
	return &AnalyzerService{
		beliefs:       beliefs,
		relationships: relationships,
		conflicts:     conflicts,
		extraction:    extraction,
		matcher:       matcher,
		logger:        logger,
	}
}

// AnalysisResult summarizes one evidence record's pass through the analyzer.
type AnalysisResult struct {
	EvidenceID          uuid.UUID   `json:"evidence_id"`
	CreatedBeliefIDs    []uuid.UUID `json:"created_belief_ids,omitempty"`
	ReinforcedBeliefIDs []uuid.UUID `json:"reinforced_belief_ids,omitempty"`
	ConflictIDs         []uuid.UUID `json:"conflict_ids,omitempty"`
	ConflictStatus      string      `json:"conflict_status"`
}

// AnalyzeEvidence processes one evidence record. Extraction failure fails
// the whole call; per-statement failures after extraction are logged and
// skipped so one bad statement cannot discard the rest.
func (s *AnalyzerService) AnalyzeEvidence(ctx context.Context, ev domain.EvidenceRecord) (*AnalysisResult, error) {
	extracted, err := s.extraction.ExtractBeliefs(ctx, ev.Content, ev.AgentID, ev.CategoryHint)
	if err != nil {
		s.evidenceFailed.Add(1)
		return nil, fmt.Errorf("extract beliefs: %w", err)
	}

	result := &AnalysisResult{EvidenceID: ev.ID, ConflictStatus: StatusClean}

	for _, candidate := range extracted {
		if candidate.Statement == "" {
			continue
		}
		if err := s.processCandidate(ctx, ev, candidate, result); err != nil {
			s.logger.Warn("candidate belief processing failed",
				zap.String("agent_id", ev.AgentID.String()),
				zap.String("statement", candidate.Statement),
				zap.Error(err),
			)
		}
	}

	s.evidenceProcessed.Add(1)
	return result, nil
}

// BatchAnalysisResult reports the outcome of one evidence record in a batch.
// Exactly one of Result and Error is set.
type BatchAnalysisResult struct {
	EvidenceID uuid.UUID       `json:"evidence_id"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// AnalyzeBatch processes evidence records independently. A failing record
// records its error in place and does not interrupt the batch.
func (s *AnalyzerService) AnalyzeBatch(ctx context.Context, records []domain.EvidenceRecord) []BatchAnalysisResult {
	results := make([]BatchAnalysisResult, 0, len(records))
	for _, ev := range records {
		res, err := s.AnalyzeEvidence(ctx, ev)
		if err != nil {
			results = append(results, BatchAnalysisResult{EvidenceID: ev.ID, Error: err.Error()})
			continue
		}
		results = append(results, BatchAnalysisResult{EvidenceID: ev.ID, Result: res})
	}
	return results
}

func (s *AnalyzerService) processCandidate(ctx context.Context, ev domain.EvidenceRecord, candidate domain.ExtractedBelief, result *AnalysisResult) error {
	matches, err := s.matcher.Search(ctx, ev.AgentID, candidate.Statement, SimilarityThreshold, 1)
	if err != nil {
		return fmt.Errorf("similarity search: %w", err)
	}

	var belief *domain.Belief
	if len(matches) > 0 && candidate.Positive {
		belief, err = s.reinforce(ctx, ev, matches[0].Belief)
		if err != nil {
			return err
		}
		result.ReinforcedBeliefIDs = append(result.ReinforcedBeliefIDs, belief.ID)
	} else {
		belief, err = s.createBelief(ctx, ev, candidate)
		if err != nil {
			return err
		}
		result.CreatedBeliefIDs = append(result.CreatedBeliefIDs, belief.ID)
	}

	conflictIDs, status := s.detectConflicts(ctx, ev, belief)
	result.ConflictIDs = append(result.ConflictIDs, conflictIDs...)
	result.ConflictStatus = combineStatus(result.ConflictStatus, status)
	return nil
}

// reinforce applies the confidence boost under optimistic concurrency. A
// version conflict means another writer touched the belief mid-flight; the
// error propagates and the caller decides whether to re-run.
func (s *AnalyzerService) reinforce(ctx context.Context, ev domain.EvidenceRecord, match domain.Belief) (*domain.Belief, error) {
	belief, err := s.beliefs.GetByID(ctx, match.ID, ev.AgentID)
	if err != nil {
		return nil, err
	}

	belief.Reinforce(ReinforcementConfidenceBoost)
	belief.AddEvidence(ev.ID)
	if err := s.beliefs.Update(ctx, belief); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("reinforce belief %s: %w", belief.ID, err)
		}
		return nil, err
	}

	s.beliefsReinforced.Add(1)
	s.logger.Debug("belief reinforced",
		zap.String("belief_id", belief.ID.String()),
		zap.Int("reinforcement_count", belief.ReinforcementCount),
		zap.Float32("confidence", belief.Confidence),
	)
	return belief, nil
}

func (s *AnalyzerService) createBelief(ctx context.Context, ev domain.EvidenceRecord, candidate domain.ExtractedBelief) (*domain.Belief, error) {
	belief := &domain.Belief{
		AgentID:           ev.AgentID,
		Statement:         candidate.Statement,
		Confidence:        domain.ClampConfidence(candidate.Confidence),
		Category:          candidate.Category,
		Tags:              candidate.Tags,
		EvidenceMemoryIDs: []uuid.UUID{ev.ID},
	}
	if err := s.beliefs.Create(ctx, belief); err != nil {
		return nil, fmt.Errorf("create belief: %w", err)
	}
	s.beliefsCreated.Add(1)
	return belief, nil
}

// detectConflicts asks the oracle whether the belief contradicts nearby
// beliefs in the same category. An oracle failure yields StatusUnknown; the
// caller must never report such evidence as clean.
func (s *AnalyzerService) detectConflicts(ctx context.Context, ev domain.EvidenceRecord, belief *domain.Belief) ([]uuid.UUID, string) {
	neighbors, err := s.beliefs.GetByCategory(ctx, ev.AgentID, belief.Category, conflictCheckLimit+1)
	if err != nil {
		s.logger.Warn("conflict neighborhood load failed", zap.Error(err))
		return nil, StatusUnknown
	}

	var conflictIDs []uuid.UUID
	status := StatusClean
	checked := 0

	for i := range neighbors {
		if neighbors[i].ID == belief.ID || checked >= conflictCheckLimit {
			continue
		}
		checked++

		conflicting, err := s.extraction.AreConflicting(ctx, belief.Statement, neighbors[i].Statement, belief.Category, neighbors[i].Category)
		if err != nil {
			s.logger.Warn("conflict oracle unavailable",
				zap.String("belief_id", belief.ID.String()),
				zap.Error(err),
			)
			status = combineStatus(status, StatusUnknown)
			continue
		}
		if !conflicting {
			continue
		}

		conflict := &domain.BeliefConflict{
			AgentID:             ev.AgentID,
			BeliefID:            belief.ID,
			ConflictingBeliefID: neighbors[i].ID,
			MemoryID:            ev.ID,
			Description:         fmt.Sprintf("%q contradicts %q", belief.Statement, neighbors[i].Statement),
			Severity:            conflictSeverity(belief.Confidence, neighbors[i].Confidence),
		}
		if err := s.conflicts.Create(ctx, conflict); err != nil {
			s.logger.Error("conflict record failed", zap.Error(err))
			status = combineStatus(status, StatusUnknown)
			continue
		}

		// The contradiction is also an edge, so graph queries see it without
		// consulting the conflict log.
		edge := &domain.BeliefRelationship{
			AgentID:        ev.AgentID,
			SourceBeliefID: belief.ID,
			TargetBeliefID: neighbors[i].ID,
			Type:           domain.RelationContradicts,
			Strength:       1.0,
			Active:         true,
			Reason:         "detected during evidence analysis",
		}
		if err := s.relationships.Create(ctx, edge); err != nil {
			s.logger.Warn("contradiction edge creation failed", zap.Error(err))
		}

		s.conflictsDetected.Add(1)
		conflictIDs = append(conflictIDs, conflict.ID)
		status = combineStatus(status, StatusConflictsDetected)
	}
	return conflictIDs, status
}

// ReviewAgentBeliefs re-checks an agent's active beliefs pairwise within
// each category, recording any contradictions missed at write time. The
// scan is bounded; it is a maintenance pass, not an exhaustive proof.
func (s *AnalyzerService) ReviewAgentBeliefs(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	beliefs, err := s.beliefs.GetByAgent(ctx, agentID, false, reviewScanLimit, 0)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]domain.Belief)
	for _, b := range beliefs {
		byCategory[b.Category] = append(byCategory[b.Category], b)
	}

	var found []uuid.UUID
	for _, group := range byCategory {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				conflicting, err := s.extraction.AreConflicting(ctx, group[i].Statement, group[j].Statement, group[i].Category, group[j].Category)
				if err != nil {
					return found, fmt.Errorf("conflict oracle: %w", err)
				}
				if !conflicting {
					continue
				}
				conflict := &domain.BeliefConflict{
					AgentID:             agentID,
					BeliefID:            group[i].ID,
					ConflictingBeliefID: group[j].ID,
					Description:         fmt.Sprintf("%q contradicts %q", group[i].Statement, group[j].Statement),
					Severity:            conflictSeverity(group[i].Confidence, group[j].Confidence),
				}
				if err := s.conflicts.Create(ctx, conflict); err != nil {
					return found, err
				}
				s.conflictsDetected.Add(1)
				found = append(found, conflict.ID)
			}
		}
	}
	return found, nil
}

// ResolveConflict applies a resolution strategy to a recorded conflict.
// ResolutionManualReview only annotates the record and leaves it open for a
// human; every other strategy closes it.
func (s *AnalyzerService) ResolveConflict(ctx context.Context, agentID, conflictID uuid.UUID, resolution domain.ConflictResolution, notes string) (*domain.BeliefConflict, error) {
	if !domain.ValidConflictResolution(string(resolution)) {
		return nil, ErrInvalidResolution
	}

	conflict, err := s.conflicts.GetByID(ctx, conflictID, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConflictNotFound
		}
		return nil, err
	}
	if conflict.Resolved {
		return nil, ErrConflictAlreadyResolved
	}

	if err := s.applyResolution(ctx, conflict, resolution); err != nil {
		return nil, err
	}

	conflict.Resolution = resolution
	if notes != "" {
		conflict.Description = conflict.Description + " | " + notes
	}
	if resolution != domain.ResolutionManualReview {
		now := time.Now()
		conflict.Resolved = true
		conflict.ResolvedAt = &now
	}
	if err := s.conflicts.Update(ctx, conflict); err != nil {
		return nil, err
	}

	s.logger.Info("conflict resolved",
		zap.String("agent_id", agentID.String()),
		zap.String("conflict_id", conflictID.String()),
		zap.String("resolution", string(resolution)),
	)
	return conflict, nil
}

func (s *AnalyzerService) applyResolution(ctx context.Context, conflict *domain.BeliefConflict, resolution domain.ConflictResolution) error {
	switch resolution {
	case domain.ResolutionTakeNew:
		return s.deactivateBelief(ctx, conflict.AgentID, conflict.ConflictingBeliefID)

	case domain.ResolutionKeepOld:
		return s.penalizeBelief(ctx, conflict.AgentID, conflict.BeliefID, UncertaintyPenalty)

	case domain.ResolutionMarkUncertain:
		if err := s.penalizeBelief(ctx, conflict.AgentID, conflict.BeliefID, UncertaintyPenalty); err != nil {
			return err
		}
		return s.penalizeBelief(ctx, conflict.AgentID, conflict.ConflictingBeliefID, UncertaintyPenalty)

	case domain.ResolutionMerge:
		if conflict.ConflictingBeliefID == uuid.Nil {
			return nil
		}
		edge := &domain.BeliefRelationship{
			AgentID:        conflict.AgentID,
			SourceBeliefID: conflict.BeliefID,
			TargetBeliefID: conflict.ConflictingBeliefID,
			Type:           domain.RelationRelatesTo,
			Strength:       1.0,
			Active:         true,
			Reason:         "merge resolution",
		}
		return s.relationships.Create(ctx, edge)

	case domain.ResolutionArchiveOld:
		if conflict.ConflictingBeliefID == uuid.Nil {
			return nil
		}
		edge := &domain.BeliefRelationship{
			AgentID:        conflict.AgentID,
			SourceBeliefID: conflict.BeliefID,
			TargetBeliefID: conflict.ConflictingBeliefID,
			Type:           domain.RelationSupersedes,
			Strength:       DeprecationStrength,
			Active:         true,
			Reason:         "archive_old resolution",
		}
		if err := s.relationships.Create(ctx, edge); err != nil {
			return err
		}
		return s.deactivateBelief(ctx, conflict.AgentID, conflict.ConflictingBeliefID)

	case domain.ResolutionManualReview:
		return nil
	}
	return ErrInvalidResolution
}

func (s *AnalyzerService) deactivateBelief(ctx context.Context, agentID, beliefID uuid.UUID) error {
	if beliefID == uuid.Nil {
		return nil
	}
	belief, err := s.beliefs.GetByID(ctx, beliefID, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if !belief.Active {
		return nil
	}
	belief.Deactivate()
	return s.beliefs.Update(ctx, belief)
}

func (s *AnalyzerService) penalizeBelief(ctx context.Context, agentID, beliefID uuid.UUID, penalty float32) error {
	if beliefID == uuid.Nil {
		return nil
	}
	belief, err := s.beliefs.GetByID(ctx, beliefID, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	belief.Confidence = domain.ClampConfidence(belief.Confidence - penalty)
	return s.beliefs.Update(ctx, belief)
}

func (s *AnalyzerService) UnresolvedConflicts(ctx context.Context, agentID uuid.UUID, limit int) ([]domain.BeliefConflict, error) {
	return s.conflicts.GetUnresolved(ctx, agentID, limit)
}

// AnalyzerMetrics is a snapshot of the analyzer's counters.
type AnalyzerMetrics struct {
	EvidenceProcessed int64 `json:"evidence_processed"`
	EvidenceFailed    int64 `json:"evidence_failed"`
	BeliefsCreated    int64 `json:"beliefs_created"`
	BeliefsReinforced int64 `json:"beliefs_reinforced"`
	ConflictsDetected int64 `json:"conflicts_detected"`
}

func (s *AnalyzerService) Metrics() AnalyzerMetrics {
	return AnalyzerMetrics{
		EvidenceProcessed: s.evidenceProcessed.Load(),
		EvidenceFailed:    s.evidenceFailed.Load(),
		BeliefsCreated:    s.beliefsCreated.Load(),
		BeliefsReinforced: s.beliefsReinforced.Load(),
		ConflictsDetected: s.conflictsDetected.Load(),
	}
}

// IsHealthy reflects backend reachability and the recent failure rate, not
// the mere presence of past errors.
func (s *AnalyzerService) IsHealthy(ctx context.Context) bool {
	if s.beliefs.Ping(ctx) != nil {
		return false
	}
	processed := s.evidenceProcessed.Load()
	failed := s.evidenceFailed.Load()
	total := processed + failed
	if total < healthMinSamples {
		return true
	}
	return failed*2 < total
}

// combineStatus keeps the most severe of two statuses: detected conflicts
// dominate, then unknown, then clean.
func combineStatus(a, b string) string {
	if a == StatusConflictsDetected || b == StatusConflictsDetected {
		return StatusConflictsDetected
	}
	if a == StatusUnknown || b == StatusUnknown {
		return StatusUnknown
	}
	return StatusClean
}

func conflictSeverity(a, b float32) domain.ConflictSeverity {
	lower := a
	if b < lower {
		lower = b
	}
	switch {
	case lower >= 0.8:
		return domain.SeverityHigh
	case lower >= 0.5:
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}
