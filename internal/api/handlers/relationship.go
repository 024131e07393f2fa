package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/credo-ai/credo/internal/service"
	"github.com/google/uuid"
)

type RelationshipHandler struct {
	svc *service.RelationshipService
}

func NewRelationshipHandler(svc *service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{svc: svc}
}

type createRelationshipRequest struct {
	SourceBeliefID string         `json:"source_belief_id"`
	TargetBeliefID string         `json:"target_belief_id"`
	Type           string         `json:"relationship_type"`
	Strength       float32        `json:"strength"`
	Reason         string         `json:"reason,omitempty"`
	Priority       *int           `json:"priority,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	EffectiveFrom  *time.Time     `json:"effective_from,omitempty"`
	EffectiveUntil *time.Time     `json:"effective_until,omitempty"`
}

func (req *createRelationshipRequest) toInput(agentID uuid.UUID) (service.CreateRelationshipInput, error) {
	sourceID, err := uuid.Parse(req.SourceBeliefID)
	if err != nil {
		return service.CreateRelationshipInput{}, err
	}
	targetID, err := uuid.Parse(req.TargetBeliefID)
	if err != nil {
		return service.CreateRelationshipInput{}, err
	}
	return service.CreateRelationshipInput{
		AgentID:        agentID,
		SourceBeliefID: sourceID,
		TargetBeliefID: targetID,
		Type:           domain.RelationshipType(req.Type),
		Strength:       req.Strength,
		Reason:         req.Reason,
		Priority:       req.Priority,
		Metadata:       req.Metadata,
		EffectiveFrom:  req.EffectiveFrom,
		EffectiveUntil: req.EffectiveUntil,
	}, nil
}

func (h *RelationshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req createRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := req.toInput(agentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	rel, err := h.svc.CreateRelationship(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

func (h *RelationshipHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var reqs []createRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inputs := make([]service.CreateRelationshipInput, 0, len(reqs))
	for _, req := range reqs {
		in, err := req.toInput(agentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid belief id")
			return
		}
		inputs = append(inputs, in)
	}

	results := h.svc.CreateBulk(r.Context(), inputs)
	writeJSON(w, http.StatusOK, results)
}

type deprecateRequest struct {
	OldBeliefID string `json:"old_belief_id"`
	NewBeliefID string `json:"new_belief_id"`
	Reason      string `json:"reason,omitempty"`
}

func (h *RelationshipHandler) Deprecate(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req deprecateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	oldID, err := uuid.Parse(req.OldBeliefID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid old belief id")
		return
	}
	newID, err := uuid.Parse(req.NewBeliefID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid new belief id")
		return
	}

	rel, err := h.svc.DeprecateBeliefWith(r.Context(), agentID, oldID, newID, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

func (h *RelationshipHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relationship id")
		return
	}

	rel, err := h.svc.GetByID(r.Context(), agentID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (h *RelationshipHandler) List(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	limit := queryInt(r, "limit", 100)
	if relType := r.URL.Query().Get("type"); relType != "" {
		rels, err := h.svc.ListByType(r.Context(), agentID, domain.RelationshipType(relType), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rels)
		return
	}

	rels, err := h.svc.ListByAgent(r.Context(), agentID, queryBool(r, "include_inactive"), limit, queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (h *RelationshipHandler) ListForBelief(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	beliefID, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	rels, err := h.svc.ListForBelief(r.Context(), agentID, beliefID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

type updateRelationshipRequest struct {
	Strength       *float32       `json:"strength,omitempty"`
	Reason         *string        `json:"reason,omitempty"`
	Priority       *int           `json:"priority,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	EffectiveFrom  *time.Time     `json:"effective_from,omitempty"`
	EffectiveUntil *time.Time     `json:"effective_until,omitempty"`
}

func (h *RelationshipHandler) Update(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relationship id")
		return
	}

	var req updateRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rel, err := h.svc.UpdateRelationship(r.Context(), agentID, id, service.UpdateRelationshipInput{
		Strength:       req.Strength,
		Reason:         req.Reason,
		Priority:       req.Priority,
		Metadata:       req.Metadata,
		EffectiveFrom:  req.EffectiveFrom,
		EffectiveUntil: req.EffectiveUntil,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (h *RelationshipHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *RelationshipHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *RelationshipHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relationship id")
		return
	}

	var found bool
	if active {
		found, err = h.svc.Reactivate(r.Context(), agentID, id)
	} else {
		found, err = h.svc.Deactivate(r.Context(), agentID, id)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "relationship not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (h *RelationshipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relationship id")
		return
	}

	if err := h.svc.Delete(r.Context(), agentID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RelationshipHandler) ListDeprecated(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	beliefs, err := h.svc.FindDeprecatedBeliefs(r.Context(), agentID, queryInt(r, "limit", 100))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, beliefs)
}

func (h *RelationshipHandler) ListSuperseding(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	beliefID, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	beliefs, err := h.svc.FindSupersedingBeliefs(r.Context(), agentID, beliefID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, beliefs)
}

type cleanupRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

func (h *RelationshipHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OlderThanDays <= 0 {
		req.OlderThanDays = 30
	}

	removed, err := h.svc.CleanupKnowledgeGraph(r.Context(), agentID, time.Duration(req.OlderThanDays)*24*time.Hour)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
