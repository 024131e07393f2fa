package handlers

import (
	"net/http"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/credo-ai/credo/internal/service"
	"github.com/google/uuid"
)

type GraphHandler struct {
	svc *service.GraphQueryService
}

func NewGraphHandler(svc *service.GraphQueryService) *GraphHandler {
	return &GraphHandler{svc: svc}
}

func (h *GraphHandler) Reachable(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	beliefID, err := idParam(r, "beliefID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var types []domain.RelationshipType
	for _, t := range r.URL.Query()["type"] {
		if !domain.ValidRelationshipType(t) {
			writeError(w, http.StatusBadRequest, "unknown relationship type: "+t)
			return
		}
		types = append(types, domain.RelationshipType(t))
	}

	ids, err := h.svc.ReachableBeliefIDs(r.Context(), agentID, beliefID, queryInt(r, "depth", 0), types)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"belief_ids": idsOrEmpty(ids)})
}

func (h *GraphHandler) ShortestPath(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	fromID, err := uuid.Parse(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from belief id")
		return
	}
	toID, err := uuid.Parse(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to belief id")
		return
	}

	path, err := h.svc.ShortestPathIDs(r.Context(), agentID, fromID, toID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relationship_ids": idsOrEmpty(path)})
}

func (h *GraphHandler) Connected(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	beliefID, err := idParam(r, "beliefID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	ids, err := h.svc.ConnectedBeliefIDs(r.Context(), agentID, beliefID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"belief_ids": idsOrEmpty(ids)})
}

func (h *GraphHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	minStrength := float32(queryFloat(r, "min_strength", 0.5))
	clusters, err := h.svc.BeliefClusterIDs(r.Context(), agentID, minStrength, queryInt(r, "min_size", 2))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if clusters == nil {
		clusters = [][]uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

func (h *GraphHandler) DeprecationChain(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	beliefID, err := idParam(r, "beliefID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	chain, err := h.svc.DeprecationChainIDs(r.Context(), agentID, beliefID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chain": idsOrEmpty(chain)})
}

func (h *GraphHandler) Contradictions(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	pairs, err := h.svc.ContradictoryPairs(r.Context(), agentID, queryInt(r, "limit", 100))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if pairs == nil {
		pairs = []service.ContradictoryPair{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contradictions": pairs})
}

func (h *GraphHandler) Validate(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	issues, err := h.svc.ValidateGraphStructure(r.Context(), agentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if issues == nil {
		issues = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": len(issues) == 0, "issues": issues})
}

func (h *GraphHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	stats, err := h.svc.Statistics(r.Context(), agentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *GraphHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	snapshot, err := h.svc.Snapshot(r.Context(), agentID, queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func idsOrEmpty(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
