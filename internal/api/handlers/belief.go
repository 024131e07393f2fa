package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/credo-ai/credo/internal/service"
	"github.com/google/uuid"
)

type BeliefHandler struct {
	svc *service.BeliefService
}

func NewBeliefHandler(svc *service.BeliefService) *BeliefHandler {
	return &BeliefHandler{svc: svc}
}

type createBeliefRequest struct {
	Statement         string   `json:"statement"`
	Confidence        float32  `json:"confidence"`
	Category          string   `json:"category,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	EvidenceMemoryIDs []string `json:"evidence_memory_ids,omitempty"`
}

func (h *BeliefHandler) Create(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req createBeliefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var evidenceIDs []uuid.UUID
	for _, raw := range req.EvidenceMemoryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid evidence memory id")
			return
		}
		evidenceIDs = append(evidenceIDs, id)
	}

	belief, err := h.svc.Create(r.Context(), service.CreateBeliefInput{
		AgentID:           agentID,
		Statement:         req.Statement,
		Confidence:        req.Confidence,
		Category:          req.Category,
		Tags:              req.Tags,
		EvidenceMemoryIDs: evidenceIDs,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, belief)
}

func (h *BeliefHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	belief, err := h.svc.GetByID(r.Context(), agentID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

// List supports filtering by category, confidence bounds, or a statement
// search term, one filter per request.
func (h *BeliefHandler) List(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	limit := queryInt(r, "limit", 100)
	q := r.URL.Query()

	switch {
	case q.Get("q") != "":
		beliefs, err := h.svc.SearchByStatement(r.Context(), agentID, q.Get("q"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, beliefs)

	case q.Get("category") != "":
		beliefs, err := h.svc.ListByCategory(r.Context(), agentID, q.Get("category"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, beliefs)

	case q.Get("min_confidence") != "":
		threshold := float32(queryFloat(r, "min_confidence", 0))
		beliefs, err := h.svc.ListHighConfidence(r.Context(), agentID, threshold, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, beliefs)

	case q.Get("max_confidence") != "":
		threshold := float32(queryFloat(r, "max_confidence", 1))
		beliefs, err := h.svc.ListLowConfidence(r.Context(), agentID, threshold, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, beliefs)

	default:
		beliefs, err := h.svc.ListByAgent(r.Context(), agentID, queryBool(r, "include_inactive"), limit, queryInt(r, "offset", 0))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, beliefs)
	}
}

type updateConfidenceRequest struct {
	Confidence float32 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

func (h *BeliefHandler) UpdateConfidence(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var req updateConfidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	belief, err := h.svc.UpdateConfidence(r.Context(), agentID, id, req.Confidence, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

func (h *BeliefHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	belief, err := h.svc.Deactivate(r.Context(), agentID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

func (h *BeliefHandler) Delete(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	if err := h.svc.Delete(r.Context(), agentID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
