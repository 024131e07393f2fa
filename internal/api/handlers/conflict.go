package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/credo-ai/credo/internal/service"
	"github.com/google/uuid"
)

type ConflictHandler struct {
	analyzer *service.AnalyzerService
}

func NewConflictHandler(analyzer *service.AnalyzerService) *ConflictHandler {
	return &ConflictHandler{analyzer: analyzer}
}

func (h *ConflictHandler) ListUnresolved(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	conflicts, err := h.analyzer.UnresolvedConflicts(r.Context(), agentID, queryInt(r, "limit", 100))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if conflicts == nil {
		conflicts = []domain.BeliefConflict{}
	}
	writeJSON(w, http.StatusOK, conflicts)
}

type resolveConflictRequest struct {
	Resolution string `json:"resolution"`
	Notes      string `json:"notes,omitempty"`
}

func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}

	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conflict, err := h.analyzer.ResolveConflict(r.Context(), agentID, id, domain.ConflictResolution(req.Resolution), req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflict)
}

type analyzeRequest struct {
	EvidenceID   string `json:"evidence_id,omitempty"`
	Content      string `json:"content"`
	CategoryHint string `json:"category_hint,omitempty"`
}

func (req *analyzeRequest) toRecord(agentID uuid.UUID) (domain.EvidenceRecord, error) {
	evidenceID := uuid.New()
	if req.EvidenceID != "" {
		parsed, err := uuid.Parse(req.EvidenceID)
		if err != nil {
			return domain.EvidenceRecord{}, err
		}
		evidenceID = parsed
	}
	return domain.EvidenceRecord{
		ID:           evidenceID,
		AgentID:      agentID,
		Content:      req.Content,
		CategoryHint: req.CategoryHint,
		CreatedAt:    time.Now(),
	}, nil
}

// Analyze runs one evidence record through extraction, reinforcement and
// conflict detection. Extraction oracle failure is reported as 503; the
// evidence can be resubmitted.
func (h *ConflictHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	record, err := req.toRecord(agentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid evidence id")
		return
	}

	result, err := h.analyzer.AnalyzeEvidence(r.Context(), record)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "belief extraction unavailable")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ConflictHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var reqs []analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	records := make([]domain.EvidenceRecord, 0, len(reqs))
	for _, req := range reqs {
		record, err := req.toRecord(agentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid evidence id")
			return
		}
		records = append(records, record)
	}

	results := h.analyzer.AnalyzeBatch(r.Context(), records)
	writeJSON(w, http.StatusOK, results)
}

func (h *ConflictHandler) Review(w http.ResponseWriter, r *http.Request) {
	agentID, err := agentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	found, err := h.analyzer.ReviewAgentBeliefs(r.Context(), agentID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "belief review unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflict_ids": idsOrEmpty(found)})
}
