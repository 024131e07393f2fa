package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/credo-ai/credo/internal/service"
	"github.com/credo-ai/credo/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service sentinel errors onto HTTP statuses.
// Version conflicts surface as 409 so the client can re-read and retry;
// the server never retries on the caller's behalf.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBeliefNotFound),
		errors.Is(err, service.ErrRelationshipNotFound),
		errors.Is(err, service.ErrConflictNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSelfReference),
		errors.Is(err, service.ErrStrengthOutOfRange),
		errors.Is(err, service.ErrInvalidTemporalWindow),
		errors.Is(err, service.ErrInvalidRelationType),
		errors.Is(err, service.ErrInvalidConfidence),
		errors.Is(err, service.ErrEmptyStatement),
		errors.Is(err, service.ErrInvalidResolution):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, service.ErrConflictAlreadyResolved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrGraphInconsistency):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func agentIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "agentID"))
}

func idParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, name string, def float64) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	if err != nil {
		return def
	}
	return v
}

func queryBool(r *http.Request, name string) bool {
	return r.URL.Query().Get(name) == "true"
}
