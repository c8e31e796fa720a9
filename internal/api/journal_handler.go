package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// ListRuns возвращает последние запуски из журнала.
// GET /api/v1/runs?limit=20
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		NotFound(w, "run journal is not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			BadRequest(w, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	runs, err := h.journal.ListRuns(r.Context(), limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	List(w, runs, len(runs))
}

// GetRun возвращает запуск из журнала.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		NotFound(w, "run journal is not configured")
		return
	}
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	run, err := h.journal.GetRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}
	Success(w, run)
}

// ListRunEvents возвращает события запуска.
// GET /api/v1/runs/{id}/events
func (h *Handler) ListRunEvents(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		NotFound(w, "run journal is not configured")
		return
	}
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	events, err := h.journal.ListEvents(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}
	List(w, events, len(events))
}

func parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return uuid.Nil, false
	}
	return id, true
}
