package api

import (
	"net/http"
)

// GetProgress возвращает прогресс текущего запуска.
// GET /api/v1/progress
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	Success(w, h.progress.Progress())
}

// GetProject возвращает прогресс одного проекта по имени директории.
// GET /api/v1/projects/{name}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	for _, p := range h.progress.Progress().Projects {
		if p.Name == name {
			Success(w, p)
			return
		}
	}
	NotFound(w, "project not found")
}
