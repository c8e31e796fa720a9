package domain

import "time"

// ProjectProgress — прогресс одного проекта.
type ProjectProgress struct {
	Name       string        `json:"name"`
	Root       string        `json:"root"`
	Status     ProjectStatus `json:"status"`
	TotalSteps int           `json:"total_steps"`
	Pending    int           `json:"pending"`
	Launched   int           `json:"launched"`
	Skipped    int           `json:"skipped"`
	Error      string        `json:"error,omitempty"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Progress — прогресс всего запуска.
type Progress struct {
	RunID       string            `json:"run_id"`
	StartedAt   time.Time         `json:"started_at"`
	Concurrency int               `json:"concurrency"`
	Admission   string            `json:"admission_state"`
	Projects    []ProjectProgress `json:"projects"`
}
