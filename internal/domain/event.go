package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType — тип события жизненного цикла.
type EventType string

const (
	EventRunStarted       EventType = "run.started"
	EventRunFinished      EventType = "run.finished"
	EventProjectStarted   EventType = "project.started"
	EventProjectCompleted EventType = "project.completed"
	EventProjectSkipped   EventType = "project.skipped"
	EventStepLaunched     EventType = "step.launched"
	EventStepSkipped      EventType = "step.skipped"
	EventWorkerCrashed    EventType = "worker.crashed"
)

// Event — событие, публикуемое наблюдателям (журнал, очередь сообщений).
//
// События носят информационный характер: состояние выполнения
// по-прежнему определяется только result marker'ами на диске.
type Event struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	Type      EventType `json:"type"`
	Project   string    `json:"project,omitempty"`
	StepID    int       `json:"step_id,omitempty"`
	Weight    float64   `json:"weight,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent создаёт событие с новым ID и текущим временем.
func NewEvent(runID uuid.UUID, eventType EventType, project string) Event {
	return Event{
		ID:        uuid.New(),
		RunID:     runID,
		Type:      eventType,
		Project:   project,
		Timestamp: time.Now(),
	}
}
