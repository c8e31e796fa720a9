package orchestrator

import (
	"errors"
	"fmt"
)

// Ошибки оркестратора.
var (
	// ErrWorkerCrashed — после settle delay не найдено ни одного worker'а,
	// а result marker запущенного шага не появился.
	ErrWorkerCrashed = errors.New("worker crashed")

	// ErrOrchestratorBusy — Run вызван, пока предыдущий запуск не закончился.
	ErrOrchestratorBusy = errors.New("orchestrator is already running")
)

// CrashError — падение worker'а с указанием шага и его лога.
type CrashError struct {
	Project string
	StepID  int
	LogPath string
	ExitErr error // результат Wait, если процесс запускал этот планировщик
}

// Error реализует интерфейс error.
func (e *CrashError) Error() string {
	msg := fmt.Sprintf("worker for step %d of %s is not running, see %s", e.StepID, e.Project, e.LogPath)
	if e.ExitErr != nil {
		msg += ": " + e.ExitErr.Error()
	}
	return msg
}

// Unwrap возвращает ErrWorkerCrashed.
func (e *CrashError) Unwrap() error {
	return ErrWorkerCrashed
}
