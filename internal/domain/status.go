package domain

// ProjectStatus — статус обработки проекта в текущем запуске.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → DRAINING → COMPLETED
//	                  ↘ FAILED
//	(или) → SKIPPED (все шаги уже выполнены)
type ProjectStatus string

const (
	// ProjectStatusPending — проект найден, но ещё не обрабатывался.
	ProjectStatusPending ProjectStatus = "PENDING"

	// ProjectStatusRunning — идёт запуск шагов.
	ProjectStatusRunning ProjectStatus = "RUNNING"

	// ProjectStatusDraining — все шаги запущены, ждём завершения worker'ов.
	ProjectStatusDraining ProjectStatus = "DRAINING"

	// ProjectStatusCompleted — все worker'ы проекта завершились.
	ProjectStatusCompleted ProjectStatus = "COMPLETED"

	// ProjectStatusSkipped — все шаги уже имели result marker.
	ProjectStatusSkipped ProjectStatus = "SKIPPED"

	// ProjectStatusFailed — запуск остановлен фатальной ошибкой.
	ProjectStatusFailed ProjectStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ProjectStatus) IsTerminal() bool {
	switch s {
	case ProjectStatusCompleted, ProjectStatusSkipped, ProjectStatusFailed:
		return true
	default:
		return false
	}
}
