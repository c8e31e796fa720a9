package resource

import "errors"

// Ошибки чтения ресурсов.
var (
	// ErrProcessNotFound — процесс завершился или не найден.
	ErrProcessNotFound = errors.New("process not found")

	// ErrMeminfoIncomplete — в /proc/meminfo нет нужных полей.
	ErrMeminfoIncomplete = errors.New("meminfo lacks MemTotal or MemAvailable")

	// ErrNoCPUTime — за окно измерения счётчики CPU не изменились.
	ErrNoCPUTime = errors.New("no cpu time elapsed in sample window")
)
