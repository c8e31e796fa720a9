package launcher

import "errors"

// Ошибки запуска worker'ов.
var (
	// ErrWorkerNotFound — исполняемый файл worker'а не найден.
	ErrWorkerNotFound = errors.New("worker executable not found")

	// ErrUnsupportedMode — неизвестный режим генерации конфигурации.
	ErrUnsupportedMode = errors.New("unsupported config mode")
)
