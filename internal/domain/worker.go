package domain

import "time"

// WorkerProcess — процесс worker'а, найденный в таблице процессов ОС.
//
// RSS — resident memory на момент опроса, не точное значение.
// StartedAt нулевое, если время запуска не удалось прочитать.
type WorkerProcess struct {
	PID       int       `json:"pid"`
	Name      string    `json:"name"`
	RSS       uint64    `json:"rss"`
	StartedAt time.Time `json:"started_at"`
}

// Instance — worker, запущенный этим процессом планировщика.
//
// Instance хранится в in-process registry лаунчера; таблица процессов ОС
// по-прежнему остаётся источником истины для admission, registry лишь
// дополняет её процессами, которые не удалось сопоставить по имени.
type Instance struct {
	// StepID — шаг, который выполняет процесс.
	StepID int `json:"step_id"`

	// PID — идентификатор процесса.
	PID int `json:"pid"`

	// ConfigPath — конфигурация, которую прочитал worker.
	ConfigPath string `json:"config_path"`

	// LogPath — файл с объединённым stdout/stderr.
	LogPath string `json:"log_path"`

	// StartedAt — время запуска.
	StartedAt time.Time `json:"started_at"`
}
