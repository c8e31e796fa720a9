package scheduler

import "errors"

// Ошибки admission.
var (
	// ErrInvalidState — метод вызван в неподходящем состоянии автомата.
	ErrInvalidState = errors.New("invalid admission state")

	// ErrNoWorkerToMeasure — auto concurrency не нашёл запущенный worker.
	ErrNoWorkerToMeasure = errors.New("no running worker to measure")
)
