package orchestrator

import (
	"context"
	"errors"

	"github.com/shaiso/sweep/internal/catalog"
	"github.com/shaiso/sweep/internal/launcher"
	"github.com/shaiso/sweep/internal/project"
)

// Class — класс фатальной ошибки запуска.
type Class string

const (
	// ClassNone — ошибки нет.
	ClassNone Class = ""

	// ClassInput — некорректные входные данные проекта.
	ClassInput Class = "input"

	// ClassEnvironment — окружение не позволяет работать (нет worker'а).
	ClassEnvironment Class = "environment"

	// ClassRuntimeCrash — worker упал.
	ClassRuntimeCrash Class = "runtime_crash"

	// ClassInterrupted — запуск прерван сигналом.
	ClassInterrupted Class = "interrupted"

	// ClassUnknown — всё остальное.
	ClassUnknown Class = "unknown"
)

// Classify относит ошибку к одному из классов.
// Ожидание ресурсов ошибкой не является и сюда не попадает.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, context.Canceled):
		return ClassInterrupted
	case errors.Is(err, ErrWorkerCrashed):
		return ClassRuntimeCrash
	case errors.Is(err, launcher.ErrWorkerNotFound):
		return ClassEnvironment
	case errors.Is(err, catalog.ErrMalformedStepFile),
		errors.Is(err, catalog.ErrDuplicateStepID),
		errors.Is(err, project.ErrNoProjectsFound),
		errors.Is(err, project.ErrMissingArtifact):
		return ClassInput
	default:
		return ClassUnknown
	}
}
