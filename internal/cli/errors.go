package cli

import (
	"errors"

	"github.com/shaiso/sweep/internal/convert"
	"github.com/shaiso/sweep/internal/orchestrator"
)

var (
	// ErrInvalidConfig — конфигурация не прошла проверку.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEnvironment — окружение не позволяет измерять ресурсы.
	ErrEnvironment = errors.New("unsupported environment")

	// ErrNotConfigured — команде нужен адрес сервиса, которого нет в конфигурации.
	ErrNotConfigured = errors.New("service is not configured")
)

// Коды завершения процесса.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInput       = 2
	ExitEnvironment = 3
	ExitCrash       = 4
	ExitInterrupted = 130
)

// ExitCode возвращает код завершения для ошибки команды.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, convert.ErrMeshNotFound):
		return ExitInput
	case errors.Is(err, ErrEnvironment), errors.Is(err, ErrNotConfigured):
		return ExitEnvironment
	}
	switch orchestrator.Classify(err) {
	case orchestrator.ClassInput:
		return ExitInput
	case orchestrator.ClassEnvironment:
		return ExitEnvironment
	case orchestrator.ClassRuntimeCrash:
		return ExitCrash
	case orchestrator.ClassInterrupted:
		return ExitInterrupted
	default:
		return ExitFailure
	}
}
