package project

import "errors"

// Ошибки поиска проектов.
var (
	// ErrNoProjectsFound — в search root нет ни одного валидного проекта.
	ErrNoProjectsFound = errors.New("no valid projects found")

	// ErrMissingArtifact — в проекте нет обязательного файла.
	ErrMissingArtifact = errors.New("required project artifact missing")
)
