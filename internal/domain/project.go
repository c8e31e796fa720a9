package domain

import "path/filepath"

// Project — директория с входными данными одного frequency sweep.
//
// Project валиден по построению: ProjectLocator возвращает только директории,
// в которых присутствуют все обязательные артефакты (step file, template, mesh).
// Project не изменяется в течение запуска.
type Project struct {
	// Root — абсолютный путь к директории проекта.
	Root string `json:"root"`

	// Name — имя директории (для логов и метрик).
	Name string `json:"name"`
}

// NewProject создаёт Project по пути к директории.
func NewProject(root string) Project {
	return Project{
		Root: filepath.Clean(root),
		Name: filepath.Base(filepath.Clean(root)),
	}
}

// Path возвращает путь к файлу внутри проекта.
func (p Project) Path(name string) string {
	return filepath.Join(p.Root, name)
}
