// Package project находит директории проектов (ProjectLocator).
package project

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/viant/afs"

	"github.com/shaiso/sweep/internal/domain"
)

// Locator находит проекты в search root.
type Locator struct {
	fs     afs.Service
	layout domain.Layout
	logger *slog.Logger
}

// NewLocator создаёт Locator.
func NewLocator(fs afs.Service, layout domain.Layout, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{fs: fs, layout: layout, logger: logger}
}

// Locate возвращает проекты в root.
//
// Если в root лежит template, root — единственный проект, и отсутствие
// остальных обязательных файлов фатально. Иначе проектами считаются
// непосредственные поддиректории со всеми обязательными файлами;
// неполные поддиректории пропускаются с предупреждением.
func (l *Locator) Locate(ctx context.Context, root string) ([]domain.Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	single, err := l.fs.Exists(ctx, filepath.Join(abs, l.layout.Template))
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", abs, err)
	}
	if single {
		missing, err := l.missing(ctx, abs)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingArtifact, missing[0], abs)
		}
		return []domain.Project{domain.NewProject(abs)}, nil
	}

	objects, err := l.fs.List(ctx, abs)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrNoProjectsFound, abs, err)
	}

	var projects []domain.Project
	for i, obj := range objects {
		// List возвращает саму директорию первым элементом
		if i == 0 || !obj.IsDir() {
			continue
		}
		dir := filepath.Join(abs, obj.Name())

		hasTemplate, err := l.fs.Exists(ctx, filepath.Join(dir, l.layout.Template))
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", dir, err)
		}
		if !hasTemplate {
			continue
		}

		missing, err := l.missing(ctx, dir)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			l.logger.Warn("incomplete project folder skipped",
				"path", dir,
				"missing", missing,
			)
			continue
		}
		projects = append(projects, domain.NewProject(dir))
	}

	if len(projects) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoProjectsFound, abs)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Root < projects[j].Root
	})
	return projects, nil
}

// missing возвращает обязательные файлы, которых нет в dir.
func (l *Locator) missing(ctx context.Context, dir string) ([]string, error) {
	var missing []string
	for _, name := range l.layout.Required() {
		ok, err := l.fs.Exists(ctx, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", filepath.Join(dir, name), err)
		}
		if !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
