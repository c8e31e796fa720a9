package orchestrator

import (
	"context"
	"log/slog"

	"github.com/shaiso/sweep/internal/domain"
)

// cleanupProject удаляет сгенерированные конфигурации и header-файлы.
// Result marker'ы и логи не трогаются. Ошибки только логируются.
func (o *Orchestrator) cleanupProject(ctx context.Context, p domain.Project, logger *slog.Logger) {
	objects, err := o.fs.List(ctx, p.Root)
	if err != nil {
		logger.Warn("cleanup skipped", "error", err)
		return
	}

	removed := 0
	for i, obj := range objects {
		if i == 0 || obj.IsDir() {
			continue
		}
		name := obj.Name()
		if name != o.layout.GeneratedConfig && !o.layout.IsStepConfig(name) && !o.layout.IsHeader(name) {
			continue
		}
		if err := o.fs.Delete(ctx, p.Path(name)); err != nil {
			logger.Warn("failed to remove generated file", "file", name, "error", err)
			continue
		}
		removed++
	}
	logger.Info("cleaned up generated files", "removed", removed)
}
