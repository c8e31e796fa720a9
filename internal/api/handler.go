package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/sweep/internal/domain"
	"github.com/shaiso/sweep/internal/repo"
)

// ProgressSource — источник прогресса текущего запуска (orchestrator.Orchestrator).
type ProgressSource interface {
	Progress() domain.Progress
}

// Journal — журнал прошлых запусков (repo.JournalRepo).
type Journal interface {
	ListRuns(ctx context.Context, limit int) ([]repo.RunRecord, error)
	GetRun(ctx context.Context, id uuid.UUID) (*repo.RunRecord, error)
	ListEvents(ctx context.Context, runID uuid.UUID) ([]domain.Event, error)
}

// Handler — обработчики API.
type Handler struct {
	progress ProgressSource
	journal  Journal
	logger   *slog.Logger
}

// Config — конфигурация Handler.
type Config struct {
	Progress ProgressSource
	Journal  Journal // опционально: без него /runs отвечает 404
	Logger   *slog.Logger
}

// NewHandler создаёт Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		progress: cfg.Progress,
		journal:  cfg.Journal,
		logger:   logger,
	}
}
