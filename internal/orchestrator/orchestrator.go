package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/viant/afs"

	"github.com/shaiso/sweep/internal/catalog"
	"github.com/shaiso/sweep/internal/domain"
	"github.com/shaiso/sweep/internal/launcher"
	"github.com/shaiso/sweep/internal/project"
	"github.com/shaiso/sweep/internal/scheduler"
)

// Admission — контроллер admission (scheduler.Controller).
type Admission interface {
	Begin(logger *slog.Logger)
	Admit(ctx context.Context) (scheduler.Decision, error)
	Settle(ctx context.Context, d scheduler.Decision) error
	Running(ctx context.Context) ([]domain.WorkerProcess, error)
	Drain(ctx context.Context) error
	State() scheduler.State
	Ceiling() int
}

// Launcher запускает worker'ы (launcher.Launcher).
type Launcher interface {
	Prepare(ctx context.Context, project domain.Project) error
	Launch(ctx context.Context, project domain.Project, step domain.Step, template []byte) (*domain.Instance, error)
}

// ExitLookup — сведения о завершении запущенных процессов (launcher.Registry).
type ExitLookup interface {
	Exit(stepID int) (launcher.ExitStatus, bool)
	Forget()
}

// Orchestrator обрабатывает проекты search root по очереди.
//
// Orchestrator не хранит состояние между запусками: pending шаги
// каждый раз выводятся из step file и result marker'ов, поэтому
// прерванный запуск безопасно повторить.
type Orchestrator struct {
	fs        afs.Service
	layout    domain.Layout
	locator   *project.Locator
	catalog   *catalog.Store
	admission Admission
	launcher  Launcher
	exits     ExitLookup
	notifiers Notifiers
	cleanup   bool
	logger    *slog.Logger

	runID   uuid.UUID
	state   atomic.Pointer[RunState]
	running atomic.Bool
}

// Config — конфигурация Orchestrator.
type Config struct {
	FS     afs.Service   // default: afs.New()
	Layout domain.Layout // имена артефактов проекта

	Admission Admission
	Launcher  Launcher
	Exits     ExitLookup // опционально

	// Notifiers получают события жизненного цикла (опционально).
	Notifiers []Notifier

	// Cleanup удаляет сгенерированные файлы после завершения проекта.
	Cleanup bool

	// RunID — идентификатор запуска (default: новый UUID).
	RunID uuid.UUID

	Logger *slog.Logger
}

// New создаёт Orchestrator.
func New(cfg Config) *Orchestrator {
	fs := cfg.FS
	if fs == nil {
		fs = afs.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := cfg.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}

	return &Orchestrator{
		fs:        fs,
		layout:    cfg.Layout,
		locator:   project.NewLocator(fs, cfg.Layout, logger),
		catalog:   catalog.NewStore(fs, cfg.Layout),
		admission: cfg.Admission,
		launcher:  cfg.Launcher,
		exits:     cfg.Exits,
		notifiers: cfg.Notifiers,
		cleanup:   cfg.Cleanup,
		logger:    logger,
		runID:     runID,
	}
}

// RunID возвращает идентификатор запуска.
func (o *Orchestrator) RunID() uuid.UUID {
	return o.runID
}

// Run находит проекты в root и обрабатывает их строго последовательно.
//
// Если проектов несколько, сначала проверяется каждый, и уже выполненные
// пропускаются. Первая фатальная ошибка останавливает запуск.
func (o *Orchestrator) Run(ctx context.Context, root string) (err error) {
	if !o.running.CompareAndSwap(false, true) {
		return ErrOrchestratorBusy
	}
	defer o.running.Store(false)

	projects, err := o.locator.Locate(ctx, root)
	if err != nil {
		return err
	}

	state := NewRunState(o.runID, projects)
	state.SetAdmission(string(o.admission.State()), o.admission.Ceiling())
	o.state.Store(state)

	o.logger.Info("starting run", "projects", len(projects), "root", root)
	o.emit(ctx, o.event(domain.EventRunStarted, ""))
	defer func() {
		finished := o.event(domain.EventRunFinished, "")
		if err != nil {
			finished.Message = err.Error()
		}
		o.emit(ctx, finished)
	}()

	toRun := projects
	if len(projects) > 1 {
		toRun, err = o.precheck(ctx, projects, state)
		if err != nil {
			return err
		}
	}

	for i, p := range toRun {
		if len(toRun) > 1 {
			o.logger.Info("started project", "project", p.Name, "number", i+1, "of", len(toRun))
		}
		if err := o.RunProject(ctx, p); err != nil {
			return err
		}
	}

	o.logger.Info("run is complete", "projects", len(projects))
	return nil
}

// precheck отбрасывает проекты, у которых все шаги уже выполнены.
func (o *Orchestrator) precheck(ctx context.Context, projects []domain.Project, state *RunState) ([]domain.Project, error) {
	var toRun []domain.Project
	for _, p := range projects {
		cat, err := o.catalog.Load(ctx, p)
		if err != nil {
			state.Finish(p.Root, domain.ProjectStatusFailed, err)
			return nil, err
		}
		if len(cat.Pending) == 0 {
			o.logger.Info("project is already complete", "project", p.Name, "steps", len(cat.All))
			state.Skip(p.Root, len(cat.All))
			o.emit(ctx, o.event(domain.EventProjectSkipped, p.Name))
			continue
		}
		o.logger.Info("project has steps to run",
			"project", p.Name,
			"pending", len(cat.Pending),
			"total", len(cat.All),
		)
		toRun = append(toRun, p)
	}
	return toRun, nil
}

// Progress возвращает прогресс текущего или последнего запуска.
func (o *Orchestrator) Progress() domain.Progress {
	state := o.state.Load()
	if state == nil {
		return domain.Progress{
			RunID:       o.runID.String(),
			Concurrency: o.admission.Ceiling(),
			Admission:   string(o.admission.State()),
		}
	}
	return state.Snapshot()
}

// Status сообщает, сколько шагов осталось в каждом проекте root,
// ничего не запуская.
func (o *Orchestrator) Status(ctx context.Context, root string) (domain.Progress, error) {
	projects, err := o.locator.Locate(ctx, root)
	if err != nil {
		return domain.Progress{}, err
	}

	progress := domain.Progress{
		Concurrency: o.admission.Ceiling(),
		Projects:    make([]domain.ProjectProgress, 0, len(projects)),
	}
	for _, p := range projects {
		cat, err := o.catalog.Load(ctx, p)
		if err != nil {
			return domain.Progress{}, fmt.Errorf("project %s: %w", p.Name, err)
		}
		status := domain.ProjectStatusPending
		if len(cat.Pending) == 0 {
			status = domain.ProjectStatusCompleted
		}
		progress.Projects = append(progress.Projects, domain.ProjectProgress{
			Name:       p.Name,
			Root:       p.Root,
			Status:     status,
			TotalSteps: len(cat.All),
			Pending:    len(cat.Pending),
		})
	}
	return progress, nil
}
