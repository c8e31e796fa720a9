package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/sweep/internal/domain"
	"github.com/shaiso/sweep/internal/scheduler"
	"github.com/shaiso/sweep/internal/telemetry"
)

// RunProject запускает все невыполненные шаги проекта и дожидается
// завершения его worker'ов.
//
// Шаги запускаются по убыванию веса. Перед каждым запуском marker шага
// проверяется ещё раз: его мог записать предыдущий или параллельный запуск.
func (o *Orchestrator) RunProject(ctx context.Context, p domain.Project) error {
	logger := telemetry.WithProject(o.logger, p.Name)
	state := o.stateFor(p)

	cat, err := o.catalog.Load(ctx, p)
	if err != nil {
		state.Finish(p.Root, domain.ProjectStatusFailed, err)
		return err
	}
	pending := scheduler.Order(cat.Pending)
	telemetry.StepsPending.WithLabelValues(p.Name).Set(float64(len(pending)))

	if len(pending) == 0 {
		logger.Info("project is already complete", "steps", len(cat.All))
		state.Skip(p.Root, len(cat.All))
		o.emit(ctx, o.event(domain.EventProjectSkipped, p.Name))
		return nil
	}

	logger.Info("steps are not yet completed, starting from the heaviest",
		"pending", len(pending),
		"total", len(cat.All),
	)
	state.Start(p.Root, len(cat.All), len(pending))
	o.emit(ctx, o.event(domain.EventProjectStarted, p.Name))

	if err := o.launchAll(ctx, p, pending, state, logger); err != nil {
		state.Finish(p.Root, domain.ProjectStatusFailed, err)
		return err
	}

	logger.Info("waiting for the last workers of the project to finish")
	state.Draining(p.Root)
	err = o.admission.Drain(ctx)
	state.SetAdmission(string(o.admission.State()), o.admission.Ceiling())
	if err != nil {
		state.Finish(p.Root, domain.ProjectStatusFailed, err)
		return err
	}

	if o.cleanup {
		o.cleanupProject(ctx, p, logger)
	}

	state.Finish(p.Root, domain.ProjectStatusCompleted, nil)
	o.emit(ctx, o.event(domain.EventProjectCompleted, p.Name))
	logger.Info("project is complete")
	return nil
}

func (o *Orchestrator) launchAll(ctx context.Context, p domain.Project, pending []domain.Step, state *RunState, logger *slog.Logger) error {
	templatePath := p.Path(o.layout.Template)
	template, err := o.fs.DownloadWithURL(ctx, templatePath)
	if err != nil {
		return fmt.Errorf("read template %s: %w", templatePath, err)
	}
	if err := o.launcher.Prepare(ctx, p); err != nil {
		return err
	}
	if o.exits != nil {
		o.exits.Forget()
	}

	o.admission.Begin(logger)
	for i, step := range pending {
		stepLogger := telemetry.WithStep(logger, step.ID)

		done, err := o.catalog.MarkerExists(ctx, p, step.ID)
		if err != nil {
			return err
		}
		if done {
			stepLogger.Info("step already has output data, skipping")
			state.StepSkipped(p.Root)
			telemetry.StepsSkipped.WithLabelValues(p.Name).Inc()
			telemetry.StepsPending.WithLabelValues(p.Name).Dec()
			skipped := o.event(domain.EventStepSkipped, p.Name)
			skipped.StepID = step.ID
			o.emit(ctx, skipped)
			continue
		}

		decision, err := o.admission.Admit(ctx)
		state.SetAdmission(string(o.admission.State()), o.admission.Ceiling())
		if err != nil {
			return err
		}

		inst, err := o.launcher.Launch(ctx, p, step, template)
		if err != nil {
			return err
		}
		stepLogger.Info("starting instance",
			"number", i+1,
			"of", len(pending),
			"weight", step.Weight,
			"pid", inst.PID,
			"admission", decision.Reason,
		)
		state.StepLaunched(p.Root)
		telemetry.StepsLaunched.WithLabelValues(p.Name).Inc()
		telemetry.StepsPending.WithLabelValues(p.Name).Dec()
		launched := o.event(domain.EventStepLaunched, p.Name)
		launched.StepID = step.ID
		launched.Weight = step.Weight
		launched.PID = inst.PID
		o.emit(ctx, launched)

		if err := o.admission.Settle(ctx, decision); err != nil {
			return err
		}
		if err := o.checkCrash(ctx, p, step, inst, stepLogger); err != nil {
			return err
		}
	}
	return nil
}

// stateFor возвращает RunState текущего запуска; при вызове RunProject
// напрямую создаёт RunState из одного проекта.
func (o *Orchestrator) stateFor(p domain.Project) *RunState {
	if state := o.state.Load(); state != nil {
		return state
	}
	state := NewRunState(o.runID, []domain.Project{p})
	o.state.Store(state)
	return state
}
