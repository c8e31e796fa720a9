package orchestrator

import (
	"context"
	"log/slog"

	"github.com/shaiso/sweep/internal/domain"
	"github.com/shaiso/sweep/internal/telemetry"
)

// checkCrash проверяет после settle delay, что worker'ы живы.
//
// Отсутствие worker'ов — падение, если только шаг не успел завершиться
// и записать свой marker. Падение не перезапускается: оно обычно
// указывает на ошибку в template, которая повторится на всех шагах.
func (o *Orchestrator) checkCrash(ctx context.Context, p domain.Project, step domain.Step, inst *domain.Instance, logger *slog.Logger) error {
	workers, err := o.admission.Running(ctx)
	if err != nil {
		return err
	}
	if len(workers) > 0 {
		return nil
	}

	done, err := o.catalog.MarkerExists(ctx, p, step.ID)
	if err != nil {
		return err
	}
	if done {
		logger.Debug("worker already finished")
		return nil
	}

	crash := &CrashError{Project: p.Name, StepID: step.ID, LogPath: inst.LogPath}
	if o.exits != nil {
		if status, ok := o.exits.Exit(step.ID); ok && status.Exited {
			crash.ExitErr = status.Err
		}
	}

	logger.Error("worker processes are not running, the last launched instance likely crashed",
		"log", inst.LogPath,
		"exit_error", crash.ExitErr,
	)
	telemetry.WorkerCrashes.WithLabelValues(p.Name).Inc()
	crashed := o.event(domain.EventWorkerCrashed, p.Name)
	crashed.StepID = step.ID
	crashed.PID = inst.PID
	crashed.Message = crash.Error()
	o.emit(ctx, crashed)

	return crash
}
