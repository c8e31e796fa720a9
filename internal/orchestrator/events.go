package orchestrator

import (
	"context"
	"errors"

	"github.com/shaiso/sweep/internal/domain"
)

// Notifier получает события жизненного цикла запуска.
//
// Реализации: mq.EventPublisher (RabbitMQ), repo.JournalRepo (Postgres).
// Ошибка Notifier'а логируется и не останавливает запуск.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event) error
}

// Notifiers рассылает событие всем получателям.
type Notifiers []Notifier

// Notify вызывает каждый Notifier и объединяет ошибки.
func (n Notifiers) Notify(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, notifier := range n {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// emit отправляет событие, не прерывая запуск при ошибке.
func (o *Orchestrator) emit(ctx context.Context, event domain.Event) {
	if len(o.notifiers) == 0 {
		return
	}
	// события отправляются и после отмены запуска (run.finished)
	if err := o.notifiers.Notify(context.WithoutCancel(ctx), event); err != nil {
		o.logger.Warn("failed to deliver event",
			"event_type", event.Type,
			"project", event.Project,
			"error", err,
		)
	}
}

func (o *Orchestrator) event(eventType domain.EventType, project string) domain.Event {
	return domain.NewEvent(o.runID, eventType, project)
}
