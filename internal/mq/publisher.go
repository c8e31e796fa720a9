package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/sweep/internal/domain"
)

// EventPublisher публикует события запуска в exchange sweep.events.
// Реализует orchestrator.Notifier.
type EventPublisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewEventPublisher создаёт EventPublisher.
func NewEventPublisher(conn *Connection, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{conn: conn, logger: logger}
}

// Notify публикует событие с routing key, равным его типу.
func (p *EventPublisher) Notify(ctx context.Context, event domain.Event) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}
	key := RoutingKey(event.Type)

	return p.conn.WithChannel(func(ch *amqp.Channel) error {
		if err := ch.PublishWithContext(ctx, ExchangeEvents, key, false, false, msg); err != nil {
			return fmt.Errorf("publish %s: %w", key, err)
		}
		p.logger.Debug("published event",
			"routing_key", key,
			"event_id", event.ID,
		)
		return nil
	})
}

func encodeEvent(event domain.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Type:         string(event.Type),
		Timestamp:    event.Timestamp,
		Body:         body,
	}, nil
}
