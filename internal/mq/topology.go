package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/sweep/internal/domain"
)

// Имена объектов RabbitMQ.
const (
	// ExchangeEvents — topic exchange событий; routing key — тип события.
	ExchangeEvents = "sweep.events"

	// QueueEventsLog — durable очередь со всеми событиями для внешних потребителей.
	QueueEventsLog = "sweep.events.log"

	// BindAll — шаблон, совпадающий с любым типом события.
	BindAll = "#"
)

// SetupTopology объявляет exchange и журнальную очередь.
// Повторный вызов безопасен.
func SetupTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(
			ExchangeEvents, // name
			"topic",        // type
			true,           // durable
			false,          // auto-deleted
			false,          // internal
			false,          // no-wait
			nil,            // arguments
		); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}

		if _, err := ch.QueueDeclare(
			QueueEventsLog, // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			nil,            // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueEventsLog, err)
		}

		if err := ch.QueueBind(QueueEventsLog, BindAll, ExchangeEvents, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", QueueEventsLog, err)
		}
		return nil
	})
}

// RoutingKey возвращает routing key события: "step.launched", "worker.crashed", ...
func RoutingKey(t domain.EventType) string {
	return string(t)
}

// declareSubscription создаёт временную exclusive очередь подписчика.
func declareSubscription(ch *amqp.Channel, pattern string) (string, error) {
	q, err := ch.QueueDeclare(
		"",    // имя назначит сервер
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("declare subscriber queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, pattern, ExchangeEvents, false, nil); err != nil {
		return "", fmt.Errorf("bind subscriber queue: %w", err)
	}
	return q.Name, nil
}
