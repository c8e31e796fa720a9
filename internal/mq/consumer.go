package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/sweep/internal/domain"
)

// Handler обрабатывает полученное событие.
type Handler func(ctx context.Context, event domain.Event) error

// Subscriber читает события из временной очереди, привязанной к sweep.events.
//
// Очередь exclusive и удаляется вместе с подпиской, поэтому Subscriber
// видит только события, опубликованные после подключения.
type Subscriber struct {
	conn    *Connection
	logger  *slog.Logger
	pattern string
	handler Handler
}

// SubscriberConfig — конфигурация Subscriber.
type SubscriberConfig struct {
	// Pattern — шаблон routing key (default: "#").
	Pattern string

	// Handler — обработчик событий.
	Handler Handler

	Logger *slog.Logger
}

// NewSubscriber создаёт Subscriber.
func NewSubscriber(conn *Connection, cfg SubscriberConfig) *Subscriber {
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = BindAll
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		conn:    conn,
		logger:  logger,
		pattern: pattern,
		handler: cfg.Handler,
	}
}

// Run читает события до отмены ctx или ошибки обработчика.
// При разрыве соединения ждёт переподключения и подписывается заново.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		deliveries, err := s.subscribe()
		if err != nil {
			s.logger.Warn("failed to subscribe to events", "error", err)
			if err := s.conn.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		s.logger.Debug("subscribed to events", "pattern", s.pattern)
		err = s.process(ctx, deliveries)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, errDeliveriesClosed) {
			return err
		}

		s.logger.Warn("event stream interrupted, waiting for reconnect")
		if err := s.conn.waitReconnect(ctx); err != nil {
			return err
		}
	}
}

var errDeliveriesClosed = errors.New("deliveries channel closed")

func (s *Subscriber) subscribe() (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery
	err := s.conn.WithChannel(func(ch *amqp.Channel) error {
		queue, err := declareSubscription(ch, s.pattern)
		if err != nil {
			return err
		}
		deliveries, err = ch.Consume(
			queue, // queue
			"",    // consumer tag
			true,  // auto-ack: подписка только для наблюдения
			true,  // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume: %w", err)
		}
		return nil
	})
	return deliveries, err
}

func (s *Subscriber) process(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			event, err := decodeEvent(raw.Body)
			if err != nil {
				s.logger.Warn("skipping malformed event", "error", err, "message_id", raw.MessageId)
				continue
			}
			if err := s.handler(ctx, event); err != nil {
				return err
			}
		}
	}
}

func decodeEvent(body []byte) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return domain.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == "" {
		return domain.Event{}, errors.New("event without type")
	}
	return event, nil
}
