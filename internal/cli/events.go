package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shaiso/sweep/internal/domain"
	"github.com/shaiso/sweep/internal/mq"
)

// NewEventsCmd создаёт команду, печатающую события запусков из RabbitMQ.
func NewEventsCmd(configFn ConfigFunc, outputFn func() *Output) *cobra.Command {
	var pattern string
	var amqpURL string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow lifecycle events published by running sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFn()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("amqp-url") {
				cfg.AMQPURL = amqpURL
			}
			if cfg.AMQPURL == "" {
				return fmt.Errorf("%w: amqp_url is empty", ErrNotConfigured)
			}

			logger := slog.Default()
			conn, err := mq.Dial(cfg.AMQPURL, logger)
			if err != nil {
				return fmt.Errorf("connect to RabbitMQ: %w", err)
			}
			defer conn.Close()

			if err := mq.SetupTopology(conn); err != nil {
				return fmt.Errorf("setup topology: %w", err)
			}

			out := outputFn()
			sub := mq.NewSubscriber(conn, mq.SubscriberConfig{
				Pattern: pattern,
				Logger:  logger,
				Handler: func(_ context.Context, e domain.Event) error {
					out.Event(e)
					return nil
				},
			})

			err = sub.Run(cmd.Context())
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", mq.BindAll, "Routing key pattern, e.g. step.* or worker.crashed")
	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL (default: amqp_url from config)")

	return cmd
}
