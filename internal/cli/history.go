package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/sweep/internal/domain"
)

// NewHistoryCmd создаёт группу команд для чтения журнала запусков.
func NewHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse the run journal",
	}

	cmd.AddCommand(
		newHistoryListCmd(clientFn, outputFn),
		newHistoryEventsCmd(clientFn, outputFn),
	)

	return cmd
}

func newHistoryListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := clientFn().ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "ROOT", "STARTED", "FINISHED", "LAUNCHED", "CRASHES", "ERROR"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				finishedAt := ""
				if r.FinishedAt != nil {
					finishedAt = r.FinishedAt.Format(time.DateTime)
				}
				rows[i] = []string{
					r.ID.String(),
					r.Root,
					r.StartedAt.Format(time.DateTime),
					finishedAt,
					strconv.Itoa(r.Launched),
					strconv.Itoa(r.Crashes),
					r.Error,
				}
			}

			outputFn().Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")

	return cmd
}

func newHistoryEventsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "events RUN_ID",
		Short: "Show the events of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := clientFn().ListRunEvents(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := outputFn()
			for _, e := range events {
				out.Event(e)
			}
			return nil
		},
	}
}

// idleProgress — источник прогресса для сервера без активного запуска.
type idleProgress struct{}

func (idleProgress) Progress() domain.Progress { return domain.Progress{} }

// NewServeCmd создаёт команду, которая отдаёт журнал запусков по HTTP
// без запуска worker'ов.
func NewServeCmd(configFn ConfigFunc) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run journal API, /healthz and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFn()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}
			if cfg.ListenAddr == "" {
				cfg.ListenAddr = ":8080"
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("%w: database_url is empty", ErrNotConfigured)
			}

			ctx := cmd.Context()
			logger := slog.Default()
			rt := &runtime{cfg: cfg, logger: logger}
			defer rt.Close()

			if !rt.openJournal(ctx, logger) {
				return fmt.Errorf("%w: run journal database is not reachable", ErrNotConfigured)
			}
			if err := rt.serve(ctx, cfg.ListenAddr, idleProgress{}); err != nil {
				return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
			}

			<-ctx.Done()
			logger.Info("journal server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default: listen_addr from config or :8080)")

	return cmd
}
