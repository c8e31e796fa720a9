package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/sweep/internal/config"
)

// runFlags — флаги `sweep run`, перекрывающие конфигурацию.
type runFlags struct {
	maxInstances    int
	autoConcurrency bool
	worker          string
	workerName      string
	settleDelay     string
	configMode      string
	listen          string
	cleanup         bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVar(&f.maxInstances, "max-instances", 0, "Maximum number of concurrent workers")
	fl.BoolVar(&f.autoConcurrency, "auto-concurrency", true, "Derive the ceiling from the CPU load of one worker")
	fl.StringVar(&f.worker, "worker", "", "Worker executable or directory containing it (default: search PATH)")
	fl.StringVar(&f.workerName, "worker-name", "", "Worker executable name without extension")
	fl.StringVar(&f.settleDelay, "settle-delay", "", "Delay after each launch, seconds or Go duration")
	fl.StringVar(&f.configMode, "config-mode", "", "How step parameters reach the worker: per-step or shared")
	fl.StringVar(&f.listen, "listen", "", "Serve /healthz, /metrics and the progress API on this address")
	fl.BoolVar(&f.cleanup, "cleanup", true, "Remove generated files after a project completes")
}

// apply переносит в cfg только явно заданные флаги.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("max-instances") {
		cfg.MaxInstances = f.maxInstances
	}
	if fl.Changed("auto-concurrency") {
		cfg.AutoConcurrency = f.autoConcurrency
	}
	if fl.Changed("worker") {
		cfg.WorkerPath = f.worker
	}
	if fl.Changed("worker-name") {
		cfg.WorkerName = f.workerName
	}
	if fl.Changed("settle-delay") {
		d, err := config.ParseSeconds(f.settleDelay)
		if err != nil {
			return fmt.Errorf("%w: settle-delay: %w", ErrInvalidConfig, err)
		}
		cfg.SettleDelay = d
	}
	if fl.Changed("config-mode") {
		cfg.ConfigMode = config.ConfigMode(f.configMode)
	}
	if fl.Changed("listen") {
		cfg.ListenAddr = f.listen
	}
	if fl.Changed("cleanup") {
		cfg.Cleanup = f.cleanup
	}
	return nil
}

// NewRunCmd создаёт команду запуска всех невыполненных шагов.
func NewRunCmd(configFn ConfigFunc, outputFn func() *Output) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [SEARCH_ROOT]",
		Short: "Launch all pending steps of every project under the search root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFn()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.SearchRoot = args[0]
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, slog.Default(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			if cfg.ListenAddr != "" {
				if err := rt.serve(ctx, cfg.ListenAddr, rt.orch); err != nil {
					return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
				}
			}

			started := time.Now()
			runErr := rt.orch.Run(ctx, cfg.SearchRoot)

			progress := rt.orch.Progress()
			out := outputFn()
			out.Progress(&progress)

			if runErr != nil {
				return runErr
			}
			out.Success(fmt.Sprintf("All steps launched and finished in %s", time.Since(started).Round(time.Second)))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// NewStatusCmd создаёт команду, показывающую невыполненные шаги без запуска.
func NewStatusCmd(configFn ConfigFunc, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status [SEARCH_ROOT]",
		Short: "Show how many steps are still pending in each project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFn()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.SearchRoot = args[0]
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
			}

			rt, err := newRuntime(cmd.Context(), cfg, slog.Default(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			progress, err := rt.orch.Status(cmd.Context(), cfg.SearchRoot)
			if err != nil {
				return err
			}
			outputFn().Progress(&progress)
			return nil
		},
	}
}
