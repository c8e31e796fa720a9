// sweep запускает параметрические шаги расчётов Elmer FEM с учётом
// свободной памяти и загрузки CPU.
//
// Использование:
//
//	sweep [--config FILE] [--json] <command> [flags]
//
// Команды:
//
//	run           Запуск всех невыполненных шагов
//	status        Сколько шагов осталось
//	watch         Прогресс запуска, начатого с --listen
//	events        События запусков из RabbitMQ
//	history       Журнал запусков
//	serve         HTTP API журнала
//	convert-mesh  Конвертация сетки .unv через ElmerGrid
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/sweep/internal/cli"
	"github.com/shaiso/sweep/internal/config"
	"github.com/shaiso/sweep/internal/orchestrator"
	"github.com/shaiso/sweep/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	logger := telemetry.SetupLogger()

	var configPath string
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "sweep",
		Short:         "sweep runs parametric Elmer FEM steps within the memory and CPU of one host",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SWEEP_CONFIG"), "YAML config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL for watch and history")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	configFn := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrInvalidConfig, err)
		}
		if err := cfg.ApplyEnv(); err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrInvalidConfig, err)
		}
		return cfg, nil
	}
	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(configFn, outputFn),
		cli.NewStatusCmd(configFn, outputFn),
		cli.NewWatchCmd(clientFn, outputFn),
		cli.NewEventsCmd(configFn, outputFn),
		cli.NewHistoryCmd(clientFn, outputFn),
		cli.NewServeCmd(configFn),
		cli.NewConvertMeshCmd(outputFn),
	)

	// graceful shutdown: запущенные worker'ы продолжают работать
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return cli.ExitOK
	}

	code := cli.ExitCode(err)
	var crash *orchestrator.CrashError
	switch {
	case code == cli.ExitInterrupted:
		logger.Warn("interrupted, running workers were left alive")
	case errors.As(err, &crash):
		logger.Error("worker crashed", "project", crash.Project, "step_id", crash.StepID, "log", crash.LogPath)
		fmt.Fprintln(os.Stderr, "Error:", err)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return code
}
