package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viant/afs"

	"github.com/shaiso/sweep/internal/api"
	"github.com/shaiso/sweep/internal/config"
	"github.com/shaiso/sweep/internal/launcher"
	"github.com/shaiso/sweep/internal/mq"
	"github.com/shaiso/sweep/internal/orchestrator"
	"github.com/shaiso/sweep/internal/repo"
	"github.com/shaiso/sweep/internal/resource"
	"github.com/shaiso/sweep/internal/scheduler"
	"github.com/shaiso/sweep/internal/telemetry"
)

// ConfigFunc загружает конфигурацию после парсинга PersistentFlags.
type ConfigFunc func() (*config.Config, error)

// runtime — собранные компоненты одного запуска.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    *orchestrator.Orchestrator
	journal *repo.JournalRepo
	closers []func() error
}

// newRuntime собирает оркестратор. Если launch == false, worker не
// ищется и ресурсы не измеряются: такой runtime годится только для Status.
func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, launch bool) (*runtime, error) {
	rt := &runtime{cfg: cfg}
	fs := afs.New()

	ctrlCfg := scheduler.Config{
		WorkerName:            cfg.WorkerName,
		MaxInstances:          cfg.MaxInstances,
		AutoConcurrency:       cfg.AutoConcurrency,
		SettleDelay:           cfg.SettleDelay,
		SafetyFactor:          cfg.RAMSafetyFactor,
		MaxCPULoadPercent:     cfg.MaxCPULoadPercent,
		SingleInstanceBackoff: cfg.SingleInstanceBackoff,
		AutoDetectWindow:      cfg.AutoDetectWindow,
	}

	orchCfg := orchestrator.Config{
		FS:      fs,
		Layout:  cfg.Layout,
		Cleanup: cfg.Cleanup,
	}

	if launch {
		worker, err := launcher.ResolveWorker(cfg.WorkerPath, cfg.WorkerName)
		if err != nil {
			return nil, err
		}

		sampler, err := resource.NewSampler(cfg.CPUSampleWindow)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEnvironment, err)
		}
		processes, err := resource.NewProcessTable()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEnvironment, err)
		}

		registry := launcher.NewRegistry()
		l, err := launcher.New(launcher.Config{
			FS:       fs,
			Layout:   cfg.Layout,
			Worker:   worker,
			Mode:     cfg.ConfigMode,
			Registry: registry,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		ctrlCfg.Processes = processes
		ctrlCfg.Sampler = sampler
		ctrlCfg.Launched = registry
		orchCfg.Launcher = l
		orchCfg.Exits = registry
		logger.Info("worker resolved", "path", worker, "config_mode", cfg.ConfigMode)
	}

	ctrlCfg.Logger = logger
	orchCfg.Admission = scheduler.New(ctrlCfg)

	if launch {
		orchCfg.Notifiers = rt.notifiers(ctx, logger)
	}

	orchCfg.Logger = logger
	rt.orch = orchestrator.New(orchCfg)
	rt.logger = telemetry.WithRunID(logger, rt.orch.RunID().String())
	return rt, nil
}

// notifiers подключает необязательные приёмники событий.
// Недоступный брокер или база не останавливают запуск.
func (rt *runtime) notifiers(ctx context.Context, logger *slog.Logger) []orchestrator.Notifier {
	var notifiers []orchestrator.Notifier

	if rt.cfg.AMQPURL != "" {
		conn, err := mq.Dial(rt.cfg.AMQPURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, events will not be published", "error", err)
		} else {
			rt.closers = append(rt.closers, conn.Close)
			if err := mq.SetupTopology(conn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			notifiers = append(notifiers, mq.NewEventPublisher(conn, logger))
			logger.Info("RabbitMQ connected")
		}
	}

	if rt.cfg.DatabaseURL != "" && rt.openJournal(ctx, logger) {
		notifiers = append(notifiers, rt.journal)
	}
	return notifiers
}

func (rt *runtime) openJournal(ctx context.Context, logger *slog.Logger) bool {
	pool, err := repo.NewPool(ctx, rt.cfg.DatabaseURL)
	if err != nil {
		logger.Warn("database not available, run journal is disabled", "error", err)
		return false
	}
	if err := repo.Migrate(ctx, pool); err != nil {
		pool.Close()
		logger.Warn("failed to migrate run journal", "error", err)
		return false
	}
	rt.closers = append(rt.closers, func() error {
		pool.Close()
		return nil
	})
	rt.journal = repo.NewJournalRepo(pool, rt.cfg.SearchRoot)
	logger.Info("database connected")
	return true
}

// serve запускает HTTP с /healthz, /metrics и API, пока жив ctx.
func (rt *runtime) serve(ctx context.Context, addr string, progress api.ProgressSource) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	apiCfg := api.Config{Progress: progress, Logger: rt.logger}
	if rt.journal != nil {
		apiCfg.Journal = rt.journal
	}
	api.NewHandler(apiCfg).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.logger.Warn("http shutdown", "error", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	return errors.Join(errs...)
}
