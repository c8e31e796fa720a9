package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shaiso/sweep/internal/domain"
	"github.com/shaiso/sweep/internal/telemetry"
)

// State — состояние admission автомата в рамках одного проекта.
type State string

const (
	// StateAdmitFirst — первый шаг проекта запускается без проверки.
	StateAdmitFirst State = "ADMIT_FIRST"

	// StateSteadyState — каждый следующий шаг ждёт ресурсов.
	StateSteadyState State = "STEADY_STATE"

	// StateDrain — очередь пуста, ждём завершения worker'ов.
	StateDrain State = "DRAIN"

	// StateDone — worker'ов проекта не осталось.
	StateDone State = "DONE"
)

// Reason — почему admission принял решение.
type Reason string

const (
	ReasonFirst       Reason = "first"        // первый шаг проекта
	ReasonNoneRunning Reason = "none_running" // не найдено ни одного worker'а
	ReasonResources   Reason = "resources"    // хватает памяти и CPU

	ReasonCeiling Reason = "ceiling" // достигнут потолок параллельности
	ReasonMemory  Reason = "memory"  // мало свободной памяти
	ReasonCPU     Reason = "cpu"     // высокая загрузка CPU
)

// ProcessSource — таблица процессов ОС.
type ProcessSource interface {
	Workers(ctx context.Context, name string) ([]domain.WorkerProcess, error)
	Process(ctx context.Context, pid int) (domain.WorkerProcess, error)
	CPUPercent(ctx context.Context, pid int, window time.Duration) (float64, error)
}

// Sampler снимает ResourceSnapshot.
type Sampler interface {
	Snapshot(ctx context.Context) (domain.ResourceSnapshot, error)
}

// LaunchedSource — процессы, запущенные этим планировщиком и ещё не завершённые.
type LaunchedSource interface {
	Running() []domain.Instance
}

// Decision — результат admission.
type Decision struct {
	Reason   Reason
	Workers  int
	PeakRSS  uint64
	Snapshot *domain.ResourceSnapshot
}

// Config — конфигурация Controller.
type Config struct {
	Processes ProcessSource
	Sampler   Sampler
	Launched  LaunchedSource // опционально
	Logger    *slog.Logger

	WorkerName            string
	MaxInstances          int           // потолок параллельности (default: 8)
	AutoConcurrency       bool          // пересчитать потолок по CPU одного worker'а
	SettleDelay           time.Duration // default: 7s
	SafetyFactor          float64       // default: 0.95
	MaxCPULoadPercent     float64       // default: 80
	SingleInstanceBackoff float64       // множитель settle при одном worker'е (default: 4)
	AutoDetectWindow      time.Duration // default: 1s
}

// Controller решает, можно ли запустить следующий worker.
//
// Controller живёт весь запуск: потолок, вычисленный auto concurrency,
// переносится между проектами. Begin сбрасывает автомат в ADMIT_FIRST
// перед каждым проектом.
type Controller struct {
	processes ProcessSource
	sampler   Sampler
	launched  LaunchedSource
	logger    *slog.Logger

	workerName   string
	settle       time.Duration
	safety       float64
	maxCPU       float64
	backoff      float64
	detectWindow time.Duration

	ceiling    int
	autoDetect bool
	state      State

	sleep func(ctx context.Context, d time.Duration) error
}

// New создаёт Controller.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ceiling := cfg.MaxInstances
	if ceiling <= 0 {
		ceiling = 8
	}
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = 7 * time.Second
	}
	safety := cfg.SafetyFactor
	if safety <= 0 {
		safety = 0.95
	}
	maxCPU := cfg.MaxCPULoadPercent
	if maxCPU <= 0 {
		maxCPU = 80
	}
	backoff := cfg.SingleInstanceBackoff
	if backoff < 0 {
		backoff = 0
	} else if backoff == 0 {
		backoff = 4
	}
	window := cfg.AutoDetectWindow
	if window <= 0 {
		window = time.Second
	}

	telemetry.Concurrency.Set(float64(ceiling))

	return &Controller{
		processes:    cfg.Processes,
		sampler:      cfg.Sampler,
		launched:     cfg.Launched,
		logger:       logger,
		workerName:   cfg.WorkerName,
		settle:       settle,
		safety:       safety,
		maxCPU:       maxCPU,
		backoff:      backoff,
		detectWindow: window,
		ceiling:      ceiling,
		autoDetect:   cfg.AutoConcurrency,
		state:        StateDone,
		sleep:        sleep,
	}
}

// State возвращает текущее состояние автомата.
func (c *Controller) State() State {
	return c.state
}

// Ceiling возвращает текущий потолок параллельности.
func (c *Controller) Ceiling() int {
	return c.ceiling
}

// Begin переводит автомат в ADMIT_FIRST для нового проекта.
func (c *Controller) Begin(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
	c.state = StateAdmitFirst
}

// Admit блокирует, пока запуск следующего worker'а не станет допустимым.
//
// Первый вызов после Begin разрешает запуск сразу. Дальше Admit опрашивает
// таблицу процессов с интервалом settle delay. Ожидание ресурсов не
// является ошибкой; ошибка возвращается только при отмене контекста или
// сбое чтения таблицы процессов и снимка ресурсов.
func (c *Controller) Admit(ctx context.Context) (Decision, error) {
	switch c.state {
	case StateAdmitFirst:
		c.state = StateSteadyState
		return Decision{Reason: ReasonFirst}, nil
	case StateSteadyState:
	default:
		return Decision{}, fmt.Errorf("%w: admit in %s", ErrInvalidState, c.state)
	}

	if c.autoDetect {
		c.detectCeiling(ctx)
	}

	for {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}

		workers, err := c.workers(ctx)
		if err != nil {
			return Decision{}, err
		}
		telemetry.WorkersRunning.Set(float64(len(workers)))

		d := Decision{Workers: len(workers)}
		if len(workers) == 0 {
			d.Reason = ReasonNoneRunning
			return d, nil
		}

		if len(workers) >= c.ceiling {
			d.Reason = ReasonCeiling
			c.logger.Info("waiting for a worker to finish",
				"running", len(workers),
				"max_instances", c.ceiling,
			)
		} else {
			d.PeakRSS = peakRSS(workers)
			snap, err := c.sampler.Snapshot(ctx)
			if err != nil {
				return Decision{}, fmt.Errorf("resource snapshot: %w", err)
			}
			d.Snapshot = &snap
			telemetry.AvailableMemory.Set(float64(snap.AvailableMemory))
			telemetry.CPULoad.Set(snap.CPULoadPercent)

			d.Reason = c.check(d.PeakRSS, snap)
			if d.Reason == ReasonResources {
				c.logger.Info("enough resources to run one more",
					"available_gib", round1(domain.BytesToGiB(snap.AvailableMemory)),
					"cpu_load_percent", round1(snap.CPULoadPercent),
					"running", len(workers),
				)
				return d, nil
			}
			c.logWait(d, snap)

			if len(workers) == 1 && c.backoff > 0 {
				if err := c.sleep(ctx, c.scaled(c.backoff)); err != nil {
					return Decision{}, err
				}
			}
		}

		telemetry.AdmissionWaits.WithLabelValues(string(d.Reason)).Inc()
		if err := c.sleep(ctx, c.settle); err != nil {
			return Decision{}, err
		}
	}
}

// check сравнивает снимок с порогами. peakRSS × safety — необходимая память.
func (c *Controller) check(peak uint64, snap domain.ResourceSnapshot) Reason {
	if snap.CPULoadPercent >= c.maxCPU {
		return ReasonCPU
	}
	if float64(snap.AvailableMemory) < float64(peak)*c.safety {
		return ReasonMemory
	}
	return ReasonResources
}

func (c *Controller) logWait(d Decision, snap domain.ResourceSnapshot) {
	switch d.Reason {
	case ReasonCPU:
		c.logger.Info("waiting for less load on CPU",
			"cpu_load_percent", round1(snap.CPULoadPercent),
			"max_cpu_load_percent", c.maxCPU,
		)
	case ReasonMemory:
		c.logger.Info("waiting for more free RAM",
			"available_gib", round1(domain.BytesToGiB(snap.AvailableMemory)),
			"needed_gib", round1(float64(d.PeakRSS)*c.safety/domain.GiB),
		)
	}
}

// SettleDelay возвращает паузу после запуска worker'а.
//
// Без известного peak_rss пауза полная. При запасе памяти больше 3×peak_rss
// пауза почти нулевая, больше 2×peak_rss — половинная.
func (c *Controller) SettleDelay(d Decision) time.Duration {
	if d.Snapshot == nil || d.PeakRSS == 0 {
		return c.settle
	}
	available := d.Snapshot.AvailableMemory
	switch {
	case available > 3*d.PeakRSS:
		return min(500*time.Millisecond, c.settle)
	case available > 2*d.PeakRSS:
		return c.settle / 2
	default:
		return c.settle
	}
}

// Settle ждёт, пока только что запущенный worker прочитает конфигурацию
// и наберёт память.
func (c *Controller) Settle(ctx context.Context, d Decision) error {
	delay := c.SettleDelay(d)
	c.logger.Debug("waiting for instance to initialize", "delay", delay)
	return c.sleep(ctx, delay)
}

// Running возвращает worker'ов, видимых прямо сейчас.
func (c *Controller) Running(ctx context.Context) ([]domain.WorkerProcess, error) {
	workers, err := c.workers(ctx)
	if err != nil {
		return nil, err
	}
	telemetry.WorkersRunning.Set(float64(len(workers)))
	return workers, nil
}

// Drain переводит автомат в DRAIN и ждёт завершения всех worker'ов.
// Опрос идёт с интервалом 2 × settle delay.
func (c *Controller) Drain(ctx context.Context) error {
	c.state = StateDrain
	for {
		workers, err := c.Running(ctx)
		if err != nil {
			return err
		}
		if len(workers) == 0 {
			c.state = StateDone
			return nil
		}

		c.logger.Info("waiting for the last workers to finish",
			"running", len(workers),
			"poll", 2*c.settle,
		)
		if err := c.sleep(ctx, 2*c.settle); err != nil {
			return err
		}
	}
}

// workers объединяет процессы по имени и процессы из registry,
// которые ещё живы, но не совпали по имени.
func (c *Controller) workers(ctx context.Context) ([]domain.WorkerProcess, error) {
	found, err := c.processes.Workers(ctx, c.workerName)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	if c.launched == nil {
		return found, nil
	}

	seen := make(map[int]bool, len(found))
	for _, w := range found {
		seen[w.PID] = true
	}
	for _, inst := range c.launched.Running() {
		if seen[inst.PID] {
			continue
		}
		wp, err := c.processes.Process(ctx, inst.PID)
		if err != nil {
			// процесс успел завершиться
			continue
		}
		seen[wp.PID] = true
		found = append(found, wp)
	}
	return found, nil
}

// detectCeiling пересчитывает потолок по загрузке CPU одним worker'ом.
// Выполняется не больше одного раза за запуск; ошибки не фатальны.
func (c *Controller) detectCeiling(ctx context.Context) {
	perInstance, err := c.measureInstance(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("failed to auto-detect max instances, keeping previous ceiling",
			"max_instances", c.ceiling,
			"error", err,
		)
		return
	}

	c.autoDetect = false
	c.ceiling = ceilingFor(c.maxCPU, perInstance)
	telemetry.Concurrency.Set(float64(c.ceiling))
	c.logger.Info("max instances set automatically",
		"instance_cpu_percent", round1(perInstance),
		"max_instances", c.ceiling,
	)
}

func (c *Controller) measureInstance(ctx context.Context) (float64, error) {
	workers, err := c.workers(ctx)
	if err != nil {
		return 0, err
	}
	if len(workers) == 0 {
		return 0, ErrNoWorkerToMeasure
	}
	perInstance, err := c.processes.CPUPercent(ctx, workers[0].PID, c.detectWindow)
	if err != nil {
		return 0, err
	}
	if perInstance <= 0 {
		return 0, errors.New("worker used no CPU during the sample window")
	}
	return perInstance, nil
}

// ceilingFor — floor(maxCPU / perInstance), не меньше 1.
func ceilingFor(maxCPU, perInstance float64) int {
	n := int(math.Floor(maxCPU / perInstance))
	return max(n, 1)
}

func (c *Controller) scaled(factor float64) time.Duration {
	return time.Duration(factor * float64(c.settle))
}

func peakRSS(workers []domain.WorkerProcess) uint64 {
	var peak uint64
	for _, w := range workers {
		peak = max(peak, w.RSS)
	}
	return peak
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// sleep ждёт d или отмены контекста.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
