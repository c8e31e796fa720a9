package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики планировщика.
var (
	// StepsLaunched — количество запущенных worker'ов.
	StepsLaunched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_steps_launched_total",
		Help: "Total worker instances launched",
	}, []string{"project"})

	// StepsSkipped — шаги, пропущенные из-за уже существующего marker'а.
	StepsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_steps_skipped_total",
		Help: "Steps skipped because their result marker already exists",
	}, []string{"project"})

	// StepsPending — оставшиеся к запуску шаги текущего проекта.
	StepsPending = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sweep_steps_pending",
		Help: "Steps of the project not launched yet",
	}, []string{"project"})

	// WorkersRunning — worker'ы, найденные на последнем опросе.
	WorkersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_workers_running",
		Help: "Worker processes observed on the last poll",
	})

	// AdmissionWaits — отказы admission по причине.
	AdmissionWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_admission_waits_total",
		Help: "Admission polls that decided to wait, by reason",
	}, []string{"reason"})

	// Concurrency — текущий потолок параллельных worker'ов.
	Concurrency = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_concurrency_ceiling",
		Help: "Current maximum number of concurrent workers",
	})

	// AvailableMemory — доступная память на последнем снимке.
	AvailableMemory = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_available_memory_bytes",
		Help: "Available memory observed on the last resource snapshot",
	})

	// CPULoad — загрузка CPU на последнем снимке.
	CPULoad = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_cpu_load_percent",
		Help: "CPU load observed on the last resource snapshot",
	})

	// WorkerCrashes — обнаруженные падения worker'ов.
	WorkerCrashes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_worker_crashes_total",
		Help: "Launches after which no worker process was found running",
	}, []string{"project"})
)
