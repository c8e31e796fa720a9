// Package config описывает конфигурацию планировщика.
//
// Источники применяются по порядку: значения по умолчанию → YAML-файл →
// переменные окружения SWEEP_* → флаги командной строки (в cmd/sweep).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/sweep/internal/domain"
)

// ConfigMode — способ передачи параметров шага worker'у.
type ConfigMode string

const (
	// ConfigModePerStep — отдельный файл конфигурации на каждый шаг,
	// путь передаётся worker'у аргументом. Файл никогда не перезаписывается.
	ConfigModePerStep ConfigMode = "per-step"

	// ConfigModeShared — один файл с фиксированным именем (через STARTINFO).
	// Безопасен только при достаточной settle delay.
	ConfigModeShared ConfigMode = "shared"
)

// Config — полная конфигурация запуска.
type Config struct {
	// SearchRoot — директория проекта или директория с проектами.
	SearchRoot string `yaml:"search_root"`

	// AutoConcurrency — автоопределение потолка параллельных worker'ов
	// по загрузке CPU одним worker'ом.
	AutoConcurrency bool `yaml:"auto_concurrency"`

	// MaxInstances — потолок параллельных worker'ов (если автоопределение
	// выключено или не удалось).
	MaxInstances int `yaml:"max_instances"`

	// WorkerPath — путь к исполняемому файлу worker'а или к директории bin.
	// Пусто — поиск в PATH.
	WorkerPath string `yaml:"worker_path"`

	// WorkerName — имя исполняемого файла worker'а (без .exe).
	WorkerName string `yaml:"worker_name"`

	// SettleDelay — время на инициализацию памяти нового worker'а.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// RAMSafetyFactor — новый worker запускается, если свободной памяти
	// больше, чем peak RSS × RAMSafetyFactor.
	RAMSafetyFactor float64 `yaml:"ram_safety_factor"`

	// MaxCPULoadPercent — целевой предел загрузки CPU.
	MaxCPULoadPercent float64 `yaml:"max_cpu_load_percent"`

	// Cleanup — удалять вспомогательные файлы после завершения проекта.
	Cleanup bool `yaml:"cleanup"`

	// CPUSampleWindow — окно измерения общей загрузки CPU.
	CPUSampleWindow time.Duration `yaml:"cpu_sample_window"`

	// AutoDetectWindow — окно измерения загрузки CPU одним worker'ом.
	AutoDetectWindow time.Duration `yaml:"auto_detect_window"`

	// SingleInstanceBackoff — множитель SettleDelay для дополнительной паузы,
	// когда работает ровно один worker и ресурсов не хватает.
	SingleInstanceBackoff float64 `yaml:"single_instance_backoff"`

	// ConfigMode — per-step или shared.
	ConfigMode ConfigMode `yaml:"config_mode"`

	// ListenAddr — адрес HTTP для /healthz, /metrics и /api/v1 (пусто — выключено).
	ListenAddr string `yaml:"listen_addr"`

	// AMQPURL — RabbitMQ для публикации событий (пусто — выключено).
	AMQPURL string `yaml:"amqp_url"`

	// DatabaseURL — Postgres для журнала запусков (пусто — выключено).
	DatabaseURL string `yaml:"database_url"`

	// Layout — имена артефактов проекта.
	Layout domain.Layout `yaml:"layout"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		SearchRoot:            ".",
		AutoConcurrency:       true,
		MaxInstances:          8,
		WorkerName:            "ElmerSolver",
		SettleDelay:           7 * time.Second,
		RAMSafetyFactor:       0.95,
		MaxCPULoadPercent:     80,
		Cleanup:               true,
		CPUSampleWindow:       500 * time.Millisecond,
		AutoDetectWindow:      time.Second,
		SingleInstanceBackoff: 4,
		ConfigMode:            ConfigModePerStep,
		Layout:                domain.DefaultLayout(),
	}
}

// Load читает YAML-файл поверх значений по умолчанию.
// Пустой path возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// durationKeys — поля YAML, которые принимают и число секунд, и Go duration.
var durationKeys = map[string]bool{
	"settle_delay":       true,
	"cpu_sample_window":  true,
	"auto_detect_window": true,
}

// UnmarshalYAML разрешает писать длительности числом секунд ("7", "0.5"),
// как в переменных окружения и флагах.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, val := value.Content[i], value.Content[i+1]
			if !durationKeys[key.Value] || val.Kind != yaml.ScalarNode {
				continue
			}
			d, err := ParseSeconds(val.Value)
			if err != nil {
				return fmt.Errorf("%s: %w", key.Value, err)
			}
			val.Tag = "!!str"
			val.Value = d.String()
		}
	}
	type plain Config
	return value.Decode((*plain)(c))
}

// ApplyEnv применяет переменные окружения SWEEP_*.
func (c *Config) ApplyEnv() error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := ParseSeconds(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SWEEP_SEARCH_ROOT", &c.SearchRoot)
	boolean("SWEEP_AUTO_CONCURRENCY", &c.AutoConcurrency)
	integer("SWEEP_MAX_INSTANCES", &c.MaxInstances)
	str("SWEEP_WORKER_PATH", &c.WorkerPath)
	str("SWEEP_WORKER_NAME", &c.WorkerName)
	duration("SWEEP_SETTLE_DELAY", &c.SettleDelay)
	duration("SWEEP_CPU_SAMPLE_WINDOW", &c.CPUSampleWindow)
	duration("SWEEP_AUTO_DETECT_WINDOW", &c.AutoDetectWindow)
	float("SWEEP_RAM_SAFETY_FACTOR", &c.RAMSafetyFactor)
	float("SWEEP_MAX_CPU_LOAD_PERCENT", &c.MaxCPULoadPercent)
	boolean("SWEEP_CLEANUP", &c.Cleanup)
	str("SWEEP_LISTEN_ADDR", &c.ListenAddr)
	str("SWEEP_AMQP_URL", &c.AMQPURL)
	str("SWEEP_DATABASE_URL", &c.DatabaseURL)
	if v, ok := os.LookupEnv("SWEEP_CONFIG_MODE"); ok {
		c.ConfigMode = ConfigMode(v)
	}

	return errors.Join(errs...)
}

// Validate возвращает агрегированную ошибку по всем некорректным полям.
func (c *Config) Validate() error {
	var errs []error
	if c.SearchRoot == "" {
		errs = append(errs, errors.New("search_root must not be empty"))
	}
	if c.MaxInstances < 1 {
		errs = append(errs, fmt.Errorf("max_instances must be >= 1, got %d", c.MaxInstances))
	}
	if c.WorkerName == "" {
		errs = append(errs, errors.New("worker_name must not be empty"))
	}
	if c.SettleDelay <= 0 {
		errs = append(errs, fmt.Errorf("settle_delay must be > 0, got %s", c.SettleDelay))
	}
	if c.RAMSafetyFactor <= 0 {
		errs = append(errs, fmt.Errorf("ram_safety_factor must be > 0, got %g", c.RAMSafetyFactor))
	}
	if c.MaxCPULoadPercent <= 0 || c.MaxCPULoadPercent > 100 {
		errs = append(errs, fmt.Errorf("max_cpu_load_percent must be in (0, 100], got %g", c.MaxCPULoadPercent))
	}
	if c.CPUSampleWindow <= 0 {
		errs = append(errs, fmt.Errorf("cpu_sample_window must be > 0, got %s", c.CPUSampleWindow))
	}
	if c.AutoDetectWindow <= 0 {
		errs = append(errs, fmt.Errorf("auto_detect_window must be > 0, got %s", c.AutoDetectWindow))
	}
	if c.SingleInstanceBackoff < 0 {
		errs = append(errs, fmt.Errorf("single_instance_backoff must be >= 0, got %g", c.SingleInstanceBackoff))
	}
	switch c.ConfigMode {
	case ConfigModePerStep, ConfigModeShared:
	default:
		errs = append(errs, fmt.Errorf("config_mode must be %q or %q, got %q", ConfigModePerStep, ConfigModeShared, c.ConfigMode))
	}
	for name, v := range map[string]string{
		"layout.step_file":        c.Layout.StepFile,
		"layout.template":         c.Layout.Template,
		"layout.mesh":             c.Layout.Mesh,
		"layout.generated_config": c.Layout.GeneratedConfig,
		"layout.marker_prefix":    c.Layout.MarkerPrefix,
		"layout.marker_suffix":    c.Layout.MarkerSuffix,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", name))
		}
	}
	return errors.Join(errs...)
}

// ParseSeconds принимает как Go duration ("7s", "500ms"), так и число секунд ("7", "0.5").
func ParseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}
