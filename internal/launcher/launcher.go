package launcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/shaiso/sweep/internal/config"
	"github.com/shaiso/sweep/internal/domain"
)

// Launcher пишет конфигурацию шага и запускает worker.
type Launcher struct {
	fs       afs.Service
	layout   domain.Layout
	worker   string
	mode     config.ConfigMode
	registry *Registry
	logger   *slog.Logger
}

// Config — конфигурация Launcher.
type Config struct {
	FS       afs.Service
	Layout   domain.Layout
	Worker   string            // путь к исполняемому файлу (см. ResolveWorker)
	Mode     config.ConfigMode // default: per-step
	Registry *Registry         // default: новый Registry
	Logger   *slog.Logger
}

// New создаёт Launcher.
func New(cfg Config) (*Launcher, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = config.ConfigModePerStep
	}
	if mode != config.ConfigModePerStep && mode != config.ConfigModeShared {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}
	fs := cfg.FS
	if fs == nil {
		fs = afs.New()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Launcher{
		fs:       fs,
		layout:   cfg.Layout,
		worker:   cfg.Worker,
		mode:     mode,
		registry: registry,
		logger:   logger,
	}, nil
}

// Registry возвращает registry запущенных процессов.
func (l *Launcher) Registry() *Registry {
	return l.registry
}

// Prepare готовит проект к запуску шагов.
// В shared mode создаёт STARTINFO, если его нет.
func (l *Launcher) Prepare(ctx context.Context, project domain.Project) error {
	if l.mode != config.ConfigModeShared {
		return nil
	}
	path := project.Path(l.layout.StartInfo)
	ok, err := l.fs.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}
	if ok {
		return nil
	}
	content := l.layout.GeneratedConfig + "\n1\n"
	if err := l.fs.Upload(ctx, path, file.DefaultFileOsMode, bytes.NewReader([]byte(content))); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Launch пишет конфигурацию шага и запускает worker, не дожидаясь его завершения.
//
// Процесс запускается без контекста и в собственной группе процессов:
// ни отмена планировщика, ни Ctrl-C в терминале не убивают уже
// запущенные worker'ы, повторный запуск продолжит с их результатов.
// stdout и stderr worker'а пишутся в лог шага.
func (l *Launcher) Launch(ctx context.Context, project domain.Project, step domain.Step, template []byte) (*domain.Instance, error) {
	content := RenderConfig(step, template)

	var configPath string
	var args []string
	switch l.mode {
	case config.ConfigModeShared:
		configPath = project.Path(l.layout.GeneratedConfig)
	default:
		configPath = project.Path(l.layout.StepConfigName(step.ID))
		args = []string{filepath.Base(configPath)}
	}
	if err := l.writeAtomic(ctx, configPath, content); err != nil {
		return nil, err
	}

	logPath := project.Path(l.layout.LogName(step.ID))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log %s: %w", logPath, err)
	}

	cmd := exec.Command(l.worker, args...)
	cmd.Dir = project.Root
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	detach(cmd)
	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("start worker for step %d: %w", step.ID, err)
	}

	inst := domain.Instance{
		StepID:     step.ID,
		PID:        cmd.Process.Pid,
		ConfigPath: configPath,
		LogPath:    logPath,
		StartedAt:  time.Now(),
	}
	l.registry.add(inst)

	go func() {
		err := cmd.Wait()
		_ = logFile.Close()
		l.registry.markExited(inst.StepID, err)
		l.logger.Debug("worker exited",
			"step_id", inst.StepID,
			"pid", inst.PID,
			"error", err,
		)
	}()

	return &inst, nil
}

// writeAtomic пишет во временный файл рядом с целевым и переименовывает его.
// Worker никогда не видит частично записанную конфигурацию.
func (l *Launcher) writeAtomic(ctx context.Context, path string, content []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()[:8]+".tmp")
	if err := l.fs.Upload(ctx, tmp, file.DefaultFileOsMode, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = l.fs.Delete(ctx, tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// RenderConfig добавляет к шаблону параметры шага: номер и частоту.
func RenderConfig(step domain.Step, template []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(template) + 64)
	buf.WriteString("$npart = ")
	buf.WriteString(strconv.Itoa(step.ID))
	buf.WriteString("\n$f = ")
	buf.WriteString(step.FormatWeight())
	buf.WriteString(" \t\t! Hz \n\n")
	buf.Write(template)
	return buf.Bytes()
}
