package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"

	"github.com/shaiso/sweep/internal/launcher"
)

const (
	// ElmerGrid — имя исполняемого файла конвертера.
	ElmerGrid = "ElmerGrid"

	// MeshExtension — расширение исходной сетки.
	MeshExtension = ".unv"
)

// Форматы ElmerGrid.
const (
	formatUNV   = 8
	formatElmer = 2
	formatVTU   = 5
)

var (
	// ErrMeshNotFound — файл сетки не найден.
	ErrMeshNotFound = errors.New("mesh file not found")

	// ErrConversionFailed — ElmerGrid завершился с ненулевым кодом.
	ErrConversionFailed = errors.New("mesh conversion failed")
)

// Config — конфигурация Converter.
type Config struct {
	FS afs.Service // default: afs.New()

	// ElmerDir — каталог с ElmerGrid. Пустая строка — искать в PATH.
	ElmerDir string

	// Timeout одного вызова ElmerGrid (default: 10m).
	Timeout time.Duration

	Logger *slog.Logger
}

// Converter вызывает ElmerGrid.
type Converter struct {
	fs       afs.Service
	elmerDir string
	timeout  time.Duration
	logger   *slog.Logger
}

// New создаёт Converter.
func New(cfg Config) *Converter {
	fs := cfg.FS
	if fs == nil {
		fs = afs.New()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		fs:       fs,
		elmerDir: cfg.ElmerDir,
		timeout:  timeout,
		logger:   logger,
	}
}

// Result — вывод ElmerGrid по каждому вызову.
type Result struct {
	Commands []string
	Output   []string
}

// Convert конвертирует mesh в формат Elmer. Если vtu == true,
// дополнительно пишет .vtu для просмотра в ParaView.
//
// mesh можно указывать с расширением .unv или без него.
func (c *Converter) Convert(ctx context.Context, mesh string, vtu bool) (*Result, error) {
	dir, name := MeshName(mesh)
	meshPath := filepath.Join(dir, name+MeshExtension)

	exists, err := c.fs.Exists(ctx, meshPath)
	if err != nil {
		return nil, fmt.Errorf("check mesh %s: %w", meshPath, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", meshPath, ErrMeshNotFound)
	}

	commands := []string{c.Command(formatElmer, name)}
	if vtu {
		commands = append(commands, c.Command(formatVTU, name))
	}

	svc, err := gosh.New(ctx, local.New())
	if err != nil {
		return nil, fmt.Errorf("start shell: %w", err)
	}
	defer svc.Close()

	if _, _, err := svc.Run(ctx, "cd "+shellQuote(dir)); err != nil {
		return nil, fmt.Errorf("change directory to %s: %w", dir, err)
	}

	result := &Result{}
	for _, cmd := range commands {
		c.logger.Info("converting mesh", "mesh", meshPath, "command", cmd)
		started := time.Now()
		stdout, status, err := svc.Run(ctx, cmd, runner.WithTimeout(int(c.timeout.Milliseconds())))
		result.Commands = append(result.Commands, cmd)
		result.Output = append(result.Output, strings.TrimSpace(stdout))
		if err != nil {
			return result, fmt.Errorf("run %q: %w", cmd, err)
		}
		if status != 0 {
			return result, fmt.Errorf("%q exited with status %d: %w", cmd, status, ErrConversionFailed)
		}
		c.logger.Debug("mesh conversion step finished", "command", cmd, "duration", time.Since(started))
	}

	c.logger.Info("mesh converted", "output", filepath.Join(dir, name))
	return result, nil
}

// Command строит вызов ElmerGrid из формата .unv в format.
func (c *Converter) Command(format int, name string) string {
	bin := launcher.ExecutableName(ElmerGrid)
	if c.elmerDir != "" {
		bin = shellQuote(filepath.Join(c.elmerDir, bin))
	}
	return fmt.Sprintf("%s %d %d %s -autoclean", bin, formatUNV, format, shellQuote(name))
}

// MeshName делит путь сетки на каталог и имя без расширения .unv.
func MeshName(mesh string) (dir, name string) {
	dir, file := filepath.Split(filepath.Clean(mesh))
	if dir == "" {
		dir = "."
	}
	return filepath.Clean(dir), strings.TrimSuffix(file, MeshExtension)
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t'\"\\$`!&;|<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
