package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/procfs"

	"github.com/shaiso/sweep/internal/domain"
)

// commLimit — ядро обрезает /proc/<pid>/comm до 15 символов.
const commLimit = 15

// ProcessTable — доступ к таблице процессов ОС.
type ProcessTable struct {
	fs     procfs.FS
	numCPU int
}

// NewProcessTable создаёт ProcessTable поверх /proc.
func NewProcessTable() (*ProcessTable, error) {
	pfs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return &ProcessTable{fs: pfs, numCPU: runtime.NumCPU()}, nil
}

// Workers возвращает живые процессы с указанным именем исполняемого файла.
// Zombie-процессы и процессы, завершившиеся во время обхода, пропускаются.
func (t *ProcessTable) Workers(ctx context.Context, name string) ([]domain.WorkerProcess, error) {
	procs, err := t.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	want := CommName(name)
	var workers []domain.WorkerProcess
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		comm, err := p.Comm()
		if err != nil || comm != want {
			continue
		}
		wp, ok := t.describe(p, comm)
		if !ok {
			continue
		}
		workers = append(workers, wp)
	}
	return workers, nil
}

// Process возвращает процесс по PID.
func (t *ProcessTable) Process(_ context.Context, pid int) (domain.WorkerProcess, error) {
	p, err := t.fs.Proc(pid)
	if err != nil {
		return domain.WorkerProcess{}, notFound(pid, err)
	}
	comm, err := p.Comm()
	if err != nil {
		return domain.WorkerProcess{}, notFound(pid, err)
	}
	wp, ok := t.describe(p, comm)
	if !ok {
		return domain.WorkerProcess{}, fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}
	return wp, nil
}

// CPUPercent измеряет долю всей машины, занятую процессом за окно.
// 100% — все ядра заняты этим процессом.
func (t *ProcessTable) CPUPercent(ctx context.Context, pid int, window time.Duration) (float64, error) {
	p, err := t.fs.Proc(pid)
	if err != nil {
		return 0, notFound(pid, err)
	}
	before, err := p.Stat()
	if err != nil {
		return 0, notFound(pid, err)
	}
	if err := sleep(ctx, window); err != nil {
		return 0, err
	}
	after, err := p.Stat()
	if err != nil {
		return 0, notFound(pid, err)
	}

	return processShare(before.CPUTime(), after.CPUTime(), window, t.numCPU)
}

func (t *ProcessTable) describe(p procfs.Proc, comm string) (domain.WorkerProcess, bool) {
	stat, err := p.Stat()
	if err != nil || stat.State == "Z" || stat.State == "X" {
		return domain.WorkerProcess{}, false
	}
	wp := domain.WorkerProcess{
		PID:  p.PID,
		Name: comm,
		RSS:  uint64(stat.ResidentMemory()),
	}
	if started, err := stat.StartTime(); err == nil {
		wp.StartedAt = time.Unix(0, int64(started*float64(time.Second)))
	}
	return wp, true
}

// processShare переводит прирост CPU-времени процесса в процент машины.
func processShare(before, after float64, window time.Duration, numCPU int) (float64, error) {
	if window <= 0 || numCPU <= 0 {
		return 0, ErrNoCPUTime
	}
	delta := after - before
	if delta <= 0 {
		return 0, ErrNoCPUTime
	}
	return delta / window.Seconds() / float64(numCPU) * 100, nil
}

// CommName приводит имя исполняемого файла к виду /proc/<pid>/comm.
func CommName(name string) string {
	name = filepath.Base(name)
	if runtime.GOOS == "windows" {
		name = strings.TrimSuffix(name, ".exe")
	}
	if len(name) > commLimit {
		name = name[:commLimit]
	}
	return name
}

func notFound(pid int, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}
	return fmt.Errorf("%w: pid %d: %v", ErrProcessNotFound, pid, err)
}
