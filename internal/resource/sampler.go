package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/procfs"

	"github.com/shaiso/sweep/internal/domain"
)

// Sampler снимает ResourceSnapshot.
type Sampler struct {
	fs     procfs.FS
	window time.Duration
}

// NewSampler создаёт Sampler поверх /proc.
// window — окно измерения загрузки CPU.
func NewSampler(window time.Duration) (*Sampler, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return &Sampler{fs: fs, window: window}, nil
}

// Snapshot читает память и измеряет загрузку CPU за окно.
// Блокирует вызывающего на время окна.
func (s *Sampler) Snapshot(ctx context.Context) (domain.ResourceSnapshot, error) {
	before, err := s.fs.Stat()
	if err != nil {
		return domain.ResourceSnapshot{}, fmt.Errorf("read /proc/stat: %w", err)
	}

	if err := sleep(ctx, s.window); err != nil {
		return domain.ResourceSnapshot{}, err
	}

	after, err := s.fs.Stat()
	if err != nil {
		return domain.ResourceSnapshot{}, fmt.Errorf("read /proc/stat: %w", err)
	}

	meminfo, err := s.fs.Meminfo()
	if err != nil {
		return domain.ResourceSnapshot{}, fmt.Errorf("read /proc/meminfo: %w", err)
	}

	snap, err := memorySnapshot(meminfo)
	if err != nil {
		return domain.ResourceSnapshot{}, err
	}
	snap.CPULoadPercent = cpuBusyPercent(before.CPUTotal, after.CPUTotal)
	snap.TakenAt = time.Now()
	return snap, nil
}

// memorySnapshot переводит meminfo (kB) в байты и проценты.
func memorySnapshot(m procfs.Meminfo) (domain.ResourceSnapshot, error) {
	if m.MemTotal == nil || m.MemAvailable == nil || *m.MemTotal == 0 {
		return domain.ResourceSnapshot{}, ErrMeminfoIncomplete
	}
	total := *m.MemTotal * 1024
	available := *m.MemAvailable * 1024
	if available > total {
		available = total
	}
	return domain.ResourceSnapshot{
		AvailableMemory:   available,
		TotalMemory:       total,
		UsedMemoryPercent: float64(total-available) / float64(total) * 100,
	}, nil
}

// cpuBusyPercent — доля не-idle времени между двумя снимками /proc/stat.
func cpuBusyPercent(before, after procfs.CPUStat) float64 {
	total := cpuTotal(after) - cpuTotal(before)
	if total <= 0 {
		return 0
	}
	idle := (after.Idle + after.Iowait) - (before.Idle + before.Iowait)
	busy := (total - idle) / total * 100
	return min(max(busy, 0), 100)
}

// cpuTotal суммирует все счётчики. Guest уже учтён в User, поэтому не входит.
func cpuTotal(s procfs.CPUStat) float64 {
	return s.User + s.Nice + s.System + s.Idle + s.Iowait + s.IRQ + s.SoftIRQ + s.Steal
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
