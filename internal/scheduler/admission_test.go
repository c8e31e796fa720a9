package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/sweep/internal/domain"
)

// fakeProcesses возвращает заранее заданные списки worker'ов по очереди;
// последний список повторяется.
type fakeProcesses struct {
	polls  [][]domain.WorkerProcess
	calls  int
	byPID  map[int]domain.WorkerProcess
	cpu    float64
	cpuErr error
}

func (f *fakeProcesses) Workers(_ context.Context, _ string) ([]domain.WorkerProcess, error) {
	i := min(f.calls, len(f.polls)-1)
	f.calls++
	return f.polls[i], nil
}

func (f *fakeProcesses) Process(_ context.Context, pid int) (domain.WorkerProcess, error) {
	if wp, ok := f.byPID[pid]; ok {
		return wp, nil
	}
	return domain.WorkerProcess{}, errors.New("not found")
}

func (f *fakeProcesses) CPUPercent(_ context.Context, _ int, _ time.Duration) (float64, error) {
	return f.cpu, f.cpuErr
}

type fakeSampler struct {
	snaps []domain.ResourceSnapshot
	calls int
}

func (f *fakeSampler) Snapshot(_ context.Context) (domain.ResourceSnapshot, error) {
	i := min(f.calls, len(f.snaps)-1)
	f.calls++
	return f.snaps[i], nil
}

type fakeLaunched []domain.Instance

func (f fakeLaunched) Running() []domain.Instance { return f }

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestController(t *testing.T, procs *fakeProcesses, sampler *fakeSampler, cfg Config) (*Controller, *sleepRecorder) {
	t.Helper()
	cfg.Processes = procs
	cfg.Sampler = sampler
	cfg.WorkerName = "ElmerSolver"
	c := New(cfg)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	c.Begin(nil)
	return c, rec
}

func worker(pid int, rssGiB float64) domain.WorkerProcess {
	return domain.WorkerProcess{PID: pid, Name: "ElmerSolver", RSS: uint64(rssGiB * domain.GiB)}
}

func snapshot(availGiB, cpu float64) domain.ResourceSnapshot {
	return domain.ResourceSnapshot{AvailableMemory: uint64(availGiB * domain.GiB), CPULoadPercent: cpu}
}

func TestAdmit_FirstIsUnconditional(t *testing.T) {
	procs := &fakeProcesses{polls: [][]domain.WorkerProcess{{worker(1, 100)}}}
	sampler := &fakeSampler{snaps: []domain.ResourceSnapshot{snapshot(0, 100)}}
	c, rec := newTestController(t, procs, sampler, Config{})

	d, err := c.Admit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonFirst, d.Reason)
	assert.Equal(t, StateSteadyState, c.State())
	assert.Zero(t, procs.calls, "first admission must not look at processes")
	assert.Empty(t, rec.delays)
}

func TestAdmit_NoneRunningIgnoresSnapshot(t *testing.T) {
	procs := &fakeProcesses{polls: [][]domain.WorkerProcess{{}}}
	sampler := &fakeSampler{snaps: []domain.ResourceSnapshot{snapshot(0, 100)}}
	c, rec := newTestController(t, procs, sampler, Config{})

	_, err := c.Admit(context.Background())
	require.NoError(t, err)

	d, err := c.Admit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonNoneRunning, d.Reason)
	assert.Zero(t, sampler.calls)
	assert.Empty(t, rec.delays)
}

func TestAdmit_MemoryThreshold(t *testing.T) {
	// safety 0.95 × peak 10 GiB = 9.5 GiB
	procs := &fakeProcesses{polls: [][]domain.WorkerProcess{{worker(1, 10), worker(2, 4)}}}
	sampler := &fakeSampler{snaps: []domain.ResourceSnapshot{
		snapshot(9.4, 10),
		snapshot(9.49, 10),
		snapshot(9.5, 10),
	}}
	c, rec := newTestController(t, procs, sampler, Config{SafetyFactor: 0.95, SettleDelay: time.Second})

	_, err := c.Admit(context.Background())
	require.NoError(t, err)

	d, err := c.Admit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonResources, d.Reason)
	assert.Equal(t, 3, sampler.calls, "two refusals before admission")
	assert.Equal(t, []time.Duration{time.Second, time.Second}, rec.delays)
	assert.Equal(t, uint64(10*domain.GiB), d.PeakRSS)
}

func TestController_Check(t *testing.T) {
	c := New(Config{SafetyFactor: 0.95, MaxCPULoadPercent: 80})
	peak := uint64(10 * domain.GiB)

	tests := []struct {
		name string
		snap domain.ResourceSnapshot
		want Reason
	}{
		{name: "below threshold", snap: snapshot(9.4, 10), want: ReasonMemory},
		{name: "at threshold", snap: snapshot(9.5, 10), want: ReasonResources},
		{name: "above threshold", snap: snapshot(20, 79.9), want: ReasonResources},
		{name: "cpu at limit", snap: snapshot(20, 80), want: ReasonCPU},
		{name: "cpu and memory", snap: snapshot(1, 95), want: ReasonCPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.check(peak, tt.snap))
		})
	}
}

func TestAdmit_CeilingWaitsWithoutSampling(t *testing.T) {
	procs := &fakeProcesses{polls: [][]domain.WorkerProcess{
		{worker(1, 1), worker(2, 1)},
		{worker(1, 1)},
	}}
	sampler := &fakeSampler{snaps: []domain.ResourceSnapshot{snapshot(100, 0)}}
	c, rec := newTestController(t, procs, sampler, Config{MaxInstances: 2, SettleDelay: time.Second})

	_, _ = c.Admit(context.Background())
	d, err := c.Admit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonResources, d.Reason)
	assert.Equal(t, 1, sampler.calls, "no snapshot while at the ceiling")
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}

func TestAdmit_SingleInstanceBackoff(t *testing.T) {
	procs := &fakeProcesses{polls: [][]domain.WorkerProcess{{worker(1, 10)}}}
	sampler := &fakeSampler{snaps: []domain.ResourceSnapshot{snapshot(1, 10), snapshot(50, 10)}}
	c, rec := newTestController(t, procs, sampler, Config{SettleDelay: 2 * time.Second, SingleInstanceBackoff: 4})

	_, _ = c.Admit(context.Background())
	_, err := c.Admit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{8 * time.Second, 2 * time.Second}, rec.delays)
}

func TestAdmit_RegistryPIDsAreCounted(t *testing.T) {
	// по имени виден один процесс, второй найден только через registry
	procs := &fakeProcesses{
		polls: [][]domain.WorkerProcess{{worker(1, 1)}},
		byPID: map[int]domain.WorkerProcess{42: {PID: 42, Name: "solver-wrap", RSS: 1}},
	}
	sampler := &fakeSampler{snaps: []domain.ResourceSnapshot{snapshot(100, 0)}}
	c, _ := newTestController(t, procs, sampler, Config{MaxInstances: 2})
	c.launched = fakeLaunched{{StepID: 3, PID: 42}, {StepID: 4, PID: 1}, {StepID: 5, PID: 99}}

	workers, err := c.Running(context.Background())
	require.NoError(t, err)
	assert.Len(t, workers, 2, "exited pid 99 is ignored, pid 1 is not duplicated")
}

func TestAdmit_AutoConcurrency(t *testing.T) {
	procs := &fakeProcesses{polls: [][]domain.WorkerProcess{{worker(1, 1)}}, cpu: 12.5}
	sampler := &fakeSampler{snaps: []domain.ResourceSnapshot{snapshot(100, 0)}}
	c, _ := newTestController(t, procs, sampler, Config{AutoConcurrency: true, MaxCPULoadPercent: 80})

	_, _ = c.Admit(context.Background())
	_, err := c.Admit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, c.Ceiling())

	// второй раз не измеряется
	procs.cpu = 40
	_, err = c.Admit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, c.Ceiling())
}

func TestAdmit_AutoConcurrencyFailureKeepsCeiling(t *testing.T) {
	procs := &fakeProcesses{polls: [][]domain.WorkerProcess{{worker(1, 1)}}, cpuErr: errors.New("exited")}
	sampler := &fakeSampler{snaps: []domain.ResourceSnapshot{snapshot(100, 0)}}
	c, _ := newTestController(t, procs, sampler, Config{AutoConcurrency: true, MaxInstances: 3})

	_, _ = c.Admit(context.Background())
	_, err := c.Admit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Ceiling())
}

func TestCeilingFor(t *testing.T) {
	tests := []struct {
		maxCPU, per float64
		want        int
	}{
		{80, 12.5, 6},
		{80, 30, 2},
		{80, 100, 1},
		{80, 80, 1},
		{80, 3, 26},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ceilingFor(tt.maxCPU, tt.per), "maxCPU=%v per=%v", tt.maxCPU, tt.per)
	}
}

func TestSettleDelay(t *testing.T) {
	c := New(Config{SettleDelay: 7 * time.Second})
	peak := uint64(4 * domain.GiB)

	tests := []struct {
		name string
		d    Decision
		want time.Duration
	}{
		{name: "first", d: Decision{Reason: ReasonFirst}, want: 7 * time.Second},
		{name: "none running", d: Decision{Reason: ReasonNoneRunning}, want: 7 * time.Second},
		{name: "abundant", d: Decision{PeakRSS: peak, Snapshot: ptr(snapshot(13, 0))}, want: 500 * time.Millisecond},
		{name: "double", d: Decision{PeakRSS: peak, Snapshot: ptr(snapshot(9, 0))}, want: 3500 * time.Millisecond},
		{name: "tight", d: Decision{PeakRSS: peak, Snapshot: ptr(snapshot(8, 0))}, want: 7 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.SettleDelay(tt.d))
		})
	}
}

func TestDrain(t *testing.T) {
	procs := &fakeProcesses{polls: [][]domain.WorkerProcess{
		{worker(1, 1), worker(2, 1)},
		{worker(2, 1)},
		{},
	}}
	c, rec := newTestController(t, procs, &fakeSampler{}, Config{SettleDelay: time.Second})

	require.NoError(t, c.Drain(context.Background()))
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, rec.delays)
}

func TestAdmit_Cancelled(t *testing.T) {
	procs := &fakeProcesses{polls: [][]domain.WorkerProcess{{worker(1, 10)}}}
	sampler := &fakeSampler{snaps: []domain.ResourceSnapshot{snapshot(1, 10)}}
	c, _ := newTestController(t, procs, sampler, Config{SingleInstanceBackoff: -1})

	_, _ = c.Admit(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Admit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdmit_InvalidState(t *testing.T) {
	c := New(Config{})
	_, err := c.Admit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func ptr[T any](v T) *T { return &v }
