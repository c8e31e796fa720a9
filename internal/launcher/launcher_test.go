package launcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/sweep/internal/config"
	"github.com/shaiso/sweep/internal/domain"
)

// writeScript создаёт исполняемый shell-скрипт, имитирующий worker.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell worker is not available on windows")
	}
	path := filepath.Join(dir, "fake-solver")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func waitExited(t *testing.T, r *Registry, stepID int) ExitStatus {
	t.Helper()
	var status ExitStatus
	require.Eventually(t, func() bool {
		var ok bool
		status, ok = r.Exit(stepID)
		return ok && status.Exited
	}, 5*time.Second, 10*time.Millisecond)
	return status
}

func TestRenderConfig(t *testing.T) {
	got := RenderConfig(domain.Step{ID: 12, Weight: 2.5}, []byte("Header\nEnd\n"))
	assert.Equal(t, "$npart = 12\n$f = 2.5 \t\t! Hz \n\nHeader\nEnd\n", string(got))
}

func TestWriteAtomic_WritesRegularFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Layout: domain.DefaultLayout()})
	require.NoError(t, err)
	ctx := context.Background()
	path := filepath.Join(dir, "case_3.sif")

	require.NoError(t, l.writeAtomic(ctx, path, []byte("$npart = 3\n")))
	require.NoError(t, l.writeAtomic(ctx, path, []byte("$npart = 4\n")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular(), "config must be a regular file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "$npart = 4\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLaunch_PerStep(t *testing.T) {
	bin := t.TempDir()
	worker := writeScript(t, bin, "echo \"args: $*\"\ncat \"$1\"\necho oops >&2\n")
	project := domain.NewProject(t.TempDir())
	layout := domain.DefaultLayout()

	l, err := New(Config{Layout: layout, Worker: worker})
	require.NoError(t, err)

	inst, err := l.Launch(context.Background(), project, domain.Step{ID: 3, Weight: 250}, []byte("Simulation\nEnd\n"))
	require.NoError(t, err)
	assert.Equal(t, project.Path("case_3.sif"), inst.ConfigPath)
	assert.Equal(t, project.Path("case_t3_log.txt"), inst.LogPath)
	assert.Positive(t, inst.PID)

	status := waitExited(t, l.Registry(), 3)
	assert.NoError(t, status.Err)
	assert.Empty(t, l.Registry().Running())

	logData, err := os.ReadFile(inst.LogPath)
	require.NoError(t, err)
	log := string(logData)
	assert.Contains(t, log, "args: case_3.sif")
	assert.Contains(t, log, "$npart = 3\n$f = 250")
	assert.Contains(t, log, "oops", "stderr goes to the same log")

	_, err = os.Stat(project.Path(layout.GeneratedConfig))
	assert.True(t, os.IsNotExist(err), "per-step mode must not write the shared config")

	entries, err := os.ReadDir(project.Root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left: %s", e.Name())
	}
}

func TestLaunch_Shared(t *testing.T) {
	bin := t.TempDir()
	worker := writeScript(t, bin, "echo \"argc=$#\"\nhead -n 1 case.sif\n")
	project := domain.NewProject(t.TempDir())
	layout := domain.DefaultLayout()

	l, err := New(Config{Layout: layout, Worker: worker, Mode: config.ConfigModeShared})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.Prepare(ctx, project))
	startInfo, err := os.ReadFile(project.Path(layout.StartInfo))
	require.NoError(t, err)
	assert.Equal(t, "case.sif\n1\n", string(startInfo))

	inst, err := l.Launch(ctx, project, domain.Step{ID: 7, Weight: 12.5}, []byte("body\n"))
	require.NoError(t, err)
	assert.Equal(t, project.Path("case.sif"), inst.ConfigPath)

	waitExited(t, l.Registry(), 7)
	logData, err := os.ReadFile(inst.LogPath)
	require.NoError(t, err)
	assert.Equal(t, "argc=0\n$npart = 7\n", string(logData))
}

func TestPrepare_KeepsExistingStartInfo(t *testing.T) {
	project := domain.NewProject(t.TempDir())
	layout := domain.DefaultLayout()
	require.NoError(t, os.WriteFile(project.Path(layout.StartInfo), []byte("custom.sif\n1\n"), 0o644))

	l, err := New(Config{Layout: layout, Mode: config.ConfigModeShared})
	require.NoError(t, err)
	require.NoError(t, l.Prepare(context.Background(), project))

	data, err := os.ReadFile(project.Path(layout.StartInfo))
	require.NoError(t, err)
	assert.Equal(t, "custom.sif\n1\n", string(data))
}

func TestLaunch_FailingWorkerRecordsExit(t *testing.T) {
	bin := t.TempDir()
	worker := writeScript(t, bin, "exit 3\n")
	project := domain.NewProject(t.TempDir())

	l, err := New(Config{Layout: domain.DefaultLayout(), Worker: worker})
	require.NoError(t, err)

	_, err = l.Launch(context.Background(), project, domain.Step{ID: 1, Weight: 1}, nil)
	require.NoError(t, err)

	status := waitExited(t, l.Registry(), 1)
	assert.Error(t, status.Err)
}

func TestLaunch_MissingWorker(t *testing.T) {
	project := domain.NewProject(t.TempDir())
	l, err := New(Config{Layout: domain.DefaultLayout(), Worker: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)

	_, err = l.Launch(context.Background(), project, domain.Step{ID: 1, Weight: 1}, nil)
	assert.Error(t, err)
	assert.Empty(t, l.Registry().Running())
}

func TestNew_UnsupportedMode(t *testing.T) {
	_, err := New(Config{Mode: "weird"})
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestResolveWorker(t *testing.T) {
	bin := t.TempDir()
	worker := writeScript(t, bin, "exit 0\n")

	t.Run("directory override", func(t *testing.T) {
		path, err := ResolveWorker(bin, "fake-solver")
		require.NoError(t, err)
		assert.Equal(t, worker, path)
	})

	t.Run("file override", func(t *testing.T) {
		path, err := ResolveWorker(worker, "ignored")
		require.NoError(t, err)
		assert.Equal(t, worker, path)
	})

	t.Run("missing in directory", func(t *testing.T) {
		_, err := ResolveWorker(bin, "ElmerSolver")
		assert.ErrorIs(t, err, ErrWorkerNotFound)
	})

	t.Run("not executable", func(t *testing.T) {
		plain := filepath.Join(bin, "plain")
		require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))
		_, err := ResolveWorker(plain, "")
		assert.ErrorIs(t, err, ErrWorkerNotFound)
	})

	t.Run("path lookup", func(t *testing.T) {
		t.Setenv("PATH", bin)
		path, err := ResolveWorker("", "fake-solver")
		require.NoError(t, err)
		assert.Equal(t, worker, path)
	})

	t.Run("not in path", func(t *testing.T) {
		t.Setenv("PATH", t.TempDir())
		_, err := ResolveWorker("", "fake-solver")
		assert.ErrorIs(t, err, ErrWorkerNotFound)
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.add(domain.Instance{StepID: 2, PID: 20})
	r.add(domain.Instance{StepID: 1, PID: 10})

	running := r.Running()
	require.Len(t, running, 2)
	assert.Equal(t, 1, running[0].StepID)

	r.markExited(1, nil)
	assert.Len(t, r.Running(), 1)

	status, ok := r.Exit(1)
	assert.True(t, ok)
	assert.True(t, status.Exited)

	_, ok = r.Exit(99)
	assert.False(t, ok)

	r.Forget()
	_, ok = r.Instance(1)
	assert.False(t, ok)
	_, ok = r.Instance(2)
	assert.True(t, ok)
}
