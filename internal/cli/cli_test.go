package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/sweep/internal/api"
	"github.com/shaiso/sweep/internal/catalog"
	"github.com/shaiso/sweep/internal/config"
	"github.com/shaiso/sweep/internal/convert"
	"github.com/shaiso/sweep/internal/domain"
	"github.com/shaiso/sweep/internal/launcher"
	"github.com/shaiso/sweep/internal/orchestrator"
	"github.com/shaiso/sweep/internal/project"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", fmt.Errorf("%w: max_instances", ErrInvalidConfig), ExitInput},
		{"malformed", fmt.Errorf("load: %w", catalog.ErrMalformedStepFile), ExitInput},
		{"no projects", project.ErrNoProjectsFound, ExitInput},
		{"mesh", convert.ErrMeshNotFound, ExitInput},
		{"worker", launcher.ErrWorkerNotFound, ExitEnvironment},
		{"procfs", fmt.Errorf("%w: no /proc", ErrEnvironment), ExitEnvironment},
		{"not configured", ErrNotConfigured, ExitEnvironment},
		{"crash", &orchestrator.CrashError{Project: "plate", StepID: 3}, ExitCrash},
		{"interrupted", fmt.Errorf("admit: %w", context.Canceled), ExitInterrupted},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestRunFlags_ApplyOnlyChanged(t *testing.T) {
	var flags runFlags
	cmd := &cobra.Command{Use: "run"}
	flags.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--max-instances", "3", "--settle-delay", "2.5", "--cleanup=false"}))

	cfg := config.Default()
	cfg.WorkerName = "FromFile"
	require.NoError(t, flags.apply(cmd, cfg))

	assert.Equal(t, 3, cfg.MaxInstances)
	assert.Equal(t, 2500*time.Millisecond, cfg.SettleDelay)
	assert.False(t, cfg.Cleanup)
	assert.Equal(t, "FromFile", cfg.WorkerName)
	assert.True(t, cfg.AutoConcurrency)
}

func TestRunFlags_BadSettleDelay(t *testing.T) {
	var flags runFlags
	cmd := &cobra.Command{Use: "run"}
	flags.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--settle-delay", "soon"}))

	err := flags.apply(cmd, config.Default())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFinished(t *testing.T) {
	assert.False(t, finished(&domain.Progress{}))
	assert.False(t, finished(&domain.Progress{Projects: []domain.ProjectProgress{
		{Status: domain.ProjectStatusCompleted},
		{Status: domain.ProjectStatusRunning},
	}}))
	assert.True(t, finished(&domain.Progress{Projects: []domain.ProjectProgress{
		{Status: domain.ProjectStatusCompleted},
		{Status: domain.ProjectStatusSkipped},
	}}))
}

func TestOutput_Event(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{w: &buf, errW: io.Discard}

	out.Event(domain.Event{
		Type:      domain.EventStepLaunched,
		Project:   "plate",
		StepID:    2,
		PID:       4242,
		Timestamp: time.Date(2024, 1, 13, 10, 30, 0, 0, time.UTC),
	})
	assert.Equal(t, "10:30:00  step.launched  project=plate  step=2  pid=4242\n", buf.String())
}

func TestOutput_Progress(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{w: &buf, errW: io.Discard}

	out.Progress(&domain.Progress{
		Admission:   "STEADY_STATE",
		Concurrency: 4,
		Projects: []domain.ProjectProgress{
			{Name: "plate", Status: domain.ProjectStatusRunning, TotalSteps: 3, Pending: 1, Launched: 2},
		},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "admission: STEADY_STATE, concurrency: 4", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "PROJECT"))
	assert.Contains(t, lines[3], "RUNNING")
}

type staticProgress domain.Progress

func (s staticProgress) Progress() domain.Progress { return domain.Progress(s) }

func TestClient_Progress(t *testing.T) {
	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		Progress: staticProgress{
			RunID:       uuid.NewString(),
			Concurrency: 2,
			Projects:    []domain.ProjectProgress{{Name: "plate", Pending: 5}},
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := context.Background()

	p, err := client.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Concurrency)

	pp, err := client.Project(ctx, "plate")
	require.NoError(t, err)
	assert.Equal(t, 5, pp.Pending)

	_, err = client.Project(ctx, "beam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")

	_, err = client.ListRuns(ctx, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run journal is not configured")
}
