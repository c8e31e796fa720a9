package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.AutoConcurrency)
	assert.Equal(t, 8, cfg.MaxInstances)
	assert.Equal(t, 7*time.Second, cfg.SettleDelay)
	assert.Equal(t, 0.95, cfg.RAMSafetyFactor)
	assert.Equal(t, 80.0, cfg.MaxCPULoadPercent)
	assert.Equal(t, ConfigModePerStep, cfg.ConfigMode)
	assert.Equal(t, "Scanning_FREQUNCIES.txt", cfg.Layout.StepFile)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	content := `
search_root: /data/scans
max_instances: 3
settle_delay: 2s
ram_safety_factor: 1.2
layout:
  step_file: freqs.txt
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/scans", cfg.SearchRoot)
	assert.Equal(t, 3, cfg.MaxInstances)
	assert.Equal(t, 2*time.Second, cfg.SettleDelay)
	assert.Equal(t, 1.2, cfg.RAMSafetyFactor)
	assert.Equal(t, "freqs.txt", cfg.Layout.StepFile)
	// не указанные поля сохраняют значения по умолчанию
	assert.Equal(t, "Scanning_case.sif", cfg.Layout.Template)
	assert.Equal(t, 80.0, cfg.MaxCPULoadPercent)
}

func TestLoad_DurationsInSeconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	content := `
settle_delay: 7
cpu_sample_window: 0.25
auto_detect_window: "1,5"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7*time.Second, cfg.SettleDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.CPUSampleWindow)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutoDetectWindow)
	assert.Equal(t, 8, cfg.MaxInstances)
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settle_delay: soon\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settle_delay")
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SWEEP_MAX_INSTANCES", "4")
	t.Setenv("SWEEP_SETTLE_DELAY", "3.5")
	t.Setenv("SWEEP_RAM_SAFETY_FACTOR", "0,9")
	t.Setenv("SWEEP_CLEANUP", "false")
	t.Setenv("SWEEP_CONFIG_MODE", "shared")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, 4, cfg.MaxInstances)
	assert.Equal(t, 3500*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 0.9, cfg.RAMSafetyFactor)
	assert.False(t, cfg.Cleanup)
	assert.Equal(t, ConfigModeShared, cfg.ConfigMode)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("SWEEP_MAX_INSTANCES", "many")

	cfg := Default()
	err := cfg.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SWEEP_MAX_INSTANCES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"zero instances", func(c *Config) { c.MaxInstances = 0 }, "max_instances"},
		{"negative settle", func(c *Config) { c.SettleDelay = -time.Second }, "settle_delay"},
		{"zero settle", func(c *Config) { c.SettleDelay = 0 }, "settle_delay"},
		{"zero safety factor", func(c *Config) { c.RAMSafetyFactor = 0 }, "ram_safety_factor"},
		{"cpu over 100", func(c *Config) { c.MaxCPULoadPercent = 120 }, "max_cpu_load_percent"},
		{"unknown mode", func(c *Config) { c.ConfigMode = "weird" }, "config_mode"},
		{"empty marker prefix", func(c *Config) { c.Layout.MarkerPrefix = "" }, "layout.marker_prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"7", 7 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"1,5", 1500 * time.Millisecond},
		{"250ms", 250 * time.Millisecond},
		{"2m", 2 * time.Minute},
	}
	for _, tt := range tests {
		got, err := ParseSeconds(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSeconds("soon")
	assert.Error(t, err)
}
