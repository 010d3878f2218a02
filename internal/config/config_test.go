package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.False(t, cfg.Offline)
	assert.Equal(t, 1, cfg.WorkersPerPair)
	assert.Equal(t, 30.0, cfg.IdleTimeoutMin)
	assert.Equal(t, 60_000, cfg.MemoryCheckIntervalMS)
	assert.Equal(t, 300_000, cfg.TimeoutResetThresholdMS)
	assert.Equal(t, 600_000, cfg.WorkerInitTimeoutMS)
	assert.Equal(t, 64, cfg.MaxDetectionLength)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.IdleEvictionEnabled())
}

func TestLoad_Success(t *testing.T) {
	body := `{
  "offline": true,
  "workers_per_pair": 3,
  "idle_timeout_min": 0,
  "data_dir": "/tmp/nmt",
  "log_level": "debug"
}`
	tmp, err := os.CreateTemp("", "config-*.json")
	require.NoError(t, err)
	defer os.Remove(tmp.Name())
	_, err = tmp.WriteString(body)
	require.NoError(t, err)
	tmp.Close()

	cfg, err := Load(tmp.Name())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.Offline)
	assert.Equal(t, 3, cfg.WorkersPerPair)
	assert.False(t, cfg.IdleEvictionEnabled())
	assert.Equal(t, "/tmp/nmt", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Fields the file omits keep the defaults.
	assert.Equal(t, 600_000, cfg.WorkerInitTimeoutMS)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/non/existent/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmp, err := os.CreateTemp("", "config-*.json")
	require.NoError(t, err)
	defer os.Remove(tmp.Name())
	_, err = tmp.WriteString("not json {")
	require.NoError(t, err)
	tmp.Close()

	cfg, err := Load(tmp.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	tmp, err := os.CreateTemp("", "config-*.json")
	require.NoError(t, err)
	tmp.Close()
	defer os.Remove(tmp.Name())

	original := Default()
	original.WorkersPerPair = 4
	original.DataDir = "/var/lib/nmt"
	original.LogLevel = "warn"

	require.NoError(t, Save(tmp.Name(), original))

	loaded, err := Load(tmp.Name())
	require.NoError(t, err)
	assert.Equal(t, original.WorkersPerPair, loaded.WorkersPerPair)
	assert.Equal(t, original.DataDir, loaded.DataDir)
	assert.Equal(t, original.LogLevel, loaded.LogLevel)
}

func TestSave_InvalidPath(t *testing.T) {
	err := Save("/nonexistent-dir/config.json", Default())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"zero workers rejected", func(c *Config) { c.WorkersPerPair = 0 }, true},
		{"zero detection length rejected", func(c *Config) { c.MaxDetectionLength = 0 }, true},
		{"empty data dir rejected", func(c *Config) { c.DataDir = "" }, true},
		{"unknown log level rejected", func(c *Config) { c.LogLevel = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIdleEvictionEnabled(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.IdleEvictionEnabled())
	cfg.IdleTimeoutMin = 0
	assert.False(t, cfg.IdleEvictionEnabled())
	cfg.IdleTimeoutMin = -5
	assert.False(t, cfg.IdleEvictionEnabled())
}
