// Package config defines the engine's recognized configuration knobs
// and a JSON file loader/saver. Populating this struct from process
// environment variables or command-line flags is left to the embedding
// application; this package only owns the struct, its defaults, and
// file-based persistence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"digital.vasic.nmt/internal/engineerr"
)

// Config holds every knob the engine recognizes.
type Config struct {
	Offline bool `json:"offline"`

	WorkersPerPair int `json:"workers_per_pair"`

	IdleTimeoutMin          float64 `json:"idle_timeout_min"`
	MemoryCheckIntervalMS   int     `json:"memory_check_interval_ms"`
	TimeoutResetThresholdMS int     `json:"timeout_reset_threshold_ms"`
	WorkerInitTimeoutMS     int     `json:"worker_init_timeout_ms"`

	MaxDetectionLength int `json:"max_detection_length"`

	DataDir          string `json:"data_dir"`
	CatalogURL       string `json:"catalog_url"`
	ArtifactsBaseURL string `json:"artifacts_base_url"`

	LogLevel string `json:"log_level"`
}

// Default returns the configuration with every documented default applied.
func Default() *Config {
	return &Config{
		Offline:                 false,
		WorkersPerPair:          1,
		IdleTimeoutMin:          30,
		MemoryCheckIntervalMS:   60_000,
		TimeoutResetThresholdMS: 300_000,
		WorkerInitTimeoutMS:     600_000,
		MaxDetectionLength:      64,
		DataDir:                 "data",
		CatalogURL:              "",
		ArtifactsBaseURL:        "",
		LogLevel:                "info",
	}
}

// Load reads a JSON configuration file, starting from Default() so any
// field the file omits keeps its default value.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as indented JSON to path.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations that cannot be acted on.
func (c *Config) Validate() error {
	if c.WorkersPerPair < 1 {
		return engineerr.New(engineerr.InvalidConfig, "config.Validate", "workers_per_pair must be >= 1")
	}
	if c.MaxDetectionLength < 1 {
		return engineerr.New(engineerr.InvalidConfig, "config.Validate", "max_detection_length must be >= 1")
	}
	if c.DataDir == "" {
		return engineerr.New(engineerr.InvalidConfig, "config.Validate", "data_dir must not be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "error", "warn", "info", "debug":
	default:
		return engineerr.New(engineerr.InvalidConfig, "config.Validate", "log_level must be one of Error|Warn|Info|Debug")
	}
	return nil
}

// IdleEvictionEnabled reports whether the idle timeout disables eviction
// entirely ("IDLE_TIMEOUT <= 0 disables eviction").
func (c *Config) IdleEvictionEnabled() bool {
	return c.IdleTimeoutMin > 0
}
