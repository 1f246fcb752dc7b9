// Package config loads widelog configuration.
//
// Precedence, highest to lowest: environment variables (WIDELOG_*),
// YAML config file, built-in defaults. A malformed or unreadable file
// is treated as absent rather than fatal: the pipeline must come up
// even when its own configuration is broken.
package config

import "fmt"

// ConsoleConfig controls the console sink.
type ConsoleConfig struct {
	Enabled bool   `koanf:"enabled"`
	Level   string `koanf:"level"`

	// Color selects the ANSI-colored line format. Colored output never
	// reaches file sinks.
	Color bool `koanf:"color"`
}

// FileConfig controls a file sink. The same shape serves the main file
// sink and the error-only file sink.
type FileConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Level         string `koanf:"level"`
	Path          string `koanf:"path"`
	MaxBytes      int64  `koanf:"max_bytes"`
	BackupCount   int    `koanf:"backup_count"`
	RetentionDays int    `koanf:"retention_days"`
	QueueSize     int    `koanf:"queue_size"`
}

// WideEventConfig controls the wide-event pipeline and its sampling.
type WideEventConfig struct {
	Enabled            bool     `koanf:"enabled"`
	SamplingRate       float64  `koanf:"sampling_rate"`
	TailSampling       bool     `koanf:"tail_sampling"`
	AlwaysSampleErrors bool     `koanf:"always_sample_errors"`
	AlwaysSampleSlow   bool     `koanf:"always_sample_slow"`
	SlowThresholdMS    int64    `koanf:"slow_threshold_ms"`
	AlwaysSampleUsers  []string `koanf:"always_sample_users"`
	AlwaysSampleProj   []string `koanf:"always_sample_projects"`
}

// Config is the full configuration surface.
type Config struct {
	GlobalLevel string          `koanf:"global_level"`
	Console     ConsoleConfig   `koanf:"console"`
	File        FileConfig      `koanf:"file"`
	ErrorFile   FileConfig      `koanf:"error_file"`
	WideEvent   WideEventConfig `koanf:"wide_event"`
}

// NewDefaultConfig returns production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		GlobalLevel: "info",
		Console: ConsoleConfig{
			Enabled: true,
			Level:   "info",
		},
		File: FileConfig{
			Enabled:       true,
			Level:         "info",
			Path:          "logs/widelog.log",
			MaxBytes:      10 * 1024 * 1024,
			BackupCount:   5,
			RetentionDays: 14,
			QueueSize:     1000,
		},
		ErrorFile: FileConfig{
			Enabled:       false,
			Level:         "error",
			Path:          "logs/widelog-error.log",
			MaxBytes:      10 * 1024 * 1024,
			BackupCount:   5,
			RetentionDays: 30,
			QueueSize:     500,
		},
		WideEvent: WideEventConfig{
			Enabled:            true,
			SamplingRate:       0.1,
			TailSampling:       true,
			AlwaysSampleErrors: true,
			AlwaysSampleSlow:   true,
			SlowThresholdMS:    1000,
		},
	}
}

// validLevels are the accepted level names across all sinks.
var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	for name, level := range map[string]string{
		"global_level":     c.GlobalLevel,
		"console.level":    c.Console.Level,
		"file.level":       c.File.Level,
		"error_file.level": c.ErrorFile.Level,
	} {
		if level != "" && !validLevels[level] {
			return fmt.Errorf("%s: unknown level %q", name, level)
		}
	}
	if c.WideEvent.SamplingRate < 0 || c.WideEvent.SamplingRate > 1 {
		return fmt.Errorf("wide_event.sampling_rate must be in [0, 1], got %v", c.WideEvent.SamplingRate)
	}
	if c.WideEvent.SlowThresholdMS < 0 {
		return fmt.Errorf("wide_event.slow_threshold_ms must be >= 0, got %d", c.WideEvent.SlowThresholdMS)
	}
	if c.File.Enabled && c.File.Path == "" {
		return fmt.Errorf("file.path required when file sink enabled")
	}
	if c.ErrorFile.Enabled && c.ErrorFile.Path == "" {
		return fmt.Errorf("error_file.path required when error file sink enabled")
	}
	for name, fc := range map[string]FileConfig{"file": c.File, "error_file": c.ErrorFile} {
		if fc.MaxBytes < 0 {
			return fmt.Errorf("%s.max_bytes must be >= 0", name)
		}
		if fc.BackupCount < 0 {
			return fmt.Errorf("%s.backup_count must be >= 0", name)
		}
		if fc.RetentionDays < 0 {
			return fmt.Errorf("%s.retention_days must be >= 0", name)
		}
		if fc.QueueSize < 0 {
			return fmt.Errorf("%s.queue_size must be >= 0", name)
		}
	}
	return nil
}
