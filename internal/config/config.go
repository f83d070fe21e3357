// Package config loads and validates the run configuration for a screening
// job: which media is being analyzed, how the cascade is tuned, where the
// intermediate and final artifacts land.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds one screening run's configuration.
type Config struct {
	Media      MediaConfig      `yaml:"media"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Processing ProcessingConfig `yaml:"processing"`
	Paths      PathsConfig      `yaml:"paths"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type MediaConfig struct {
	Name       string `yaml:"name"`        // media title used in the report row
	ExternalID string `yaml:"external_id"` // catalogue identifier, e.g. an IMDb id
}

type AnalysisConfig struct {
	// DefaultThreshold applies to categories with no per-category default
	// and no run override.
	DefaultThreshold float32 `yaml:"default_threshold"`
	// ThresholdOverrides maps category name to a run-level threshold that
	// wins over the category default.
	ThresholdOverrides map[string]float32 `yaml:"threshold_overrides"`
	BatchSize          int                `yaml:"batch_size"`
	Confirm            ConfirmConfig      `yaml:"confirm"`
}

type ConfirmConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"` // e.g. "http://localhost:11434"
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
}

type ProcessingConfig struct {
	// PaddingSeconds widens each detection before/after in the report.
	PaddingSeconds float64 `yaml:"padding_seconds"`
	// MinGapSeconds folds report intervals closer than this into one.
	MinGapSeconds float64 `yaml:"min_gap_seconds"`
}

type PathsConfig struct {
	VisualLog string `yaml:"visual_log"` // intermediate per-sample CSV, visual pipeline
	AudioLog  string `yaml:"audio_log"`  // intermediate per-sample CSV, audio pipeline
	Report    string `yaml:"report"`     // final one-row-per-media CSV
	StateFile string `yaml:"state_file"` // resume checkpoint
	AuditLog  string `yaml:"audit_log"`  // JSONL audit trail
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
}

// Load reads configuration from a YAML file. A missing file is not an error:
// the defaults are returned and missing reports true so the caller can log it
// once.
func Load(path string) (cfg *Config, missing bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), true, nil
		}
		return nil, false, err
	}

	cfg = &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, false, err
	}

	applyDefaults(cfg)

	return cfg, false, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Analysis.DefaultThreshold == 0 {
		cfg.Analysis.DefaultThreshold = 0.30
	}
	if cfg.Analysis.ThresholdOverrides == nil {
		cfg.Analysis.ThresholdOverrides = map[string]float32{}
	}
	if cfg.Analysis.BatchSize == 0 {
		cfg.Analysis.BatchSize = 32
	}

	if cfg.Analysis.Confirm.BaseURL == "" {
		cfg.Analysis.Confirm.BaseURL = "http://localhost:11434"
	}
	if cfg.Analysis.Confirm.Model == "" {
		cfg.Analysis.Confirm.Model = "llava"
	}
	if cfg.Analysis.Confirm.TimeoutSeconds == 0 {
		cfg.Analysis.Confirm.TimeoutSeconds = 30
	}
	if cfg.Analysis.Confirm.MaxConcurrent == 0 {
		cfg.Analysis.Confirm.MaxConcurrent = 4
	}

	if cfg.Processing.PaddingSeconds == 0 {
		cfg.Processing.PaddingSeconds = 2
	}
	if cfg.Processing.MinGapSeconds == 0 {
		cfg.Processing.MinGapSeconds = 4
	}

	if cfg.Paths.VisualLog == "" {
		cfg.Paths.VisualLog = "visual_detections.csv"
	}
	if cfg.Paths.AudioLog == "" {
		cfg.Paths.AudioLog = "audio_detections.csv"
	}
	if cfg.Paths.Report == "" {
		cfg.Paths.Report = "report.csv"
	}
	if cfg.Paths.StateFile == "" {
		cfg.Paths.StateFile = "screening_state.json"
	}
	if cfg.Paths.AuditLog == "" {
		cfg.Paths.AuditLog = "audit.jsonl"
	}
}
