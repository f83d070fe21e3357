package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Media.Name) == "" {
		return errors.New("media.name must be set")
	}

	if err := validateAnalysisConfig(cfg.Analysis); err != nil {
		return err
	}

	if cfg.Processing.PaddingSeconds < 0 {
		return fmt.Errorf("processing.padding_seconds must not be negative, got %v", cfg.Processing.PaddingSeconds)
	}
	if cfg.Processing.MinGapSeconds < 0 {
		return fmt.Errorf("processing.min_gap_seconds must not be negative, got %v", cfg.Processing.MinGapSeconds)
	}

	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}

	return nil
}

func validateAnalysisConfig(a AnalysisConfig) error {
	if a.DefaultThreshold <= 0 || a.DefaultThreshold >= 1 {
		return fmt.Errorf("analysis.default_threshold must be in (0,1), got %v", a.DefaultThreshold)
	}
	for name, t := range a.ThresholdOverrides {
		if t <= 0 || t >= 1 {
			return fmt.Errorf("analysis.threshold_overrides[%q] must be in (0,1), got %v", name, t)
		}
	}
	if a.BatchSize <= 0 {
		return fmt.Errorf("analysis.batch_size must be positive, got %d", a.BatchSize)
	}

	if !a.Confirm.Enabled {
		return nil
	}
	if strings.TrimSpace(a.Confirm.Model) == "" {
		return errors.New("analysis.confirm.model must be set when confirm is enabled")
	}
	if a.Confirm.TimeoutSeconds <= 0 {
		return fmt.Errorf("analysis.confirm.timeout_seconds must be positive, got %d", a.Confirm.TimeoutSeconds)
	}
	if a.Confirm.MaxConcurrent <= 0 {
		return fmt.Errorf("analysis.confirm.max_concurrent must be positive, got %d", a.Confirm.MaxConcurrent)
	}
	u, err := url.Parse(a.Confirm.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("analysis.confirm.base_url %q is not a valid URL", a.Confirm.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("analysis.confirm.base_url must be http or https, got %q", u.Scheme)
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}
