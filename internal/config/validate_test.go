package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Media.Name = "horror_movie.mp4"
	return cfg
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing media name",
			mutate: func(c *Config) { c.Media.Name = "" },
			want:   "media.name",
		},
		{
			name:   "default threshold out of range",
			mutate: func(c *Config) { c.Analysis.DefaultThreshold = 1.2 },
			want:   "default_threshold",
		},
		{
			name:   "override out of range",
			mutate: func(c *Config) { c.Analysis.ThresholdOverrides["Violence"] = -0.1 },
			want:   "threshold_overrides",
		},
		{
			name:   "zero batch size",
			mutate: func(c *Config) { c.Analysis.BatchSize = -1 },
			want:   "batch_size",
		},
		{
			name: "confirm enabled without model",
			mutate: func(c *Config) {
				c.Analysis.Confirm.Enabled = true
				c.Analysis.Confirm.Model = " "
			},
			want: "confirm.model",
		},
		{
			name: "confirm base URL not http",
			mutate: func(c *Config) {
				c.Analysis.Confirm.Enabled = true
				c.Analysis.Confirm.BaseURL = "ftp://example.com"
			},
			want: "base_url",
		},
		{
			name: "confirm timeout zero",
			mutate: func(c *Config) {
				c.Analysis.Confirm.Enabled = true
				c.Analysis.Confirm.TimeoutSeconds = 0
			},
			want: "timeout_seconds",
		},
		{
			name:   "negative padding",
			mutate: func(c *Config) { c.Processing.PaddingSeconds = -2 },
			want:   "padding_seconds",
		},
		{
			name: "telemetry enabled without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			want: "telemetry",
		},
		{
			name: "telemetry bad protocol",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = "localhost:4317"
				c.Telemetry.Protocol = "udp"
			},
			want: "protocol",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("default config with a media name must validate: %v", err)
	}
}

func TestValidateNilConfig(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestValidateConfirmDisabledSkipsConfirmChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.Confirm.Enabled = false
	cfg.Analysis.Confirm.BaseURL = "not a url"
	cfg.Analysis.Confirm.Model = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled confirm stage must not be validated: %v", err)
	}
}
