package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, missing, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if !missing {
		t.Fatalf("expected missing=true for absent file")
	}
	if cfg.Analysis.DefaultThreshold != 0.30 {
		t.Errorf("default threshold: expected 0.30, got %v", cfg.Analysis.DefaultThreshold)
	}
	if cfg.Processing.PaddingSeconds != 2 || cfg.Processing.MinGapSeconds != 4 {
		t.Errorf("processing defaults wrong: %+v", cfg.Processing)
	}
	if cfg.Analysis.Confirm.BaseURL != "http://localhost:11434" {
		t.Errorf("confirm base URL default wrong: %q", cfg.Analysis.Confirm.BaseURL)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := `
media:
  name: horror_movie.mp4
  external_id: tt0123456
analysis:
  threshold_overrides:
    Violence: 0.35
  confirm:
    enabled: true
    model: llava
processing:
  padding_seconds: 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, missing, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if missing {
		t.Fatalf("file exists, missing must be false")
	}

	if cfg.Media.Name != "horror_movie.mp4" || cfg.Media.ExternalID != "tt0123456" {
		t.Errorf("media section wrong: %+v", cfg.Media)
	}
	if got := cfg.Analysis.ThresholdOverrides["Violence"]; got != 0.35 {
		t.Errorf("override: expected 0.35, got %v", got)
	}
	if cfg.Analysis.DefaultThreshold != 0.30 {
		t.Errorf("unset default threshold must backfill to 0.30, got %v", cfg.Analysis.DefaultThreshold)
	}
	if cfg.Processing.PaddingSeconds != 3 {
		t.Errorf("explicit padding must survive, got %v", cfg.Processing.PaddingSeconds)
	}
	if cfg.Processing.MinGapSeconds != 4 {
		t.Errorf("unset min gap must backfill to 4, got %v", cfg.Processing.MinGapSeconds)
	}
	if !cfg.Analysis.Confirm.Enabled || cfg.Analysis.Confirm.TimeoutSeconds != 30 {
		t.Errorf("confirm section wrong: %+v", cfg.Analysis.Confirm)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("loaded config must validate: %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("media: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
