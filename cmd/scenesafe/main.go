package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/scenesafe/scenesafe/internal/audit"
	"github.com/scenesafe/scenesafe/internal/cascade"
	"github.com/scenesafe/scenesafe/internal/clip"
	"github.com/scenesafe/scenesafe/internal/config"
	"github.com/scenesafe/scenesafe/internal/confirm"
	"github.com/scenesafe/scenesafe/internal/runner"
	"github.com/scenesafe/scenesafe/internal/screen"
	"github.com/scenesafe/scenesafe/internal/telemetry"
	"github.com/scenesafe/scenesafe/internal/trigger"
)

func main() {
	configPath := flag.String("config", "scenesafe.yaml", "Path to config file")
	mode := flag.String("mode", "analyze", "analyze: screen media samples; format: rebuild the report from existing detection logs")
	framesDir := flag.String("frames", "", "Directory of extracted video frames (Name_HHMMSS_*.jpg)")
	audioDir := flag.String("audio", "", "Directory of audio spectrogram images, optional")
	bundleDir := flag.String("bundle", "models", "Directory holding the CLIP model bundle")
	flag.Parse()

	// log.Fatalf skips deferred cleanup, so the whole program body lives in
	// run and buffered audit events flush before the process exits.
	if err := run(*configPath, *mode, *framesDir, *audioDir, *bundleDir); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(configPath, mode, framesDir, audioDir, bundleDir string) error {
	cfg, missing, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The audit trail opens before validation so a config_missing event is
	// flushed even when the defaults fail validation below.
	fileSink, err := audit.NewFileSink(cfg.Paths.AuditLog)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	auditor := audit.NewEmitter(audit.EmitterConfig{}, []audit.Sink{fileSink})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		auditor.Close(closeCtx)
	}()

	if missing {
		log.Printf("config file %s not found, using defaults", configPath)
		auditor.Record(audit.Event{
			Kind:   audit.KindConfigMissing,
			Detail: configPath,
		})
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	reg := trigger.DefaultRegistry()

	switch mode {
	case "format":
		if err := runner.FormatReport(cfg, reg, auditor); err != nil {
			return fmt.Errorf("format report: %w", err)
		}
	case "analyze":
		if err := analyze(cfg, reg, auditor, framesDir, audioDir, bundleDir); err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
	default:
		return fmt.Errorf("unknown mode %q (want analyze or format)", mode)
	}
	log.Printf("report written to %s", cfg.Paths.Report)
	return nil
}

func analyze(cfg *config.Config, reg *trigger.Registry, auditor *audit.Emitter, framesDir, audioDir, bundleDir string) error {
	ctx := context.Background()

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  "scenesafe",
	})
	if err != nil {
		return err
	}
	defer tel.Shutdown(ctx)

	scorer, err := clip.New(clip.Options{BundleDir: bundleDir})
	if err != nil {
		return err
	}
	defer scorer.Close()

	var confirmer confirm.Confirmer
	if cfg.Analysis.Confirm.Enabled {
		confirmer = confirm.NewOllama(
			cfg.Analysis.Confirm.BaseURL,
			cfg.Analysis.Confirm.Model,
			time.Duration(cfg.Analysis.Confirm.TimeoutSeconds)*time.Second,
			0,
		)
	}

	cascadeCfg := cascade.Config{
		Thresholds: screen.Thresholds{
			Overrides: cfg.Analysis.ThresholdOverrides,
			Default:   cfg.Analysis.DefaultThreshold,
		},
		ConfirmEnabled:        cfg.Analysis.Confirm.Enabled,
		MaxConcurrentConfirms: cfg.Analysis.Confirm.MaxConcurrent,
	}

	visualIdx := screen.NewPromptIndex(reg, trigger.ModalityVisual)
	visualCtrl, err := cascade.NewController(reg, visualIdx, scorer, confirmer, cascadeCfg, auditor, tel)
	if err != nil {
		return err
	}

	visualSrc, skipped, err := runner.NewDirectorySource(framesDir)
	if err != nil {
		return err
	}
	logSkippedFiles("frames", skipped)
	log.Printf("screening %d visual samples", visualSrc.Len())

	var audioCtrl *cascade.Controller
	var audioSrc runner.Source
	if audioDir != "" {
		audioIdx := screen.NewPromptIndex(reg, trigger.ModalityAudio)
		audioCtrl, err = cascade.NewController(reg, audioIdx, scorer, confirmer, cascadeCfg, auditor, tel)
		if err != nil {
			return err
		}
		src, skipped, err := runner.NewDirectorySource(audioDir)
		if err != nil {
			return err
		}
		logSkippedFiles("audio", skipped)
		log.Printf("screening %d audio samples", src.Len())
		audioSrc = src
	}

	run, err := runner.New(cfg, reg, visualCtrl, audioCtrl, auditor)
	if err != nil {
		return err
	}
	return run.Run(ctx, visualSrc, audioSrc)
}

func logSkippedFiles(kind string, names []string) {
	for _, name := range names {
		log.Printf("%s: skipping %s (no HHMMSS segment)", kind, name)
	}
}
