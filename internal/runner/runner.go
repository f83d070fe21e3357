// Package runner drives a whole screening job: sampling, the detection
// cascade per modality, fusion, intermediate logs, the resume checkpoint and
// the final report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/scenesafe/scenesafe/internal/audit"
	"github.com/scenesafe/scenesafe/internal/cascade"
	"github.com/scenesafe/scenesafe/internal/config"
	"github.com/scenesafe/scenesafe/internal/detlog"
	"github.com/scenesafe/scenesafe/internal/report"
	"github.com/scenesafe/scenesafe/internal/trigger"
)

// Runner ties the per-modality cascade controllers to the detection log and
// report stages for one media item.
type Runner struct {
	cfg     *config.Config
	reg     *trigger.Registry
	visual  *cascade.Controller
	audio   *cascade.Controller
	auditor *audit.Emitter
}

// New builds a runner. The visual controller is mandatory; audio is optional
// and enables fusion when present.
func New(cfg *config.Config, reg *trigger.Registry, visual, audio *cascade.Controller, auditor *audit.Emitter) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if visual == nil {
		return nil, errors.New("visual controller is nil")
	}
	return &Runner{cfg: cfg, reg: reg, visual: visual, audio: audio, auditor: auditor}, nil
}

// Run screens the media end to end: every sample through the cascade, both
// modalities fused, intermediate logs dumped, the report written. The resume
// checkpoint is deleted once the report lands.
func (r *Runner) Run(ctx context.Context, visualSrc, audioSrc Source) error {
	if visualSrc == nil {
		return errors.New("visual source is nil")
	}

	st, err := LoadState(r.cfg.Paths.StateFile, r.cfg.Media.Name)
	if err != nil {
		return err
	}

	r.visual.RefreshAvailability(ctx)
	if r.visual.Degraded() {
		log.Printf("confirmation service unavailable, trusting broad stage for this run")
	}
	if err := r.visual.WarmUp(ctx); err != nil {
		return fmt.Errorf("visual pipeline: %w", err)
	}

	visualLog, err := r.runModality(ctx, string(trigger.ModalityVisual), r.visual, visualSrc, st, r.cfg.Paths.VisualLog)
	if err != nil {
		return fmt.Errorf("visual pipeline: %w", err)
	}

	var audioLog *detlog.Log
	if r.audio != nil && audioSrc != nil {
		r.audio.RefreshAvailability(ctx)
		if err := r.audio.WarmUp(ctx); err != nil {
			return fmt.Errorf("audio pipeline: %w", err)
		}
		audioLog, err = r.runModality(ctx, string(trigger.ModalityAudio), r.audio, audioSrc, st, r.cfg.Paths.AudioLog)
		if err != nil {
			return fmt.Errorf("audio pipeline: %w", err)
		}
	}

	fused := detlog.FuseOr(visualLog, audioLog, r.fusionCategories())
	if err := r.writeReport(fused); err != nil {
		return err
	}

	if err := os.Remove(r.cfg.Paths.StateFile); err != nil && !os.IsNotExist(err) {
		log.Printf("remove state file: %v", err)
	}
	return nil
}

// runModality feeds one source through its cascade controller, committing
// rows batch by batch with a checkpoint after each batch.
func (r *Runner) runModality(ctx context.Context, modality string, ctrl *cascade.Controller, src Source, st *RunState, logPath string) (*detlog.Log, error) {
	dlog := detlog.NewLog(r.reg.Names())

	committed := st.Committed[modality]
	if committed > 0 {
		seeded, ok := r.seedFromCSV(logPath, committed)
		if ok {
			dlog = seeded
			log.Printf("%s: resuming after %d committed samples", modality, committed)
		} else {
			committed = 0
			st.Committed[modality] = 0
		}
	}

	// Skip samples already committed in a previous run.
	for skipped := 0; skipped < committed; skipped++ {
		if _, ok, err := src.Next(ctx); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}

	batch := make([]cascade.Sample, 0, r.cfg.Analysis.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		results, err := ctrl.ScreenBatch(ctx, batch)
		if err != nil {
			return err
		}
		for _, res := range results {
			if err := dlog.Append(res.Timestamp, res.Flags()); err != nil {
				return fmt.Errorf("commit row at %v: %w", res.Timestamp, err)
			}
		}
		st.Committed[modality] += len(batch)
		batch = batch[:0]
		return st.Save(r.cfg.Paths.StateFile)
	}

	for {
		sample, ok, err := src.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		batch = append(batch, sample)
		if len(batch) >= r.cfg.Analysis.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	dlog.Finalize()
	if err := writeLogCSV(dlog, logPath); err != nil {
		return nil, err
	}
	return dlog, nil
}

// seedFromCSV restores the committed rows of an interrupted run from the
// intermediate CSV. Any mismatch falls back to a fresh start.
func (r *Runner) seedFromCSV(path string, committed int) (*detlog.Log, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	parsed, skipped, err := detlog.ReadCSV(f)
	if err != nil {
		return nil, false
	}
	if skipped > 0 {
		r.auditor.Record(audit.Event{
			Kind:   audit.KindMalformedLogRow,
			Detail: fmt.Sprintf("%d malformed rows skipped restoring %s", skipped, path),
		})
	}
	if parsed.Len() < committed || !sameCategories(parsed.Categories(), r.reg.Names()) {
		return nil, false
	}

	// Only the committed prefix is trusted; anything after it belongs to the
	// interrupted batch and gets rescored.
	out := detlog.NewLog(parsed.Categories())
	for _, row := range parsed.Rows()[:committed] {
		if err := out.Append(row.Timestamp, row.Flags); err != nil {
			return nil, false
		}
	}
	return out, true
}

func sameCategories(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (r *Runner) fusionCategories() []string {
	var out []string
	for _, cat := range r.reg.All() {
		if cat.Strategy == trigger.StrategyFusion {
			out = append(out, cat.Name)
		}
	}
	return out
}

func (r *Runner) writeReport(fused *detlog.Log) error {
	row := report.Build(fused, r.reg, r.cfg.Media.Name, r.cfg.Media.ExternalID, report.Options{
		PaddingSeconds: r.cfg.Processing.PaddingSeconds,
		MinGapSeconds:  r.cfg.Processing.MinGapSeconds,
	})

	f, err := os.Create(r.cfg.Paths.Report)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := report.WriteCSV(f, r.reg, []*report.Row{row}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeLogCSV(l *detlog.Log, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create detection log: %w", err)
	}
	defer f.Close()

	if err := l.WriteCSV(f); err != nil {
		return fmt.Errorf("write detection log: %w", err)
	}
	return nil
}

// FormatReport rebuilds the final report from already-written detection
// logs, without rescoring anything. The audio log is optional.
func FormatReport(cfg *config.Config, reg *trigger.Registry, auditor *audit.Emitter) error {
	visualLog, err := readLogCSV(cfg.Paths.VisualLog, auditor)
	if err != nil {
		return fmt.Errorf("read visual log: %w", err)
	}

	var audioLog *detlog.Log
	if _, err := os.Stat(cfg.Paths.AudioLog); err == nil {
		audioLog, err = readLogCSV(cfg.Paths.AudioLog, auditor)
		if err != nil {
			return fmt.Errorf("read audio log: %w", err)
		}
	}

	r := &Runner{cfg: cfg, reg: reg, auditor: auditor}
	fused := detlog.FuseOr(visualLog, audioLog, r.fusionCategories())
	return r.writeReport(fused)
}

func readLogCSV(path string, auditor *audit.Emitter) (*detlog.Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parsed, skipped, err := detlog.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		auditor.Record(audit.Event{
			Kind:   audit.KindMalformedLogRow,
			Detail: fmt.Sprintf("%d malformed rows skipped reading %s", skipped, path),
		})
	}
	return parsed, nil
}
