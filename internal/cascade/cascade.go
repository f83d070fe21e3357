// Package cascade drives the per-sample detection state machine: a cheap
// broad screening over embedding similarity, followed for suspicious
// categories by an expensive natural-language confirmation, with fail-open
// handling whenever the confirmation stage is degraded.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scenesafe/scenesafe/internal/audit"
	"github.com/scenesafe/scenesafe/internal/confirm"
	"github.com/scenesafe/scenesafe/internal/screen"
	"github.com/scenesafe/scenesafe/internal/telemetry"
	"github.com/scenesafe/scenesafe/internal/trigger"
)

// Sample is one analyzed unit: a timestamp in seconds and an opaque content
// handle understood by the configured scorer and confirmer.
type Sample struct {
	Timestamp float64
	Content   screen.Content
}

// Result holds the verdicts for one sample, keyed by category name.
type Result struct {
	Timestamp float64
	Verdicts  map[string]Verdict
}

// Flags reduces the verdicts to the boolean detection-log form.
func (r *Result) Flags() map[string]bool {
	out := make(map[string]bool, len(r.Verdicts))
	for name, v := range r.Verdicts {
		out[name] = v.Positive()
	}
	return out
}

// Config tunes a Controller.
type Config struct {
	Thresholds screen.Thresholds
	// ConfirmEnabled gates the confirmation stage entirely. When false the
	// broad stage is trusted for every category.
	ConfirmEnabled bool
	// MaxConcurrentConfirms bounds parallel confirmation calls in a batch.
	MaxConcurrentConfirms int
}

// Controller runs the cascade for one modality. State is entirely
// sample-scoped; a Controller carries no per-sample state between calls and
// is safe for sequential reuse across a whole run.
type Controller struct {
	reg       *trigger.Registry
	index     *screen.PromptIndex
	scorer    screen.Scorer
	confirmer confirm.Confirmer
	cfg       Config
	auditor   *audit.Emitter
	tel       *telemetry.Provider

	// degraded is latched by RefreshAvailability: when the confirmation
	// service is down, broad hits are trusted directly for the whole run.
	degraded bool
}

// NewController wires a cascade for the categories of reg that carry prompts
// for the index's modality. The scorer is mandatory; confirmer, auditor and
// telemetry may be nil.
func NewController(
	reg *trigger.Registry,
	index *screen.PromptIndex,
	scorer screen.Scorer,
	confirmer confirm.Confirmer,
	cfg Config,
	auditor *audit.Emitter,
	tel *telemetry.Provider,
) (*Controller, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if index == nil {
		return nil, errors.New("prompt index is nil")
	}
	if scorer == nil {
		return nil, screen.ErrScorerUnavailable
	}
	if cfg.MaxConcurrentConfirms <= 0 {
		cfg.MaxConcurrentConfirms = 4
	}

	return &Controller{
		reg:       reg,
		index:     index,
		scorer:    scorer,
		confirmer: confirmer,
		cfg:       cfg,
		auditor:   auditor,
		tel:       tel,
	}, nil
}

// RefreshAvailability probes the confirmation service once and latches
// degraded mode for subsequent samples. Called at run start, not per sample,
// so a flapping service does not flip behavior mid-run.
func (c *Controller) RefreshAvailability(ctx context.Context) {
	if c.confirmer == nil || !c.cfg.ConfirmEnabled {
		c.degraded = true
		return
	}
	c.degraded = !c.confirmer.Available(ctx)
}

// Degraded reports whether the confirmation stage is out of play.
func (c *Controller) Degraded() bool { return c.degraded }

// WarmUp pre-embeds the index's prompts when the scorer supports it, so the
// first batch does not pay the text-encoder cost per prompt. Scorers without
// a precompute step are a no-op.
func (c *Controller) WarmUp(ctx context.Context) error {
	pc, ok := c.scorer.(interface {
		Precompute(ctx context.Context, prompts []string) error
	})
	if !ok {
		return nil
	}
	if err := pc.Precompute(ctx, c.index.Prompts()); err != nil {
		return fmt.Errorf("precompute %s prompts: %w", c.index.Modality(), err)
	}
	return nil
}

// confirmTask is one escalated (sample, category) pair awaiting confirmation.
type confirmTask struct {
	sampleIdx int
	category  *trigger.TriggerCategory
	content   screen.Content
	score     float32
}

// ScreenBatch runs the cascade over a batch of samples. The broad stage runs
// per sample across all categories at once; escalated pairs are confirmed
// concurrently, each worker writing to its own slot, and reassociated by
// (sample, category) before the results are returned. Results keep the input
// order, so callers can commit them to the detection log in timestamp order.
func (c *Controller) ScreenBatch(ctx context.Context, samples []Sample) ([]*Result, error) {
	ctx, span := c.tel.StartSpan(ctx, "cascade.screen_batch", map[string]interface{}{
		"scenesafe.modality":   string(c.index.Modality()),
		"scenesafe.batch_size": len(samples),
	})
	defer span.End()

	results := make([]*Result, len(samples))
	var tasks []confirmTask

	for i, s := range samples {
		broadStart := time.Now()
		set, err := c.index.ScoreSample(ctx, c.scorer, s.Content)
		if err != nil {
			// Broad stage failures are run-fatal: without it the cascade
			// has no screening signal at all.
			return nil, fmt.Errorf("sample at %.1fs: %w", s.Timestamp, err)
		}
		c.tel.RecordSample(string(c.index.Modality()), float64(time.Since(broadStart).Milliseconds()))

		res := &Result{Timestamp: s.Timestamp, Verdicts: make(map[string]Verdict)}
		results[i] = res

		suspicious := make(map[string]bool)
		for _, name := range screen.Suspicious(c.reg, set, c.cfg.Thresholds) {
			suspicious[name] = true
		}

		for _, cat := range c.reg.All() {
			score, scored := set[cat.Name]
			if !scored {
				continue
			}

			if !suspicious[cat.Name] {
				res.Verdicts[cat.Name] = Verdict{
					Category: cat.Name,
					State:    StateRejected,
					Score:    score,
				}
				continue
			}

			if cat.NeedsConfirmation() && !c.degraded {
				tasks = append(tasks, confirmTask{
					sampleIdx: i,
					category:  cat,
					content:   s.Content,
					score:     score,
				})
				continue
			}

			// Broad-only strategy, or degraded mode: trust the broad stage.
			res.Verdicts[cat.Name] = Verdict{
				Category:   cat.Name,
				State:      StateConfirmed,
				Score:      score,
				Confidence: score,
			}
		}
	}

	if len(tasks) == 0 {
		return results, nil
	}

	// One slot per task; workers never share a map.
	verdicts := make([]Verdict, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentConfirms)
	for k := range tasks {
		g.Go(func() error {
			t := tasks[k]
			verdicts[k] = c.confirmOne(gctx, samples[t.sampleIdx].Timestamp, t)
			return nil
		})
	}
	// Workers only report verdicts, never errors: every confirmation failure
	// resolves to a fail-safe verdict instead of aborting the batch.
	_ = g.Wait()

	for k, t := range tasks {
		results[t.sampleIdx].Verdicts[t.category.Name] = verdicts[k]
	}

	return results, nil
}

// confirmOne makes a single confirmation attempt for an escalated pair.
// No retries: a missed escalation is already safety-biased toward CONFIRMED,
// and retrying would stall the pipeline.
func (c *Controller) confirmOne(ctx context.Context, sampleSec float64, t confirmTask) Verdict {
	res, err := c.confirmer.Confirm(ctx, t.content, t.category.ConfirmTemplate)
	if err != nil {
		// Fail open: prefer a spurious warning over a missed trigger.
		c.auditor.Record(audit.Event{
			Kind:      audit.KindFailsafeConfirm,
			Category:  t.category.Name,
			SampleSec: sampleSec,
			Detail:    err.Error(),
		})
		c.tel.RecordFailsafe(t.category.Name)
		return Verdict{
			Category:    t.category.Name,
			State:       StateConfirmed,
			Score:       t.score,
			Confidence:  0.0,
			Explanation: failsafeExplanation(err),
			FailSafe:    true,
		}
	}

	c.tel.RecordEscalation(t.category.Name, float64(res.Latency.Milliseconds()))

	cls := classifyResponse(res.Text)
	if cls.unparseable {
		c.auditor.Record(audit.Event{
			Kind:      audit.KindUnparseableConfirmation,
			Category:  t.category.Name,
			SampleSec: sampleSec,
			Detail:    truncateDetail(res.Text, 100),
		})
	}

	state := StateDenied
	if cls.confirmed {
		state = StateConfirmed
	}
	return Verdict{
		Category:    t.category.Name,
		State:       state,
		Score:       t.score,
		Confidence:  cls.confidence,
		Explanation: res.Text,
	}
}

func failsafeExplanation(err error) string {
	switch {
	case errors.Is(err, confirm.ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, confirm.ErrUnavailable):
		return "UNAVAILABLE"
	default:
		return "ERROR: " + err.Error()
	}
}

func truncateDetail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
