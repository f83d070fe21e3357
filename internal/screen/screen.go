package screen

import (
	"context"
	"errors"
	"fmt"

	"github.com/scenesafe/scenesafe/internal/trigger"
)

// ErrScorerUnavailable aborts the run: the broad stage is mandatory.
var ErrScorerUnavailable = errors.New("scorer unavailable")

// Content is an opaque handle to one sample's payload (image bytes, audio
// clip, or a path) as understood by the configured Scorer.
type Content any

// Scorer computes similarity between content and text prompts. One score per
// prompt, same order as the input. Scores are relative similarity, typically
// cosine in [-1, 1].
type Scorer interface {
	Score(ctx context.Context, content Content, prompts []string) ([]float32, error)
}

// PromptIndex is the flattened prompt set for one modality, built once per
// process. Scoring a sample costs one content embedding against the
// precomputed prompt list, never a re-embedding of the prompts.
type PromptIndex struct {
	modality trigger.Modality
	prompts  []string
	category []string // parallel to prompts
}

// NewPromptIndex collects the prompts of every registered category for the
// given modality. Categories with no prompts for the modality contribute
// nothing and will be absent from score sets.
func NewPromptIndex(reg *trigger.Registry, m trigger.Modality) *PromptIndex {
	idx := &PromptIndex{modality: m}
	for _, cat := range reg.All() {
		for _, p := range cat.PromptsFor(m) {
			idx.prompts = append(idx.prompts, p)
			idx.category = append(idx.category, cat.Name)
		}
	}
	return idx
}

// Modality returns the modality this index was built for.
func (idx *PromptIndex) Modality() trigger.Modality { return idx.modality }

// Prompts returns the flattened prompt list in index order.
func (idx *PromptIndex) Prompts() []string {
	out := make([]string, len(idx.prompts))
	copy(out, idx.prompts)
	return out
}

// Len returns the number of indexed prompts.
func (idx *PromptIndex) Len() int { return len(idx.prompts) }

// ScoreSet maps category name to its best similarity score for one sample.
type ScoreSet map[string]float32

// Aggregate folds per-prompt scores into one score per category by taking the
// maximum over that category's prompts. Max, never average: prompts are
// alternative phrasings of one concept, so a single strong match must win.
func (idx *PromptIndex) Aggregate(scores []float32) (ScoreSet, error) {
	if len(scores) != len(idx.prompts) {
		return nil, fmt.Errorf("got %d scores for %d prompts", len(scores), len(idx.prompts))
	}

	set := make(ScoreSet)
	for i, s := range scores {
		name := idx.category[i]
		if best, ok := set[name]; !ok || s > best {
			set[name] = s
		}
	}
	return set, nil
}

// ScoreSample runs the scorer over the whole index and aggregates the result.
func (idx *PromptIndex) ScoreSample(ctx context.Context, scorer Scorer, content Content) (ScoreSet, error) {
	if scorer == nil {
		return nil, ErrScorerUnavailable
	}
	if idx.Len() == 0 {
		return ScoreSet{}, nil
	}

	scores, err := scorer.Score(ctx, content, idx.prompts)
	if err != nil {
		return nil, fmt.Errorf("broad stage: %w", err)
	}
	return idx.Aggregate(scores)
}

// Thresholds resolves the effective detection threshold per category.
// Resolution order: run-level override, category default, global default.
// Overrides exist to tune safety-critical categories per run and must never
// be shadowed by category defaults.
type Thresholds struct {
	Overrides map[string]float32
	Default   float32
}

// For returns the effective threshold for a category.
func (t Thresholds) For(cat *trigger.TriggerCategory) float32 {
	if v, ok := t.Overrides[cat.Name]; ok {
		return v
	}
	if cat.DefaultThreshold > 0 {
		return cat.DefaultThreshold
	}
	return t.Default
}

// Suspicious returns the categories whose score meets or exceeds their
// effective threshold, in registry order.
func Suspicious(reg *trigger.Registry, set ScoreSet, th Thresholds) []string {
	out := []string{}
	for _, cat := range reg.All() {
		score, ok := set[cat.Name]
		if !ok {
			continue
		}
		if score >= th.For(cat) {
			out = append(out, cat.Name)
		}
	}
	return out
}
