package trigger

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy selects how a category is detected.
type Strategy string

const (
	// StrategyBroad trusts the embedding-similarity stage on its own.
	StrategyBroad Strategy = "broad"
	// StrategyBroadConfirm escalates broad hits to the confirmation model.
	StrategyBroadConfirm Strategy = "broad+confirm"
	// StrategyFusion runs visual and audio pipelines independently and ORs
	// the verdicts per timestamp.
	StrategyFusion Strategy = "fusion"
)

// Modality identifies which kind of content a prompt set describes.
type Modality string

const (
	ModalityVisual Modality = "visual"
	ModalityAudio  Modality = "audio"
)

// ErrNotFound is returned by Registry.Lookup for unknown category names.
var ErrNotFound = errors.New("trigger category not found")

// TriggerCategory is one registry entry. Entries are immutable after the
// registry is built.
type TriggerCategory struct {
	// Name is the unique key used throughout the pipeline.
	Name string
	// Column is the report column the rendered intervals land in.
	Column string

	Strategy Strategy

	VisualPrompts []string
	AudioPrompts  []string

	// DefaultThreshold applies unless a run-level override is configured.
	DefaultThreshold float32

	// SafetyCritical categories get lower thresholds and fail-open handling.
	SafetyCritical bool

	// ConfirmTemplate is the yes/no question posed to the confirmation model.
	ConfirmTemplate string
}

// PromptsFor returns the prompt set for a modality.
func (c *TriggerCategory) PromptsFor(m Modality) []string {
	if m == ModalityAudio {
		return c.AudioPrompts
	}
	return c.VisualPrompts
}

// NeedsConfirmation reports whether broad hits should be escalated.
func (c *TriggerCategory) NeedsConfirmation() bool {
	return c.Strategy == StrategyBroadConfirm || c.Strategy == StrategyFusion
}

// Registry is the closed, process-wide catalogue of trigger categories.
// It is constructed once at startup and read-only afterwards.
type Registry struct {
	order  []string
	byName map[string]*TriggerCategory
}

// NewRegistry validates the given categories and builds a registry preserving
// their order.
func NewRegistry(categories []TriggerCategory) (*Registry, error) {
	r := &Registry{
		order:  make([]string, 0, len(categories)),
		byName: make(map[string]*TriggerCategory, len(categories)),
	}

	for i := range categories {
		c := categories[i]
		if err := validateCategory(&c); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Name, err)
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate category name %q", c.Name)
		}
		r.order = append(r.order, c.Name)
		r.byName[c.Name] = &c
	}

	return r, nil
}

func validateCategory(c *TriggerCategory) error {
	if c.Name == "" {
		return errors.New("name must be set")
	}
	if c.Column == "" {
		return errors.New("column must be set")
	}
	if c.DefaultThreshold <= 0 || c.DefaultThreshold >= 1 {
		return fmt.Errorf("default threshold %v out of range (0,1)", c.DefaultThreshold)
	}

	switch c.Strategy {
	case StrategyBroad, StrategyBroadConfirm:
		if len(c.VisualPrompts) == 0 {
			return errors.New("strategy requires at least one visual prompt")
		}
	case StrategyFusion:
		if len(c.VisualPrompts) == 0 {
			return errors.New("fusion strategy requires at least one visual prompt")
		}
		if len(c.AudioPrompts) == 0 {
			return errors.New("fusion strategy requires at least one audio prompt")
		}
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}

	if c.NeedsConfirmation() && strings.TrimSpace(c.ConfirmTemplate) == "" {
		return errors.New("confirmation strategy requires a confirm template")
	}

	return nil
}

// Lookup returns the category for name, or ErrNotFound.
func (r *Registry) Lookup(name string) (*TriggerCategory, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c, nil
}

// All returns the categories in registration order.
func (r *Registry) All() []*TriggerCategory {
	out := make([]*TriggerCategory, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the category names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Columns returns the report column names in registration order.
func (r *Registry) Columns() []string {
	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Column)
	}
	return out
}

// SafetyCritical returns the names of safety-critical categories.
func (r *Registry) SafetyCritical() []string {
	out := []string{}
	for _, name := range r.order {
		if r.byName[name].SafetyCritical {
			out = append(out, name)
		}
	}
	return out
}
