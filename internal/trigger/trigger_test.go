package trigger

import (
	"errors"
	"testing"
)

func TestDefaultRegistry_LookupAndOrder(t *testing.T) {
	r := DefaultRegistry()

	c, err := r.Lookup("Violence")
	if err != nil {
		t.Fatalf("expected Violence in default registry, got: %v", err)
	}
	if c.Column != "Violence_timestamps" {
		t.Errorf("expected column Violence_timestamps, got %q", c.Column)
	}
	if len(c.VisualPrompts) == 0 {
		t.Errorf("expected visual prompts for Violence")
	}

	if _, err := r.Lookup("NoSuchCategory"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}

	all := r.All()
	names := r.Names()
	if len(all) != len(names) {
		t.Fatalf("All and Names disagree: %d vs %d", len(all), len(names))
	}
	for i, c := range all {
		if c.Name != names[i] {
			t.Errorf("order mismatch at %d: %q vs %q", i, c.Name, names[i])
		}
	}
}

func TestDefaultRegistry_SafetyCritical(t *testing.T) {
	r := DefaultRegistry()

	critical := map[string]bool{}
	for _, name := range r.SafetyCritical() {
		critical[name] = true
	}

	for _, want := range []string{"Self-Harm/Suicide", "Sexual_Assault/Rape", "Spitting/Vomiting"} {
		if !critical[want] {
			t.Errorf("expected %q to be safety-critical", want)
		}
	}
	if critical["Alcohol"] {
		t.Errorf("Alcohol should not be safety-critical")
	}
}

func TestNewRegistry_RejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		cat  TriggerCategory
	}{
		{
			name: "missing visual prompts",
			cat: TriggerCategory{
				Name: "x", Column: "x_timestamps",
				Strategy: StrategyBroad, DefaultThreshold: 0.3,
			},
		},
		{
			name: "fusion without audio prompts",
			cat: TriggerCategory{
				Name: "x", Column: "x_timestamps",
				Strategy:         StrategyFusion,
				VisualPrompts:    []string{"a"},
				DefaultThreshold: 0.3,
			},
		},
		{
			name: "threshold out of range",
			cat: TriggerCategory{
				Name: "x", Column: "x_timestamps",
				Strategy:         StrategyBroad,
				VisualPrompts:    []string{"a"},
				DefaultThreshold: 1.5,
			},
		},
		{
			name: "escalating strategy without confirm template",
			cat: TriggerCategory{
				Name: "x", Column: "x_timestamps",
				Strategy:         StrategyBroadConfirm,
				VisualPrompts:    []string{"a"},
				DefaultThreshold: 0.3,
				ConfirmTemplate:  "  ",
			},
		},
		{
			name: "unknown strategy",
			cat: TriggerCategory{
				Name: "x", Column: "x_timestamps",
				Strategy:         Strategy("yolo"),
				VisualPrompts:    []string{"a"},
				DefaultThreshold: 0.3,
			},
		},
	}

	for _, c := range cases {
		if _, err := NewRegistry([]TriggerCategory{c.cat}); err == nil {
			t.Errorf("%s: expected error, got nil", c.name)
		}
	}
}

func TestNewRegistry_RejectsDuplicateNames(t *testing.T) {
	cat := TriggerCategory{
		Name: "x", Column: "x_timestamps",
		Strategy:         StrategyBroad,
		VisualPrompts:    []string{"a"},
		DefaultThreshold: 0.3,
	}
	if _, err := NewRegistry([]TriggerCategory{cat, cat}); err == nil {
		t.Fatalf("expected duplicate name error, got nil")
	}
}

func TestPromptsFor(t *testing.T) {
	c := &TriggerCategory{
		VisualPrompts: []string{"v1", "v2"},
		AudioPrompts:  []string{"a1"},
	}
	if got := c.PromptsFor(ModalityVisual); len(got) != 2 {
		t.Errorf("expected 2 visual prompts, got %v", got)
	}
	if got := c.PromptsFor(ModalityAudio); len(got) != 1 || got[0] != "a1" {
		t.Errorf("expected audio prompts [a1], got %v", got)
	}
}
