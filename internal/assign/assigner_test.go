package assign

import (
	"errors"
	"testing"

	"github.com/TimurManjosov/gopaywall/internal/rules"
)

func fixedDraw(r int) Draw {
	return func(n int) int {
		if r >= n {
			return n - 1
		}
		return r
	}
}

func twoVariants() []rules.VariantOption {
	return []rules.VariantOption{
		{ID: "v1", Kind: rules.VariantHoldout, Weight: 50},
		{ID: "v2", Kind: rules.VariantTreatment, PaywallID: "p1", Weight: 50},
	}
}

func TestChooseVariant_Empty(t *testing.T) {
	_, err := ChooseVariant(nil, DefaultDraw)
	if !errors.Is(err, ErrNoVariantsFound) {
		t.Fatalf("expected ErrNoVariantsFound, got %v", err)
	}
}

func TestChooseVariant_SingleOption(t *testing.T) {
	options := []rules.VariantOption{{ID: "only", Kind: rules.VariantTreatment, PaywallID: "p1", Weight: 0}}
	drawCalled := false
	variant, err := ChooseVariant(options, func(n int) int {
		drawCalled = true
		return 0
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if variant.ID != "only" {
		t.Errorf("expected variant only, got %q", variant.ID)
	}
	if drawCalled {
		t.Error("single option must not consume a draw")
	}
}

func TestChooseVariant_AllWeightsZero(t *testing.T) {
	options := []rules.VariantOption{
		{ID: "a", Kind: rules.VariantHoldout, Weight: 0},
		{ID: "b", Kind: rules.VariantTreatment, PaywallID: "p1", Weight: 0},
		{ID: "c", Kind: rules.VariantTreatment, PaywallID: "p2", Weight: 0},
	}
	// The fallback is deterministic: always the first option.
	for i := 0; i < 10; i++ {
		variant, err := ChooseVariant(options, DefaultDraw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if variant.ID != "a" {
			t.Fatalf("expected first option a, got %q", variant.ID)
		}
	}
}

func TestChooseVariant_DrawSelectsSecond(t *testing.T) {
	// Total weight 100, draw 60: cumulative v1=50 (60 >= 50), v2=100 (60 < 100).
	variant, err := ChooseVariant(twoVariants(), fixedDraw(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if variant.ID != "v2" {
		t.Errorf("expected v2 for draw 60, got %q", variant.ID)
	}
	if variant.Kind != rules.VariantTreatment || variant.PaywallID != "p1" {
		t.Errorf("unexpected variant: %+v", variant)
	}
}

func TestChooseVariant_DrawSelectsFirst(t *testing.T) {
	variant, err := ChooseVariant(twoVariants(), fixedDraw(49))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if variant.ID != "v1" {
		t.Errorf("expected v1 for draw 49, got %q", variant.ID)
	}
}

func TestChooseVariant_EveryOptionReachable(t *testing.T) {
	options := []rules.VariantOption{
		{ID: "a", Kind: rules.VariantHoldout, Weight: 10},
		{ID: "b", Kind: rules.VariantTreatment, PaywallID: "p1", Weight: 1},
		{ID: "c", Kind: rules.VariantTreatment, PaywallID: "p2", Weight: 89},
	}
	seen := make(map[string]bool)
	for r := 0; r < 100; r++ {
		variant, err := ChooseVariant(options, fixedDraw(r))
		if err != nil {
			t.Fatalf("unexpected error at draw %d: %v", r, err)
		}
		seen[variant.ID] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Errorf("option %q was never selected", id)
		}
	}
}

func TestChooseVariant_Reproducible(t *testing.T) {
	options := twoVariants()
	first, err := ChooseVariant(options, fixedDraw(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := ChooseVariant(options, fixedDraw(42))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.ID != first.ID {
			t.Fatalf("same draw produced different variants: %q vs %q", first.ID, again.ID)
		}
	}
}
