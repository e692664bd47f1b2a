// Package assign implements weighted variant selection for experiments.
//
// The random draw is an explicit parameter rather than a hidden RNG so that
// selection is reproducible: given the same draw and the same ordered
// options, ChooseVariant always returns the same variant.
package assign

import (
	"errors"
	"math/rand/v2"

	"github.com/TimurManjosov/gopaywall/internal/rules"
)

// ErrNoVariantsFound is returned when a reachable rule has an empty variant
// set. This is a campaign configuration bug, not an expected outcome.
var ErrNoVariantsFound = errors.New("no variants found")

// ErrInvalidState is returned when the distribution walk fails to select an
// option. Unreachable for a well-formed distribution.
var ErrInvalidState = errors.New("variant distribution walk failed to select")

// Draw returns a uniform random integer in [0, n). n is always positive.
type Draw func(n int) int

// DefaultDraw is the production draw source.
func DefaultDraw(n int) int { return rand.IntN(n) }

// ChooseVariant selects one variant from the weighted options.
//
// A single option is returned directly without consuming a draw. When every
// weight is zero the first option is returned; a misconfigured dashboard
// must still produce a pick, and doing so deterministically keeps the
// outcome stable across evaluations. Otherwise a draw in [0, totalWeight)
// selects the first option whose cumulative weight exceeds it, in
// declaration order.
func ChooseVariant(options []rules.VariantOption, draw Draw) (rules.Variant, error) {
	if len(options) == 0 {
		return rules.Variant{}, ErrNoVariantsFound
	}
	if len(options) == 1 {
		return options[0].ToVariant(), nil
	}

	totalWeight := 0
	for _, option := range options {
		totalWeight += option.Weight
	}
	if totalWeight == 0 {
		return options[0].ToVariant(), nil
	}

	threshold := draw(totalWeight)
	cumulative := 0
	for _, option := range options {
		cumulative += option.Weight
		if threshold < cumulative {
			return option.ToVariant(), nil
		}
	}
	return rules.Variant{}, ErrInvalidState
}
