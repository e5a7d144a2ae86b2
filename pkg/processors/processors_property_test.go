//go:build property
// +build property

// Package processors_test contains property-based tests for the symbol transforms.
package processors_test

import (
	"testing"

	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/processors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestPlugboardInvolution verifies a plugboard undoes itself.
// Property: T(T(x)) == x for any pairing and any symbol
func TestPlugboardInvolution(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	upper := alphabet.Resolve(alphabet.Uppercase)

	properties.Property("plugboard is an involution", prop.ForAll(
		func(pairs []rune, symbol rune) bool {
			mapping := map[string]string{}
			used := map[rune]bool{}
			for i := 0; i+1 < len(pairs); i += 2 {
				a, b := pairs[i], pairs[i+1]
				if a == b || used[a] || used[b] {
					continue
				}
				used[a], used[b] = true, true
				mapping[string(a)] = string(b)
			}

			p := processors.NewPlugboardProcessor()
			module := models.NewModule("p", models.PlugboardPayload{Mapping: mapping})
			once, _ := p.Transform(symbol, 0, module, upper)
			twice, _ := p.Transform(once, 0, module, upper)
			return twice == symbol
		},
		gen.SliceOf(gen.AlphaUpperChar()),
		gen.AlphaUpperChar(),
	))

	properties.TestingRun(t)
}

// TestOutOfAlphabetPassThrough verifies unknown symbols are untouched.
// Property: T(x) == x and no state is created when x is outside the alphabet
func TestOutOfAlphabetPassThrough(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	upper := alphabet.Resolve(alphabet.Uppercase)

	properties.Property("symbols outside the alphabet pass through", prop.ForAll(
		func(symbol rune, shift int) bool {
			if upper.Contains(alphabet.Fold(symbol)) {
				return true
			}

			registry := processors.NewRegistry()
			chain := []models.ModuleConfig{
				models.NewModule("r", models.RotorSetPayload{RotorSettings: []models.RotorSetting{{Rotor: models.RotorIV}}}),
				models.NewModule("s", models.ShifterPayload{Shift: shift}),
				models.NewModule("v", models.VigenerePayload{Keyword: "LEMON"}),
				models.NewModule("t", models.TranspositionPayload{Pattern: []int{1, 0}}),
			}
			for _, m := range chain {
				p, _ := registry.Get(m.Kind)
				out, ok := p.Transform(symbol, 0, m, upper)
				if !ok || out != symbol {
					return false
				}
			}
			return registry.Transposition().Pending("t") == 0 && registry.Rotors().Positions("r") == nil
		},
		gen.RuneRange(' ', '@'),
		gen.IntRange(-100, 100),
	))

	properties.TestingRun(t)
}

// TestOdometerPeriod verifies the fastest rotor returns to its start every n steps.
// Property: after n*k steps the rightmost position equals its ring setting
func TestOdometerPeriod(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("rightmost rotor has period n", prop.ForAll(
		func(ring int, revolutions int, set string) bool {
			a := alphabet.Resolve(alphabet.CharacterSet(set))
			p := processors.NewRotorProcessor()
			module := models.NewModule("r", models.RotorSetPayload{RotorSettings: []models.RotorSetting{
				{Rotor: models.RotorI},
				{Rotor: models.RotorII, RingSetting: ring},
			}})

			for i := 0; i < a.Len()*revolutions; i++ {
				p.AdvanceState(module, a)
			}
			positions := p.Positions("r")
			return positions[1] == ring%a.Len() && positions[0] == revolutions%a.Len()
		},
		gen.IntRange(0, 25),
		gen.IntRange(1, 4),
		gen.OneConstOf("uppercase", "full", "extended"),
	))

	properties.TestingRun(t)
}
