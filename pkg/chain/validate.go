package chain

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/processors"
	"github.com/Ramsey-B/enygma/pkg/utils"
)

// Validate checks a module configuration against the active alphabet.
//
// Rules per kind:
//   - rotors: at least one slot, known rotor types, ring settings in [0, n)
//   - plugboard: single in-alphabet symbols, each symbol in at most one pair;
//     a reflexive entry means unconnected
//   - reflector: standard or custom; a custom wiring only needs in-alphabet
//     symbols with each source wired once, it need not be an involution
//   - substitution: single in-alphabet symbols, no two symbols sharing a target
//   - vigenere: non-empty keyword made of alphabet symbols
//   - transposition: pattern is a permutation of 0..len-1
//
// Repeated rotor types are allowed here.
func Validate(module models.ModuleConfig, a *alphabet.Alphabet) error {
	if strings.TrimSpace(module.ID) == "" {
		return errors.NewChainError(errors.CodeInvalid, "module id is required").AddKind(string(module.Kind))
	}
	if !module.Kind.IsKnown() {
		return errors.NewChainErrorf(errors.CodeInvalid, "unknown module type '%s'", module.Kind).AddModule(module.ID).AddField("type")
	}
	if !module.Matches() {
		return errors.NewChainError(errors.CodeInvalid, "configuration does not match module type").AddModule(module.ID).AddKind(string(module.Kind))
	}

	if err := validatePayload(module.Payload, a); err != nil {
		return errors.WrapChainError(errors.CodeInvalid, err).AddModule(module.ID).AddKind(string(module.Kind))
	}
	return nil
}

func validatePayload(payload models.ModulePayload, a *alphabet.Alphabet) error {
	switch p := payload.(type) {
	case models.RotorSetPayload:
		if _, err := utils.Validate(p); err != nil {
			return errors.WrapChainError(errors.CodeInvalid, err).AddField("rotorSettings")
		}
		for i, s := range p.RotorSettings {
			if s.RingSetting >= a.Len() {
				return errors.NewChainErrorf(errors.CodeInvalid, "ring setting %d of slot %d is outside [0, %d)", s.RingSetting, i, a.Len()).AddField("rotorSettings")
			}
		}
	case models.PlugboardPayload:
		if err := validatePairs(p.Mapping, a); err != nil {
			return err.AddField("mapping")
		}
	case models.ReflectorPayload:
		if _, err := utils.Validate(p); err != nil {
			return errors.WrapChainError(errors.CodeInvalid, err).AddField("reflectorType")
		}
		if p.ReflectorType == models.ReflectorCustom {
			if err := validateWiring(p.CustomMapping, a); err != nil {
				return err.AddField("customMapping")
			}
		}
	case models.ShifterPayload:
	case models.SubstitutionPayload:
		targets := map[rune]string{}
		sources := map[rune]bool{}
		for _, key := range models.SortedKeys(p.Mapping) {
			from, to, err := symbolPair(key, p.Mapping[key], a)
			if err != nil {
				return err.AddField("mapping")
			}
			if sources[from] {
				return errors.NewChainErrorf(errors.CodeInvalid, "'%c' is mapped more than once", from).AddField("mapping")
			}
			sources[from] = true
			if prev, ok := targets[to]; ok {
				return errors.NewChainErrorf(errors.CodeInvalid, "'%s' and '%c' both substitute to '%c'", prev, from, to).AddField("mapping")
			}
			targets[to] = string(from)
		}
	case models.VigenerePayload:
		if strings.TrimSpace(p.Keyword) == "" {
			return errors.NewChainError(errors.CodeInvalid, "keyword must not be empty").AddField("keyword")
		}
		for _, r := range p.Keyword {
			if _, ok := a.Lookup(r); !ok {
				return errors.NewChainErrorf(errors.CodeInvalid, "keyword symbol '%c' is not in the %s alphabet", r, a.Name()).AddField("keyword")
			}
		}
	case models.TranspositionPayload:
		if !processors.IsPermutation(p.Pattern) {
			return errors.NewChainErrorf(errors.CodeInvalid, "pattern %v is not a permutation of its indices", p.Pattern).AddField("pattern")
		}
	default:
		return errors.NewChainError(errors.CodeInvalid, fmt.Sprintf("unsupported configuration %T", p))
	}
	return nil
}

// validatePairs checks a symmetric pairing. One-directional entries are allowed
// but a symbol may not be paired with two different partners. A reflexive
// entry leaves the symbol unconnected, so it may not also be paired.
func validatePairs(mapping map[string]string, a *alphabet.Alphabet) *errors.ChainError {
	partner := map[rune]rune{}
	for _, key := range models.SortedKeys(mapping) {
		from, to, err := symbolPair(key, mapping[key], a)
		if err != nil {
			return err
		}
		for _, pair := range [][2]rune{{from, to}, {to, from}} {
			existing, ok := partner[pair[0]]
			if !ok || existing == pair[1] {
				partner[pair[0]] = pair[1]
				continue
			}
			if existing == pair[0] || pair[1] == pair[0] {
				return errors.NewChainErrorf(errors.CodeInvalid, "'%c' is unconnected but also paired", pair[0])
			}
			return errors.NewChainErrorf(errors.CodeInvalid, "'%c' is paired with both '%c' and '%c'", pair[0], existing, pair[1])
		}
	}
	return nil
}

// validateWiring checks a one-directional wiring such as a custom reflector.
func validateWiring(mapping map[string]string, a *alphabet.Alphabet) *errors.ChainError {
	sources := map[rune]bool{}
	for _, key := range models.SortedKeys(mapping) {
		from, _, err := symbolPair(key, mapping[key], a)
		if err != nil {
			return err
		}
		if sources[from] {
			return errors.NewChainErrorf(errors.CodeInvalid, "'%c' is wired more than once", from)
		}
		sources[from] = true
	}
	return nil
}

func symbolPair(key, value string, a *alphabet.Alphabet) (rune, rune, *errors.ChainError) {
	from, ok := singleSymbol(key, a)
	if !ok {
		return 0, 0, errors.NewChainErrorf(errors.CodeInvalid, "'%s' is not a single %s symbol", key, a.Name())
	}
	to, ok := singleSymbol(value, a)
	if !ok {
		return 0, 0, errors.NewChainErrorf(errors.CodeInvalid, "'%s' is not a single %s symbol", value, a.Name())
	}
	return from, to, nil
}

// singleSymbol folds a one-symbol string and checks it against a.
func singleSymbol(s string, a *alphabet.Alphabet) (rune, bool) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, false
	}
	r := alphabet.Fold(runes[0])
	return r, a.Contains(r)
}

// DuplicateRotors returns the rotor types used by more than one slot.
func DuplicateRotors(settings []models.RotorSetting) []models.RotorType {
	seen := map[models.RotorType]int{}
	duplicates := []models.RotorType{}
	for _, s := range settings {
		seen[s.Rotor]++
		if seen[s.Rotor] == 2 {
			duplicates = append(duplicates, s.Rotor)
		}
	}
	return duplicates
}
