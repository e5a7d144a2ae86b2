package chain

import (
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/processors"
)

// Normalize repairs a module so that it passes Validate, keeping as much of the
// configuration as possible. It is used for chains restored from storage, which
// must never be rejected wholesale.
//
//   - missing or mismatched payloads become the kind's default
//   - ring settings wrap into [0, n); unknown rotor types become the first unused type
//   - mapping symbols are folded and invalid or conflicting entries dropped;
//     plugboard pairings are made symmetric, custom reflector wirings are not
//   - an invalid transposition pattern becomes the identity of the same length
//   - an empty or unusable keyword becomes "A", which shifts by nothing
//
// Modules of unknown kind are returned unchanged.
func Normalize(module models.ModuleConfig, a *alphabet.Alphabet) models.ModuleConfig {
	out := module.Clone()
	if !out.Kind.IsKnown() {
		return out
	}

	if !out.Matches() {
		out.Payload, _ = DefaultPayload(out.Kind)
		return out
	}

	switch p := out.Payload.(type) {
	case models.RotorSetPayload:
		out.Payload = normalizeRotors(p, a)
	case models.PlugboardPayload:
		out.Payload = models.PlugboardPayload{Mapping: normalizePairs(p.Mapping, a)}
	case models.ReflectorPayload:
		if p.ReflectorType != models.ReflectorCustom {
			out.Payload = models.ReflectorPayload{ReflectorType: models.ReflectorStandard}
		} else {
			out.Payload = models.ReflectorPayload{ReflectorType: models.ReflectorCustom, CustomMapping: normalizeWiring(p.CustomMapping, a)}
		}
	case models.SubstitutionPayload:
		out.Payload = models.SubstitutionPayload{Mapping: normalizeSubstitution(p.Mapping, a)}
	case models.VigenerePayload:
		keyword := strings.Map(func(r rune) rune {
			if _, ok := a.Lookup(r); !ok {
				return -1
			}
			return r
		}, p.Keyword)
		if keyword == "" {
			keyword = "A"
		}
		out.Payload = models.VigenerePayload{Keyword: keyword}
	case models.TranspositionPayload:
		if !processors.IsPermutation(p.Pattern) {
			out.Payload = models.TranspositionPayload{Pattern: identityPattern(len(p.Pattern))}
		}
	}

	return out
}

// NormalizeChain normalizes every module of a chain.
func NormalizeChain(chain []models.ModuleConfig, a *alphabet.Alphabet) []models.ModuleConfig {
	return ectolinq.Map(chain, func(m models.ModuleConfig) models.ModuleConfig {
		return Normalize(m, a)
	})
}

func normalizeRotors(p models.RotorSetPayload, a *alphabet.Alphabet) models.RotorSetPayload {
	if len(p.RotorSettings) == 0 {
		defaults, _ := DefaultPayload(models.KindRotors)
		return defaults.(models.RotorSetPayload)
	}

	n := a.Len()
	settings := make([]models.RotorSetting, len(p.RotorSettings))
	used := []models.RotorType{}
	for i, s := range p.RotorSettings {
		settings[i] = models.RotorSetting{Rotor: s.Rotor, RingSetting: ((s.RingSetting % n) + n) % n}
		if _, ok := processors.RotorWiring(s.Rotor); ok {
			used = append(used, s.Rotor)
		}
	}
	for i, s := range settings {
		if _, ok := processors.RotorWiring(s.Rotor); ok {
			continue
		}
		rotor, ok := firstUnused(used)
		if !ok {
			rotor = models.RotorI
		}
		settings[i].Rotor = rotor
		used = append(used, rotor)
	}
	return models.RotorSetPayload{RotorSettings: settings}
}

// firstUnused returns the first catalog rotor not in used.
func firstUnused(used []models.RotorType) (models.RotorType, bool) {
	for _, t := range models.RotorTypes() {
		if !ectolinq.Contains(used, t) {
			return t, true
		}
	}
	return "", false
}

func normalizePairs(mapping map[string]string, a *alphabet.Alphabet) map[string]string {
	out := map[string]string{}
	for _, key := range models.SortedKeys(mapping) {
		from, to, err := symbolPair(key, mapping[key], a)
		if err != nil || from == to {
			continue
		}
		f, t := string(from), string(to)
		if existing, ok := out[f]; ok && existing != t {
			continue
		}
		if existing, ok := out[t]; ok && existing != f {
			continue
		}
		out[f] = t
		out[t] = f
	}
	return out
}

func normalizeWiring(mapping map[string]string, a *alphabet.Alphabet) map[string]string {
	out := map[string]string{}
	for _, key := range models.SortedKeys(mapping) {
		from, to, err := symbolPair(key, mapping[key], a)
		if err != nil {
			continue
		}
		if _, ok := out[string(from)]; ok {
			continue
		}
		out[string(from)] = string(to)
	}
	return out
}

func normalizeSubstitution(mapping map[string]string, a *alphabet.Alphabet) map[string]string {
	out := map[string]string{}
	targets := map[string]bool{}
	for _, key := range models.SortedKeys(mapping) {
		from, to, err := symbolPair(key, mapping[key], a)
		if err != nil || targets[string(to)] {
			continue
		}
		if _, ok := out[string(from)]; ok {
			continue
		}
		out[string(from)] = string(to)
		targets[string(to)] = true
	}
	return out
}

func identityPattern(n int) []int {
	if n <= 0 {
		n = 1
	}
	pattern := make([]int, n)
	for i := range pattern {
		pattern[i] = i
	}
	return pattern
}
