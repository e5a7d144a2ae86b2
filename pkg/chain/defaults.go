package chain

import (
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// CustomPreset is the active preset name once the chain no longer matches a
// loaded or saved preset.
const CustomPreset = "Custom"

const (
	PresetEnigma   = "Enigma"
	PresetCaesar   = "Caesar Cipher"
	PresetVigenere = "Vigenère"
)

// DefaultPayload returns the initial settings for a new module of kind.
func DefaultPayload(kind models.ModuleKind) (models.ModulePayload, bool) {
	switch kind {
	case models.KindRotors:
		return models.RotorSetPayload{RotorSettings: []models.RotorSetting{
			{Rotor: models.RotorI},
			{Rotor: models.RotorII},
			{Rotor: models.RotorIII},
		}}, true
	case models.KindPlugboard:
		return models.PlugboardPayload{Mapping: map[string]string{}}, true
	case models.KindReflector:
		return models.ReflectorPayload{ReflectorType: models.ReflectorStandard}, true
	case models.KindShifter:
		return models.ShifterPayload{Shift: 3}, true
	case models.KindSubstitution:
		return models.SubstitutionPayload{Mapping: identityMapping()}, true
	case models.KindVigenere:
		return models.VigenerePayload{Keyword: "KEY"}, true
	case models.KindTransposition:
		return models.TranspositionPayload{Pattern: []int{1, 0, 2}}, true
	default:
		return nil, false
	}
}

func identityMapping() map[string]string {
	mapping := map[string]string{}
	for _, r := range alphabet.Resolve(alphabet.Uppercase).Symbols() {
		mapping[string(r)] = string(r)
	}
	return mapping
}

// BuiltinPresets returns a fresh copy of the presets shipped with the engine.
// Module IDs are fixed so loading the same preset always yields the same chain.
func BuiltinPresets() map[string][]models.ModuleConfig {
	return map[string][]models.ModuleConfig{
		PresetEnigma: {
			models.NewModule("enigma-rotors", models.RotorSetPayload{RotorSettings: []models.RotorSetting{
				{Rotor: models.RotorI},
				{Rotor: models.RotorII},
				{Rotor: models.RotorIII},
			}}),
			models.NewModule("enigma-plugboard", models.PlugboardPayload{Mapping: map[string]string{}}),
			models.NewModule("enigma-reflector", models.ReflectorPayload{ReflectorType: models.ReflectorStandard}),
		},
		PresetCaesar: {
			models.NewModule("caesar", models.ShifterPayload{Shift: 3}),
		},
		PresetVigenere: {
			models.NewModule("vigenere", models.VigenerePayload{Keyword: "KEY"}),
		},
	}
}

// IsBuiltinPreset reports whether name is one of the immutable presets.
func IsBuiltinPreset(name string) bool {
	switch name {
	case PresetEnigma, PresetCaesar, PresetVigenere:
		return true
	default:
		return false
	}
}
