package pipeline

import (
	"strings"

	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/processors"
)

// ClassicCipher enciphers one symbol the way a single Enigma keypress does:
// plugboard, rotors left to right, reflector B, rotors right to left, plugboard.
// Ring settings are fixed offsets and nothing steps, so the function is pure and
// self-reciprocal: ClassicCipher(ClassicCipher(x)) == x.
//
// It always works on A-Z. Other symbols, and any call with no rotors, return
// the input unchanged.
func ClassicCipher(symbol rune, rotors []models.RotorSetting, plugboard map[string]string) rune {
	if len(rotors) == 0 {
		return symbol
	}

	a := alphabet.Resolve(alphabet.Uppercase)
	if !a.Contains(alphabet.Fold(symbol)) {
		return symbol
	}

	board := processors.NewPlugboardProcessor()
	boardModule := models.NewModule("classic-plugboard", models.PlugboardPayload{Mapping: plugboard})

	current, _ := board.Transform(alphabet.Fold(symbol), 0, boardModule, a)

	for _, r := range rotors {
		current = rotorPass(current, r, false, a)
	}

	idx, _ := a.IndexOf(current)
	current = rune(processors.ReflectorB[idx])

	for i := len(rotors) - 1; i >= 0; i-- {
		current = rotorPass(current, rotors[i], true, a)
	}

	current, _ = board.Transform(current, 0, boardModule, a)
	return alphabet.Recase(symbol, current)
}

// ClassicMessage applies ClassicCipher to every symbol of text.
func ClassicMessage(text string, rotors []models.RotorSetting, plugboard map[string]string) string {
	var sb strings.Builder
	for _, r := range text {
		sb.WriteRune(ClassicCipher(r, rotors, plugboard))
	}
	return sb.String()
}

// rotorPass maps an upper-case letter through one rotor at a fixed offset, or
// through its inverse when reverse is set. Unknown rotor types are skipped.
func rotorPass(symbol rune, setting models.RotorSetting, reverse bool, a *alphabet.Alphabet) rune {
	wiring, ok := processors.RotorWiring(setting.Rotor)
	if !ok {
		return symbol
	}

	n := a.Len()
	offset := ((setting.RingSetting % n) + n) % n
	idx, _ := a.IndexOf(symbol)
	idx = (idx + offset) % n

	if reverse {
		idx = strings.IndexRune(wiring, a.SymbolAt(idx))
	} else {
		idx, _ = a.IndexOf(rune(wiring[idx]))
	}

	return a.SymbolAt(idx - offset)
}
