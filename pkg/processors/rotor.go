package processors

import (
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// Historical wirings of rotors I-V. They are 26-letter tables whatever the
// active alphabet; larger alphabets index them modulo 26, which leaves symbols
// past Z unable to map to anything but A-Z. This is an approximation.
var rotorWirings = map[models.RotorType]string{
	models.RotorI:   "EKMFLGDQVZNTOWYHXUSPAIBRCJ",
	models.RotorII:  "AJDKSIRUXBLHWTMCQGZNPYFVOE",
	models.RotorIII: "BDFHJLCPRTXVZNYEIWGAKMUSQO",
	models.RotorIV:  "ESOVPZJAYQUIRHXLNFTGKDCMWB",
	models.RotorV:   "VZBRGITYUPSDNHLXAWMJQOFECK",
}

// Historical turnover positions. Stepping does not use them: a rotor carries
// into its left neighbour when it passes the last alphabet position.
var rotorNotches = map[models.RotorType]int{
	models.RotorI:   16,
	models.RotorII:  4,
	models.RotorIII: 21,
	models.RotorIV:  9,
	models.RotorV:   25,
}

// RotorWiring returns the wiring table of a rotor type.
func RotorWiring(rotor models.RotorType) (string, bool) {
	w, ok := rotorWirings[rotor]
	return w, ok
}

// RotorNotch returns the historical notch position of a rotor type.
func RotorNotch(rotor models.RotorType) (int, bool) {
	n, ok := rotorNotches[rotor]
	return n, ok
}

// RotorProcessor substitutes through a stack of rotors and steps them like an
// odometer.
//
// Positions are created lazily from the ring settings the first time a module is
// stepped and are rebuilt when the module's slot count changes. Ring settings
// only seed the initial positions.
type RotorProcessor struct {
	positions map[string][]int
}

func NewRotorProcessor() *RotorProcessor {
	return &RotorProcessor{positions: map[string][]int{}}
}

func (p *RotorProcessor) Kind() models.ModuleKind {
	return models.KindRotors
}

// AdvanceState steps the module's rotors once. The rightmost rotor always
// steps; each other rotor steps only when its right neighbour was at the last
// position before stepping. It reports whether any position changed.
func (p *RotorProcessor) AdvanceState(module models.ModuleConfig, a *alphabet.Alphabet) bool {
	payload, ok := module.Payload.(models.RotorSetPayload)
	if !ok || len(payload.RotorSettings) == 0 {
		return false
	}

	n := a.Len()
	positions := p.state(module.ID, payload.RotorSettings, n)

	carry := true
	for i := len(positions) - 1; i >= 0 && carry; i-- {
		current := positions[i] % n
		carry = current == n-1
		positions[i] = (current + 1) % n
	}

	return true
}

// Transform passes symbol through each rotor, fastest (rightmost) first.
func (p *RotorProcessor) Transform(symbol rune, _ int, module models.ModuleConfig, a *alphabet.Alphabet) (rune, bool) {
	payload, ok := module.Payload.(models.RotorSetPayload)
	if !ok || len(payload.RotorSettings) == 0 {
		return symbol, true
	}

	idx, ok := lookup(symbol, a)
	if !ok {
		return symbol, true
	}

	n := a.Len()
	positions := p.current(module.ID, payload.RotorSettings, n)

	for i := len(payload.RotorSettings) - 1; i >= 0; i-- {
		wiring, ok := rotorWirings[payload.RotorSettings[i].Rotor]
		if !ok {
			continue
		}
		pos := positions[i] % n
		wiringIdx := (idx + pos) % n
		wired := rune(wiring[wiringIdx%len(wiring)])
		wiredIdx, ok := a.IndexOf(wired)
		if !ok {
			continue
		}
		idx = (wiredIdx - pos + n) % n
	}

	return alphabet.Recase(symbol, a.SymbolAt(idx)), true
}

// Positions returns a copy of the module's rotor positions, or nil if the module
// has not been stepped since the last reset.
func (p *RotorProcessor) Positions(moduleID string) []int {
	positions, ok := p.positions[moduleID]
	if !ok {
		return nil
	}
	out := make([]int, len(positions))
	copy(out, positions)
	return out
}

func (p *RotorProcessor) Reset() {
	p.positions = map[string][]int{}
}

func (p *RotorProcessor) ResetModule(moduleID string) {
	delete(p.positions, moduleID)
}

// state returns the stored positions for a module, creating them if needed.
func (p *RotorProcessor) state(moduleID string, settings []models.RotorSetting, n int) []int {
	positions, ok := p.positions[moduleID]
	if !ok || len(positions) != len(settings) {
		positions = initialPositions(settings, n)
		p.positions[moduleID] = positions
	}
	return positions
}

// current returns the stored positions without creating state.
func (p *RotorProcessor) current(moduleID string, settings []models.RotorSetting, n int) []int {
	positions, ok := p.positions[moduleID]
	if !ok || len(positions) != len(settings) {
		return initialPositions(settings, n)
	}
	return positions
}

func initialPositions(settings []models.RotorSetting, n int) []int {
	positions := make([]int, len(settings))
	for i, s := range settings {
		positions[i] = ((s.RingSetting % n) + n) % n
	}
	return positions
}
