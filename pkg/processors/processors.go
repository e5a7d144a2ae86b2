// Package processors implements the per-module symbol transforms of a cipher chain.
//
// # Overview
//
// Each module kind has one Processor. A processor receives a single symbol, its
// position in the message, the module configuration and the active alphabet, and
// returns the transformed symbol. Processors never fail: a symbol outside the
// alphabet, or a configuration whose payload does not match the processor's kind,
// passes through unchanged.
//
// # Runtime State
//
// Two processors keep state between calls, keyed by module ID:
//
//   - RotorProcessor: rotor positions, advanced by AdvanceState (Stepper)
//   - TranspositionProcessor: the block being filled and the block being drained,
//     emptied by Flush (Flusher)
//
// All state lives on the processor instances owned by a Registry, so independent
// registries never share state. Reset clears everything.
//
// # Case Handling
//
// Lookups fold the input to upper case. The result takes the case of the input
// symbol (see alphabet.Recase).
//
// # Producing Nothing
//
// Transform returns ok=false when it consumed the symbol without producing one.
// Only transposition does this, while a block is still filling.
package processors

import (
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// Processor transforms one symbol for one module kind.
type Processor interface {
	Kind() models.ModuleKind
	Transform(symbol rune, position int, module models.ModuleConfig, a *alphabet.Alphabet) (rune, bool)
}

// Stepper is implemented by processors whose state advances once per in-alphabet
// symbol, before Transform is called for that symbol.
type Stepper interface {
	AdvanceState(module models.ModuleConfig, a *alphabet.Alphabet) bool
}

// Resetter is implemented by processors that keep runtime state.
type Resetter interface {
	Reset()
	ResetModule(moduleID string)
}

// Flusher is implemented by processors that can hold symbols back. Flush returns
// whatever is still held for the module and clears it.
type Flusher interface {
	Flush(module models.ModuleConfig) []rune
}

// Registry owns one processor per module kind.
type Registry struct {
	rotors        *RotorProcessor
	plugboard     *PlugboardProcessor
	reflector     *ReflectorProcessor
	shifter       *ShifterProcessor
	substitution  *SubstitutionProcessor
	vigenere      *VigenereProcessor
	transposition *TranspositionProcessor
}

func NewRegistry() *Registry {
	return &Registry{
		rotors:        NewRotorProcessor(),
		plugboard:     NewPlugboardProcessor(),
		reflector:     NewReflectorProcessor(),
		shifter:       NewShifterProcessor(),
		substitution:  NewSubstitutionProcessor(),
		vigenere:      NewVigenereProcessor(),
		transposition: NewTranspositionProcessor(),
	}
}

// Get returns the processor for kind, or false for an unknown kind.
func (r *Registry) Get(kind models.ModuleKind) (Processor, bool) {
	switch kind {
	case models.KindRotors:
		return r.rotors, true
	case models.KindPlugboard:
		return r.plugboard, true
	case models.KindReflector:
		return r.reflector, true
	case models.KindShifter:
		return r.shifter, true
	case models.KindSubstitution:
		return r.substitution, true
	case models.KindVigenere:
		return r.vigenere, true
	case models.KindTransposition:
		return r.transposition, true
	default:
		return nil, false
	}
}

func (r *Registry) Rotors() *RotorProcessor {
	return r.rotors
}

func (r *Registry) Transposition() *TranspositionProcessor {
	return r.transposition
}

// Reset clears the runtime state of every stateful processor.
func (r *Registry) Reset() {
	for _, p := range r.resetters() {
		p.Reset()
	}
}

// ResetModule clears the runtime state held for a single module.
func (r *Registry) ResetModule(moduleID string) {
	for _, p := range r.resetters() {
		p.ResetModule(moduleID)
	}
}

func (r *Registry) resetters() []Resetter {
	return []Resetter{r.rotors, r.transposition}
}

// lookup folds symbol and returns its index in a.
func lookup(symbol rune, a *alphabet.Alphabet) (int, bool) {
	return a.Lookup(symbol)
}

// mappedSymbol reads a single-symbol mapping entry.
func mappedSymbol(value string) (rune, bool) {
	runes := []rune(value)
	if len(runes) != 1 {
		return 0, false
	}
	return alphabet.Fold(runes[0]), true
}
