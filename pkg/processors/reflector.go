package processors

import (
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// ReflectorB is the historical reflector B: a fixed-point-free involution of A-Z.
const ReflectorB = "YRUHQSLDPXNGOKMIEBFZCWVJAT"

// ReflectorProcessor applies the standard reflector or a custom pairing.
//
// The standard table is defined on 26 symbols. Larger alphabets apply it to each
// consecutive block of 26 indices; an index whose partner would fall past the
// end of the alphabet maps to itself. Every block mapping is an involution, so the
// whole transform stays one.
type ReflectorProcessor struct{}

func NewReflectorProcessor() *ReflectorProcessor {
	return &ReflectorProcessor{}
}

func (p *ReflectorProcessor) Kind() models.ModuleKind {
	return models.KindReflector
}

func (p *ReflectorProcessor) Transform(symbol rune, _ int, module models.ModuleConfig, a *alphabet.Alphabet) (rune, bool) {
	payload, ok := module.Payload.(models.ReflectorPayload)
	if !ok {
		return symbol, true
	}
	idx, ok := lookup(symbol, a)
	if !ok {
		return symbol, true
	}

	switch payload.ReflectorType {
	case models.ReflectorCustom:
		if out, ok := swap(alphabet.Fold(symbol), payload.CustomMapping, a); ok {
			return alphabet.Recase(symbol, out), true
		}
		return symbol, true
	default:
		return alphabet.Recase(symbol, a.SymbolAt(reflectStandard(idx, a.Len()))), true
	}
}

func reflectStandard(idx, n int) int {
	width := len(ReflectorB)
	base := idx - idx%width
	target := base + int(ReflectorB[idx%width]-'A')
	if target >= n {
		return idx
	}
	return target
}
