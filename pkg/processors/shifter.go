package processors

import (
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// ShifterProcessor is a Caesar shift over the active alphabet. Negative shifts
// move backwards.
type ShifterProcessor struct{}

func NewShifterProcessor() *ShifterProcessor {
	return &ShifterProcessor{}
}

func (p *ShifterProcessor) Kind() models.ModuleKind {
	return models.KindShifter
}

func (p *ShifterProcessor) Transform(symbol rune, _ int, module models.ModuleConfig, a *alphabet.Alphabet) (rune, bool) {
	payload, ok := module.Payload.(models.ShifterPayload)
	if !ok {
		return symbol, true
	}
	idx, ok := lookup(symbol, a)
	if !ok {
		return symbol, true
	}

	return alphabet.Recase(symbol, a.SymbolAt(idx+payload.Shift%a.Len())), true
}
