package processors

import (
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// SubstitutionProcessor applies a one-way monoalphabetic mapping. Symbols with no
// entry are left unchanged.
type SubstitutionProcessor struct{}

func NewSubstitutionProcessor() *SubstitutionProcessor {
	return &SubstitutionProcessor{}
}

func (p *SubstitutionProcessor) Kind() models.ModuleKind {
	return models.KindSubstitution
}

func (p *SubstitutionProcessor) Transform(symbol rune, _ int, module models.ModuleConfig, a *alphabet.Alphabet) (rune, bool) {
	payload, ok := module.Payload.(models.SubstitutionPayload)
	if !ok {
		return symbol, true
	}
	if _, ok := lookup(symbol, a); !ok {
		return symbol, true
	}

	to, ok := mappedSymbol(payload.Mapping[string(alphabet.Fold(symbol))])
	if !ok || !a.Contains(to) {
		return symbol, true
	}
	return alphabet.Recase(symbol, to), true
}
