package processors

import (
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// VigenereProcessor shifts the symbol at position p by the alphabet index of
// keyword[p mod len(keyword)]. Keyword symbols outside the alphabet shift by 0.
type VigenereProcessor struct{}

func NewVigenereProcessor() *VigenereProcessor {
	return &VigenereProcessor{}
}

func (p *VigenereProcessor) Kind() models.ModuleKind {
	return models.KindVigenere
}

func (p *VigenereProcessor) Transform(symbol rune, position int, module models.ModuleConfig, a *alphabet.Alphabet) (rune, bool) {
	payload, ok := module.Payload.(models.VigenerePayload)
	if !ok {
		return symbol, true
	}
	idx, ok := lookup(symbol, a)
	if !ok {
		return symbol, true
	}

	keyword := []rune(payload.Keyword)
	if len(keyword) == 0 {
		return symbol, true
	}

	k := len(keyword)
	shift, ok := lookup(keyword[((position%k)+k)%k], a)
	if !ok {
		shift = 0
	}

	return alphabet.Recase(symbol, a.SymbolAt(idx+shift)), true
}
