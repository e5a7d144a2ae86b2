package processors

import (
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// PlugboardProcessor swaps connected symbol pairs. A pair connected in only one
// direction still swaps both ways, so the transform is always an involution.
type PlugboardProcessor struct{}

func NewPlugboardProcessor() *PlugboardProcessor {
	return &PlugboardProcessor{}
}

func (p *PlugboardProcessor) Kind() models.ModuleKind {
	return models.KindPlugboard
}

func (p *PlugboardProcessor) Transform(symbol rune, _ int, module models.ModuleConfig, a *alphabet.Alphabet) (rune, bool) {
	payload, ok := module.Payload.(models.PlugboardPayload)
	if !ok {
		return symbol, true
	}
	if _, ok := lookup(symbol, a); !ok {
		return symbol, true
	}

	if out, ok := swap(alphabet.Fold(symbol), payload.Mapping, a); ok {
		return alphabet.Recase(symbol, out), true
	}
	return symbol, true
}

// swap looks folded up in mapping, then falls back to the reverse direction.
// Reverse entries are scanned in key order so duplicates resolve the same way
// every time.
func swap(folded rune, mapping map[string]string, a *alphabet.Alphabet) (rune, bool) {
	if to, ok := mappedSymbol(mapping[string(folded)]); ok && a.Contains(to) {
		return to, true
	}

	for _, key := range models.SortedKeys(mapping) {
		to, ok := mappedSymbol(mapping[key])
		if !ok || to != folded {
			continue
		}
		from, ok := mappedSymbol(key)
		if ok && a.Contains(from) {
			return from, true
		}
	}

	return 0, false
}
