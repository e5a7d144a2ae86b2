package processors

import (
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// TranspositionProcessor reorders symbols in blocks of len(pattern).
//
// Each in-alphabet symbol is appended to the module's filling block. When the
// block is full it is permuted, with output slot k taking block[pattern[k]], and
// queued for draining. Every call then emits the next queued symbol, or nothing
// if the queue is empty. Output therefore lags input by up to len(pattern)-1
// symbols.
//
// At end of message Flush returns the rest of the queue followed by any
// incomplete block in its original order, so no symbol is ever lost.
//
// A pattern that is not a permutation of 0..len-1 disables the module, which
// then passes every symbol through.
type TranspositionProcessor struct {
	blocks map[string]*transpositionState
}

type transpositionState struct {
	size    int
	filling []rune
	queue   []rune
}

func NewTranspositionProcessor() *TranspositionProcessor {
	return &TranspositionProcessor{blocks: map[string]*transpositionState{}}
}

func (p *TranspositionProcessor) Kind() models.ModuleKind {
	return models.KindTransposition
}

func (p *TranspositionProcessor) Transform(symbol rune, _ int, module models.ModuleConfig, a *alphabet.Alphabet) (rune, bool) {
	payload, ok := module.Payload.(models.TranspositionPayload)
	if !ok || !IsPermutation(payload.Pattern) {
		return symbol, true
	}
	if _, ok := lookup(symbol, a); !ok {
		return symbol, true
	}

	st := p.state(module.ID, len(payload.Pattern))
	st.filling = append(st.filling, symbol)
	if len(st.filling) == st.size {
		for _, src := range payload.Pattern {
			st.queue = append(st.queue, st.filling[src])
		}
		st.filling = st.filling[:0]
	}

	if len(st.queue) == 0 {
		return 0, false
	}
	out := st.queue[0]
	st.queue = st.queue[1:]
	return out, true
}

// Flush drains every symbol still held for the module and clears its state.
func (p *TranspositionProcessor) Flush(module models.ModuleConfig) []rune {
	st, ok := p.blocks[module.ID]
	if !ok {
		return nil
	}
	delete(p.blocks, module.ID)

	out := make([]rune, 0, len(st.queue)+len(st.filling))
	out = append(out, st.queue...)
	out = append(out, st.filling...)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Pending reports how many symbols are held for the module.
func (p *TranspositionProcessor) Pending(moduleID string) int {
	st, ok := p.blocks[moduleID]
	if !ok {
		return 0
	}
	return len(st.queue) + len(st.filling)
}

func (p *TranspositionProcessor) Reset() {
	p.blocks = map[string]*transpositionState{}
}

func (p *TranspositionProcessor) ResetModule(moduleID string) {
	delete(p.blocks, moduleID)
}

// state returns the module's buffers. A change of block size discards them.
func (p *TranspositionProcessor) state(moduleID string, size int) *transpositionState {
	st, ok := p.blocks[moduleID]
	if !ok || st.size != size {
		st = &transpositionState{size: size}
		p.blocks[moduleID] = st
	}
	return st
}

// IsPermutation reports whether pattern contains each of 0..len(pattern)-1 once.
func IsPermutation(pattern []int) bool {
	if len(pattern) == 0 {
		return false
	}
	seen := make([]bool, len(pattern))
	for _, v := range pattern {
		if v < 0 || v >= len(pattern) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
