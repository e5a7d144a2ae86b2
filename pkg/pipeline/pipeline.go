// Package pipeline threads symbols through a module chain.
//
// # Overview
//
// A Pipeline owns a processors.Registry and therefore all rotor and
// transposition runtime state. Two entry points are offered:
//
//   - ProcessCharacter: one symbol through the chain using whatever state the
//     registry currently holds. Useful for keyboard-style input.
//   - ProcessMessage: a whole text, which is Begin, one Process per symbol and
//     Finish on a Session.
//
// # Per-Symbol Flow
//
// For each enabled module, in chain order:
//
//  1. Resolve the processor for the module kind. Unknown kinds are logged and
//     skipped without a history record.
//  2. If the payload variant does not match the declared kind the module is a
//     pass-through.
//  3. Stateful processors (rotors) advance before the transform, but only for
//     symbols in the alphabet.
//  4. Transform and append a models.ProcessingContext to the history.
//
// When a module produces nothing (a transposition block still filling) the symbol
// stops there. Its history ends with a record whose OutputSymbol is empty.
//
// # Sessions
//
// Begin resets every processor and returns a Session bound to one chain and one
// alphabet. Finish drains held symbols from every transposition module, in chain
// order, through the modules after it, at positions following the last input
// symbol. Flush records carry an empty InputSymbol. A Session is invalidated by
// Finish or by a later Begin on the same Pipeline.
package pipeline

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/processors"
)

// CharacterResult is the outcome of processing one symbol.
//
// Fields:
//   - Result: The output symbol, or "" when the chain produced nothing
//   - History: One record per module that handled the symbol
type CharacterResult struct {
	Result  string                     `json:"result"`
	History []models.ProcessingContext `json:"history"`
}

// MessageResult is the outcome of processing a whole text.
type MessageResult struct {
	Output  string                     `json:"output"`
	History []models.ProcessingContext `json:"history"`
}

type Pipeline struct {
	logger     ectologger.Logger
	registry   *processors.Registry
	generation uint64
}

func NewPipeline(logger ectologger.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		registry: processors.NewRegistry(),
	}
}

// ProcessCharacter runs one symbol through chain without resetting state.
func (p *Pipeline) ProcessCharacter(ctx context.Context, symbol rune, position int, chain []models.ModuleConfig, set alphabet.CharacterSet) CharacterResult {
	a := alphabet.Resolve(set)
	out, produced, history := p.thread(ctx, symbol, position, chain, 0, a)

	result := CharacterResult{History: history}
	if produced {
		result.Result = string(out)
	}
	return result
}

// ProcessMessage resets all state and processes text as a single message.
func (p *Pipeline) ProcessMessage(ctx context.Context, text string, chain []models.ModuleConfig, set alphabet.CharacterSet) MessageResult {
	session := p.Begin(ctx, chain, set)
	for _, r := range text {
		// the session was just created, so Process cannot fail
		_, _ = session.Process(r)
	}
	result, _ := session.Finish()
	return result
}

// Reset clears all rotor and transposition state.
func (p *Pipeline) Reset() {
	p.registry.Reset()
}

// ResetModule clears the state held for one module, for example after its
// configuration changed.
func (p *Pipeline) ResetModule(moduleID string) {
	p.registry.ResetModule(moduleID)
}

// RotorPositions returns the current positions of a rotor module.
func (p *Pipeline) RotorPositions(moduleID string) []int {
	return p.registry.Rotors().Positions(moduleID)
}

// AdvanceRotors steps a rotor module without processing a symbol.
func (p *Pipeline) AdvanceRotors(module models.ModuleConfig, set alphabet.CharacterSet) bool {
	if module.Kind != models.KindRotors || !module.Matches() {
		return false
	}
	return p.registry.Rotors().AdvanceState(module, alphabet.Resolve(set))
}

// thread runs symbol through chain[from:].
func (p *Pipeline) thread(ctx context.Context, symbol rune, position int, chain []models.ModuleConfig, from int, a *alphabet.Alphabet) (rune, bool, []models.ProcessingContext) {
	history := []models.ProcessingContext{}
	current := symbol

	for i := from; i < len(chain); i++ {
		module := chain[i]
		if !module.Enabled {
			continue
		}

		processor, ok := p.registry.Get(module.Kind)
		if !ok {
			p.logger.WithContext(ctx).WithFields(map[string]any{
				"module_id":   module.ID,
				"module_type": module.Kind,
			}).Warn("skipping module with unknown type")
			continue
		}

		out, produced := current, true
		if module.Matches() {
			if stepper, ok := processor.(processors.Stepper); ok && a.Contains(alphabet.Fold(current)) {
				stepper.AdvanceState(module, a)
			}
			out, produced = processor.Transform(current, position, module, a)
		} else {
			p.logger.WithContext(ctx).WithFields(map[string]any{
				"module_id":   module.ID,
				"module_type": module.Kind,
			}).Debug("module configuration does not match its type, passing through")
		}

		record := models.ProcessingContext{
			CharacterSet: a.Name(),
			Position:     position,
			ModuleID:     module.ID,
			ModuleKind:   module.Kind,
			InputSymbol:  string(current),
		}
		if produced {
			record.OutputSymbol = string(out)
		}
		history = append(history, record)

		if !produced {
			return 0, false, history
		}
		current = out
	}

	return current, true, history
}

// ModuleHistory returns the records produced by one module.
func ModuleHistory(history []models.ProcessingContext, moduleID string) []models.ProcessingContext {
	return ectolinq.Filter(history, func(record models.ProcessingContext) bool {
		return record.ModuleID == moduleID
	})
}

// PositionHistory returns the records for one message position.
func PositionHistory(history []models.ProcessingContext, position int) []models.ProcessingContext {
	return ectolinq.Filter(history, func(record models.ProcessingContext) bool {
		return record.Position == position
	})
}
