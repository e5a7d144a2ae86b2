package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/processors"
)

// ErrSessionClosed is returned by a Session that was finished or superseded by a
// later Begin.
var ErrSessionClosed = errors.New("pipeline session is closed")

// Session processes one message against a fixed chain and alphabet.
type Session struct {
	ctx        context.Context
	pipeline   *Pipeline
	generation uint64
	chain      []models.ModuleConfig
	alphabet   *alphabet.Alphabet
	position   int
	output     strings.Builder
	history    []models.ProcessingContext
	closed     bool
}

// Begin resets all runtime state and starts a message. The chain is copied, so
// later edits by the caller do not affect the session.
func (p *Pipeline) Begin(ctx context.Context, chain []models.ModuleConfig, set alphabet.CharacterSet) *Session {
	p.registry.Reset()
	p.generation++

	return &Session{
		ctx:        ctx,
		pipeline:   p,
		generation: p.generation,
		chain:      models.CloneChain(chain),
		alphabet:   alphabet.Resolve(set),
		history:    []models.ProcessingContext{},
	}
}

// Process runs the next symbol of the message.
func (s *Session) Process(symbol rune) (CharacterResult, error) {
	if !s.active() {
		return CharacterResult{}, ErrSessionClosed
	}

	out, produced, history := s.pipeline.thread(s.ctx, symbol, s.position, s.chain, 0, s.alphabet)
	s.position++
	s.history = append(s.history, history...)

	result := CharacterResult{History: history}
	if produced {
		result.Result = string(out)
		s.output.WriteRune(out)
	}
	return result, nil
}

// Position is the message position the next symbol will take.
func (s *Session) Position() int {
	return s.position
}

// Finish drains held symbols and closes the session.
func (s *Session) Finish() (MessageResult, error) {
	if !s.active() {
		return MessageResult{}, ErrSessionClosed
	}

	for i, module := range s.chain {
		if !module.Enabled || !module.Matches() {
			continue
		}
		processor, ok := s.pipeline.registry.Get(module.Kind)
		if !ok {
			continue
		}
		flusher, ok := processor.(processors.Flusher)
		if !ok {
			continue
		}

		for _, held := range flusher.Flush(module) {
			s.drain(i, module, held)
		}
	}

	s.closed = true
	return MessageResult{
		Output:  s.output.String(),
		History: s.history,
	}, nil
}

// drain emits a symbol released by the module at chain index i and threads it
// through the rest of the chain.
func (s *Session) drain(i int, module models.ModuleConfig, held rune) {
	position := s.position
	s.position++

	s.history = append(s.history, models.ProcessingContext{
		CharacterSet: s.alphabet.Name(),
		Position:     position,
		ModuleID:     module.ID,
		ModuleKind:   module.Kind,
		OutputSymbol: string(held),
	})

	out, produced, history := s.pipeline.thread(s.ctx, held, position, s.chain, i+1, s.alphabet)
	s.history = append(s.history, history...)
	if produced {
		s.output.WriteRune(out)
	}
}

func (s *Session) active() bool {
	return !s.closed && s.generation == s.pipeline.generation
}
