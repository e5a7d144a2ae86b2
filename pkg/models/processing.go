package models

import "github.com/Ramsey-B/enygma/pkg/alphabet"

// ProcessingContext records what one module did to one symbol.
//
// Fields:
//   - CharacterSet: The character set active for the run
//   - Position: Position of the symbol in the message
//   - ModuleID: ID of the module that handled the symbol
//   - ModuleKind: Declared kind of that module
//   - InputSymbol: Symbol fed into the module
//   - OutputSymbol: Symbol the module produced, empty when it produced nothing
//     (a transposition block still filling)
type ProcessingContext struct {
	CharacterSet alphabet.CharacterSet `json:"characterSet"`
	Position     int                   `json:"position"`
	ModuleID     string                `json:"moduleId"`
	ModuleKind   ModuleKind            `json:"moduleType"`
	InputSymbol  string                `json:"inputChar"`
	OutputSymbol string                `json:"outputChar"`
}

// Produced reports whether the module emitted a symbol.
func (p ProcessingContext) Produced() bool {
	return p.OutputSymbol != ""
}
