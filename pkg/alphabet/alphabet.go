// Package alphabet resolves named character sets into ordered symbol tables.
//
// # Overview
//
// Every transform in the engine works on symbol indices rather than on runes.
// An Alphabet maps each symbol of a named CharacterSet to its position and back,
// wrapping out-of-range indices so that modular arithmetic never has to be
// repeated at call sites.
//
// Lookups are case-insensitive for letters: callers fold a rune with Fold before
// calling IndexOf and restore the original case of the input with Recase.
//
// # Character Sets
//
//   - uppercase: A-Z (26 symbols)
//   - full: A-Z, a-z, 0-9 (62 symbols)
//   - extended: full plus !@#$%^&*()_+-=[]{}|;:,.<>?/ (89 symbols)
//
// Unknown names resolve to uppercase.
package alphabet

import (
	"unicode"
)

// CharacterSet names one of the supported symbol tables.
type CharacterSet string

const (
	Uppercase CharacterSet = "uppercase"
	Full      CharacterSet = "full"
	Extended  CharacterSet = "extended"
)

const (
	uppercaseSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	fullSymbols      = uppercaseSymbols + "abcdefghijklmnopqrstuvwxyz0123456789"
	extendedSymbols  = fullSymbols + "!@#$%^&*()_+-=[]{}|;:,.<>?/"
)

// Alphabet is an immutable ordered table of symbols.
type Alphabet struct {
	name    CharacterSet
	symbols []rune
	index   map[rune]int
}

var resolved = map[CharacterSet]*Alphabet{
	Uppercase: build(Uppercase, uppercaseSymbols),
	Full:      build(Full, fullSymbols),
	Extended:  build(Extended, extendedSymbols),
}

func build(name CharacterSet, symbols string) *Alphabet {
	a := &Alphabet{
		name:    name,
		symbols: []rune(symbols),
		index:   make(map[rune]int, len(symbols)),
	}
	for i, r := range a.symbols {
		a.index[r] = i
	}
	return a
}

// Resolve returns the alphabet for the given set. Unknown sets fall back to Uppercase.
func Resolve(set CharacterSet) *Alphabet {
	if a, ok := resolved[set]; ok {
		return a
	}
	return resolved[Uppercase]
}

// IsKnown reports whether set names a supported character set.
func IsKnown(set CharacterSet) bool {
	_, ok := resolved[set]
	return ok
}

// Sets lists the supported character sets in ascending size.
func Sets() []CharacterSet {
	return []CharacterSet{Uppercase, Full, Extended}
}

func (a *Alphabet) Name() CharacterSet {
	return a.name
}

func (a *Alphabet) Len() int {
	return len(a.symbols)
}

// IndexOf returns the position of r, or false when r is not part of the alphabet.
func (a *Alphabet) IndexOf(r rune) (int, bool) {
	i, ok := a.index[r]
	return i, ok
}

func (a *Alphabet) Contains(r rune) bool {
	_, ok := a.index[r]
	return ok
}

// SymbolAt returns the symbol at i, wrapping negative and overflowing indices.
func (a *Alphabet) SymbolAt(i int) rune {
	n := len(a.symbols)
	return a.symbols[((i%n)+n)%n]
}

// Symbols returns a copy of the ordered symbol table.
func (a *Alphabet) Symbols() []rune {
	out := make([]rune, len(a.symbols))
	copy(out, a.symbols)
	return out
}

func (a *Alphabet) String() string {
	return string(a.symbols)
}

// Fold normalizes r for lookup.
func Fold(r rune) rune {
	return unicode.ToUpper(r)
}

// Recase applies the case of input to result. Caseless inputs leave result untouched.
func Recase(input, result rune) rune {
	switch {
	case unicode.IsLower(input):
		return unicode.ToLower(result)
	case unicode.IsUpper(input):
		return unicode.ToUpper(result)
	default:
		return result
	}
}

// Lookup folds r and returns its index.
func (a *Alphabet) Lookup(r rune) (int, bool) {
	return a.IndexOf(Fold(r))
}
