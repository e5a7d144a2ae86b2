package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ModuleKind identifies the cipher stage a module configures.
type ModuleKind string

const (
	KindRotors        ModuleKind = "rotors"
	KindPlugboard     ModuleKind = "plugboard"
	KindReflector     ModuleKind = "reflector"
	KindShifter       ModuleKind = "shifter"
	KindSubstitution  ModuleKind = "substitution"
	KindVigenere      ModuleKind = "vigenere"
	KindTransposition ModuleKind = "transposition"
)

// Kinds lists every supported module kind in display order.
func Kinds() []ModuleKind {
	return []ModuleKind{
		KindRotors,
		KindPlugboard,
		KindReflector,
		KindShifter,
		KindSubstitution,
		KindVigenere,
		KindTransposition,
	}
}

// IsKnown reports whether k is one of the supported module kinds.
func (k ModuleKind) IsKnown() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// RotorType names one of the historical rotor wirings.
type RotorType string

const (
	RotorI   RotorType = "I"
	RotorII  RotorType = "II"
	RotorIII RotorType = "III"
	RotorIV  RotorType = "IV"
	RotorV   RotorType = "V"
)

// RotorTypes lists the rotor types in catalog order.
func RotorTypes() []RotorType {
	return []RotorType{RotorI, RotorII, RotorIII, RotorIV, RotorV}
}

// ReflectorType selects the built-in reflector table or a user supplied one.
type ReflectorType string

const (
	ReflectorStandard ReflectorType = "standard"
	ReflectorCustom   ReflectorType = "custom"
)

// RotorSetting is one slot of a rotor set. Slots are ordered left to right;
// the last slot is the fastest rotor.
type RotorSetting struct {
	Rotor       RotorType `json:"rotor" validate:"required,oneof=I II III IV V"`
	RingSetting int       `json:"ringSetting" validate:"gte=0"`
}

// ModulePayload is the kind-specific part of a module configuration.
// The set of implementations is closed; see the *Payload types in this package.
type ModulePayload interface {
	Kind() ModuleKind
	Clone() ModulePayload
	sealed()
}

// RotorSetPayload configures a stack of rotors.
type RotorSetPayload struct {
	RotorSettings []RotorSetting `json:"rotorSettings" validate:"required,min=1,dive"`
}

// PlugboardPayload swaps symbol pairs. The mapping should be symmetric but the
// plugboard processor also honors reverse entries of a half-populated map.
type PlugboardPayload struct {
	Mapping map[string]string `json:"mapping"`
}

// ReflectorPayload selects the standard reflector or a custom permutation.
type ReflectorPayload struct {
	ReflectorType ReflectorType     `json:"reflectorType" validate:"required,oneof=standard custom"`
	CustomMapping map[string]string `json:"customMapping,omitempty"`
}

// ShifterPayload is a Caesar shift.
type ShifterPayload struct {
	Shift int `json:"shift"`
}

// SubstitutionPayload is a one-directional monoalphabetic substitution.
type SubstitutionPayload struct {
	Mapping map[string]string `json:"mapping"`
}

// VigenerePayload is a repeating-key shift.
type VigenerePayload struct {
	Keyword string `json:"keyword" validate:"required"`
}

// TranspositionPayload reorders symbols in blocks of len(Pattern).
type TranspositionPayload struct {
	Pattern []int `json:"pattern" validate:"required,min=1"`
}

func (RotorSetPayload) Kind() ModuleKind      { return KindRotors }
func (PlugboardPayload) Kind() ModuleKind     { return KindPlugboard }
func (ReflectorPayload) Kind() ModuleKind     { return KindReflector }
func (ShifterPayload) Kind() ModuleKind       { return KindShifter }
func (SubstitutionPayload) Kind() ModuleKind  { return KindSubstitution }
func (VigenerePayload) Kind() ModuleKind      { return KindVigenere }
func (TranspositionPayload) Kind() ModuleKind { return KindTransposition }

func (RotorSetPayload) sealed()      {}
func (PlugboardPayload) sealed()     {}
func (ReflectorPayload) sealed()     {}
func (ShifterPayload) sealed()       {}
func (SubstitutionPayload) sealed()  {}
func (VigenerePayload) sealed()      {}
func (TranspositionPayload) sealed() {}

func (p RotorSetPayload) Clone() ModulePayload {
	settings := make([]RotorSetting, len(p.RotorSettings))
	copy(settings, p.RotorSettings)
	return RotorSetPayload{RotorSettings: settings}
}

func (p PlugboardPayload) Clone() ModulePayload {
	return PlugboardPayload{Mapping: cloneMapping(p.Mapping)}
}

func (p ReflectorPayload) Clone() ModulePayload {
	var custom map[string]string
	if p.CustomMapping != nil {
		custom = cloneMapping(p.CustomMapping)
	}
	return ReflectorPayload{ReflectorType: p.ReflectorType, CustomMapping: custom}
}

func (p ShifterPayload) Clone() ModulePayload { return p }

func (p SubstitutionPayload) Clone() ModulePayload {
	return SubstitutionPayload{Mapping: cloneMapping(p.Mapping)}
}

func (p VigenerePayload) Clone() ModulePayload { return p }

func (p TranspositionPayload) Clone() ModulePayload {
	pattern := make([]int, len(p.Pattern))
	copy(pattern, p.Pattern)
	return TranspositionPayload{Pattern: pattern}
}

func cloneMapping(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ModuleConfig is one stage of a module chain.
//
// Kind is the declared kind and Payload the kind-specific settings. A payload
// whose Kind() differs from the declared kind is a mismatched variant; the
// pipeline treats such a module as a pass-through.
//
// Example JSON:
//
//	{
//	  "id": "caesar",
//	  "type": "shifter",
//	  "enabled": true,
//	  "shift": 3
//	}
type ModuleConfig struct {
	ID      string
	Kind    ModuleKind
	Enabled bool
	Payload ModulePayload
}

// NewModule builds an enabled module whose kind matches payload.
func NewModule(id string, payload ModulePayload) ModuleConfig {
	return ModuleConfig{
		ID:      id,
		Kind:    payload.Kind(),
		Enabled: true,
		Payload: payload,
	}
}

// Clone returns a deep copy of the module.
func (m ModuleConfig) Clone() ModuleConfig {
	out := m
	if m.Payload != nil {
		out.Payload = m.Payload.Clone()
	}
	return out
}

// Matches reports whether the payload variant agrees with the declared kind.
func (m ModuleConfig) Matches() bool {
	return m.Payload != nil && m.Payload.Kind() == m.Kind
}

// CloneChain deep-copies a module chain.
func CloneChain(chain []ModuleConfig) []ModuleConfig {
	out := make([]ModuleConfig, len(chain))
	for i, m := range chain {
		out[i] = m.Clone()
	}
	return out
}

// moduleJSON is the flat wire shape shared by every module kind. Settings
// fields are pointers so only the kind's own fields are written, empty or not.
type moduleJSON struct {
	ID            string             `json:"id"`
	Type          ModuleKind         `json:"type"`
	Enabled       bool               `json:"enabled"`
	RotorSettings *[]RotorSetting    `json:"rotorSettings,omitempty"`
	Mapping       *map[string]string `json:"mapping,omitempty"`
	ReflectorType ReflectorType      `json:"reflectorType,omitempty"`
	CustomMapping map[string]string  `json:"customMapping,omitempty"`
	Shift         *int               `json:"shift,omitempty"`
	Keyword       *string            `json:"keyword,omitempty"`
	Pattern       *[]int             `json:"pattern,omitempty"`
}

func (m ModuleConfig) MarshalJSON() ([]byte, error) {
	wire := moduleJSON{
		ID:      m.ID,
		Type:    m.Kind,
		Enabled: m.Enabled,
	}

	switch p := m.Payload.(type) {
	case RotorSetPayload:
		settings := p.RotorSettings
		if settings == nil {
			settings = []RotorSetting{}
		}
		wire.RotorSettings = &settings
	case PlugboardPayload:
		mapping := nonNilMapping(p.Mapping)
		wire.Mapping = &mapping
	case ReflectorPayload:
		wire.ReflectorType = p.ReflectorType
		wire.CustomMapping = p.CustomMapping
	case ShifterPayload:
		shift := p.Shift
		wire.Shift = &shift
	case SubstitutionPayload:
		mapping := nonNilMapping(p.Mapping)
		wire.Mapping = &mapping
	case VigenerePayload:
		keyword := p.Keyword
		wire.Keyword = &keyword
	case TranspositionPayload:
		pattern := p.Pattern
		if pattern == nil {
			pattern = []int{}
		}
		wire.Pattern = &pattern
	case nil:
	default:
		return nil, fmt.Errorf("unsupported module payload %T", p)
	}

	return json.Marshal(wire)
}

// UnmarshalJSON decodes the flat wire shape. The payload variant is chosen by
// "type"; an unknown type keeps the declared kind with a nil payload so the
// pipeline can log and skip it.
func (m *ModuleConfig) UnmarshalJSON(data []byte) error {
	var wire moduleJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	m.ID = wire.ID
	m.Kind = wire.Type
	m.Enabled = wire.Enabled
	m.Payload = nil

	switch wire.Type {
	case KindRotors:
		var settings []RotorSetting
		if wire.RotorSettings != nil {
			settings = *wire.RotorSettings
		}
		m.Payload = RotorSetPayload{RotorSettings: settings}
	case KindPlugboard:
		m.Payload = PlugboardPayload{Mapping: wireMapping(wire.Mapping)}
	case KindReflector:
		m.Payload = ReflectorPayload{ReflectorType: wire.ReflectorType, CustomMapping: wire.CustomMapping}
	case KindShifter:
		if wire.Shift != nil {
			m.Payload = ShifterPayload{Shift: *wire.Shift}
		}
	case KindSubstitution:
		m.Payload = SubstitutionPayload{Mapping: wireMapping(wire.Mapping)}
	case KindVigenere:
		if wire.Keyword != nil {
			m.Payload = VigenerePayload{Keyword: *wire.Keyword}
		}
	case KindTransposition:
		var pattern []int
		if wire.Pattern != nil {
			pattern = *wire.Pattern
		}
		m.Payload = TranspositionPayload{Pattern: pattern}
	}

	return nil
}

func wireMapping(m *map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return nonNilMapping(*m)
}

func nonNilMapping(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// SortedKeys returns the keys of a symbol mapping in ascending order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
