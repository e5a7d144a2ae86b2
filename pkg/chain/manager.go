// Package chain manages the ordered module chain a message is processed by.
//
// # Overview
//
// A Manager holds the current chain, the preset catalog and the name of the
// active preset. Every edit goes through the Manager, which validates it against
// the active alphabet so the pipeline only ever sees well-formed modules.
//
// # Presets
//
// The catalog starts with the built-in presets (see BuiltinPresets), which can be
// neither overwritten nor deleted. LoadPreset deep-copies a preset into the chain
// and makes it active. Any later edit of the chain switches the active preset to
// CustomPreset. SavePreset stores the chain under a new or existing user preset
// name and makes that preset active.
//
// A Manager is not safe for concurrent use.
package chain

import (
	"sort"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/google/uuid"
)

// Direction moves a module towards the front (Up) or back (Down) of the chain.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// State is a detached copy of everything a Manager holds.
type State struct {
	ActivePreset string                           `json:"activePresetName"`
	Presets      map[string][]models.ModuleConfig `json:"presets"`
	Modules      []models.ModuleConfig            `json:"moduleChain"`
	CharacterSet alphabet.CharacterSet            `json:"characterSet"`
}

type Manager struct {
	logger       ectologger.Logger
	modules      []models.ModuleConfig
	presets      map[string][]models.ModuleConfig
	activePreset string
	characterSet alphabet.CharacterSet
	newID        func() string
}

type Option func(*Manager)

// WithIDGenerator replaces the uuid generator used for new module IDs.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

func WithCharacterSet(set alphabet.CharacterSet) Option {
	return func(m *Manager) {
		m.characterSet = alphabet.Resolve(set).Name()
	}
}

// NewManager returns a manager with an empty chain, the built-in presets and the
// uppercase alphabet.
func NewManager(logger ectologger.Logger, opts ...Option) *Manager {
	m := &Manager{
		logger:       logger,
		modules:      []models.ModuleConfig{},
		presets:      BuiltinPresets(),
		activePreset: CustomPreset,
		characterSet: alphabet.Uppercase,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Modules returns a deep copy of the chain.
func (m *Manager) Modules() []models.ModuleConfig {
	return models.CloneChain(m.modules)
}

// Module returns a copy of one module.
func (m *Manager) Module(id string) (models.ModuleConfig, error) {
	i, err := m.indexOf(id)
	if err != nil {
		return models.ModuleConfig{}, err
	}
	return m.modules[i].Clone(), nil
}

func (m *Manager) CharacterSet() alphabet.CharacterSet {
	return m.characterSet
}

func (m *Manager) Alphabet() *alphabet.Alphabet {
	return alphabet.Resolve(m.characterSet)
}

// SetCharacterSet changes the alphabet. It does not affect the active preset.
func (m *Manager) SetCharacterSet(set alphabet.CharacterSet) error {
	if !alphabet.IsKnown(set) {
		return errors.NewChainErrorf(errors.CodeInvalid, "unknown character set '%s'", set).AddField("characterSet")
	}
	m.characterSet = set
	return nil
}

func (m *Manager) ActivePreset() string {
	return m.activePreset
}

func (m *Manager) IsCustom() bool {
	return m.activePreset == CustomPreset
}

// AddModule appends a module of kind with its default configuration.
func (m *Manager) AddModule(kind models.ModuleKind) (models.ModuleConfig, error) {
	payload, ok := DefaultPayload(kind)
	if !ok {
		return models.ModuleConfig{}, errors.NewChainErrorf(errors.CodeInvalid, "unknown module type '%s'", kind).AddField("type")
	}

	module := models.NewModule(m.newID(), payload)
	m.modules = append(m.modules, module)
	m.markCustom()

	m.logger.WithFields(map[string]any{
		"module_id":   module.ID,
		"module_type": kind,
	}).Debug("module added")

	return module.Clone(), nil
}

func (m *Manager) RemoveModule(id string) error {
	i, err := m.indexOf(id)
	if err != nil {
		return err
	}
	m.modules = append(m.modules[:i], m.modules[i+1:]...)
	m.markCustom()
	return nil
}

// MoveModule swaps a module with its neighbour. Moving past either end of the
// chain does nothing.
func (m *Manager) MoveModule(id string, direction Direction) error {
	i, err := m.indexOf(id)
	if err != nil {
		return err
	}

	var j int
	switch direction {
	case Up:
		j = i - 1
	case Down:
		j = i + 1
	default:
		return errors.NewChainErrorf(errors.CodeInvalid, "unknown direction '%s'", direction).AddModule(id)
	}
	if j < 0 || j >= len(m.modules) {
		return nil
	}

	m.modules[i], m.modules[j] = m.modules[j], m.modules[i]
	m.markCustom()
	return nil
}

// ReorderModule moves the module at index from so it ends up at index to.
func (m *Manager) ReorderModule(from, to int) error {
	if from < 0 || from >= len(m.modules) || to < 0 || to >= len(m.modules) {
		return errors.NewChainErrorf(errors.CodeInvalid, "cannot move module %d to %d in a chain of %d", from, to, len(m.modules))
	}
	if from == to {
		return nil
	}

	module := m.modules[from]
	rest := make([]models.ModuleConfig, 0, len(m.modules)-1)
	rest = append(rest, m.modules[:from]...)
	rest = append(rest, m.modules[from+1:]...)

	reordered := make([]models.ModuleConfig, 0, len(m.modules))
	reordered = append(reordered, rest[:to]...)
	reordered = append(reordered, module)
	reordered = append(reordered, rest[to:]...)
	m.modules = reordered
	m.markCustom()
	return nil
}

func (m *Manager) SetEnabled(id string, enabled bool) error {
	i, err := m.indexOf(id)
	if err != nil {
		return err
	}
	m.modules[i].Enabled = enabled
	m.markCustom()
	return nil
}

// UpdateModule replaces a module's configuration. The payload must be of the
// module's kind and pass Validate. Repeated rotor types are accepted with a
// warning.
func (m *Manager) UpdateModule(id string, payload models.ModulePayload) error {
	i, err := m.indexOf(id)
	if err != nil {
		return err
	}
	if payload == nil {
		return errors.NewChainError(errors.CodeInvalid, "configuration is required").AddModule(id)
	}

	updated := m.modules[i].Clone()
	if payload.Kind() != updated.Kind {
		return errors.NewChainErrorf(errors.CodeInvalid, "cannot apply %s configuration", payload.Kind()).AddModule(id).AddKind(string(updated.Kind))
	}
	updated.Payload = payload.Clone()

	if err := Validate(updated, m.Alphabet()); err != nil {
		return err
	}

	if rotors, ok := payload.(models.RotorSetPayload); ok {
		if duplicates := DuplicateRotors(rotors.RotorSettings); len(duplicates) > 0 {
			m.logger.WithFields(map[string]any{
				"module_id": id,
				"rotors":    duplicates,
			}).Warn("rotor set uses the same rotor type more than once")
		}
	}

	m.modules[i] = updated
	m.markCustom()
	return nil
}

// Presets returns a deep copy of the catalog.
func (m *Manager) Presets() map[string][]models.ModuleConfig {
	out := make(map[string][]models.ModuleConfig, len(m.presets))
	for name, modules := range m.presets {
		out[name] = models.CloneChain(modules)
	}
	return out
}

// PresetNames lists preset names, built-ins first, each group sorted.
func (m *Manager) PresetNames() []string {
	names := make([]string, 0, len(m.presets))
	for name := range m.presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		bi, bj := IsBuiltinPreset(names[i]), IsBuiltinPreset(names[j])
		if bi != bj {
			return bi
		}
		return names[i] < names[j]
	})
	return names
}

// LoadPreset replaces the chain with a copy of the named preset.
func (m *Manager) LoadPreset(name string) error {
	preset, ok := m.presets[name]
	if !ok {
		return errors.NewChainError(errors.CodeNotFound, "preset not found").AddPreset(name)
	}

	m.modules = models.CloneChain(preset)
	m.activePreset = name

	m.logger.WithFields(map[string]any{
		"preset":  name,
		"modules": len(m.modules),
	}).Debug("preset loaded")
	return nil
}

// SavePreset stores the chain under name and makes it the active preset.
func (m *Manager) SavePreset(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == CustomPreset {
		return errors.NewChainErrorf(errors.CodeInvalid, "'%s' is not a valid preset name", name).AddField("name")
	}
	if IsBuiltinPreset(name) {
		return errors.NewChainError(errors.CodeImmutable, "built-in presets cannot be overwritten").AddPreset(name)
	}

	m.presets[name] = models.CloneChain(m.modules)
	m.activePreset = name
	return nil
}

// DeletePreset removes a user preset. Deleting the active preset makes the
// chain custom.
func (m *Manager) DeletePreset(name string) error {
	if IsBuiltinPreset(name) {
		return errors.NewChainError(errors.CodeImmutable, "built-in presets cannot be deleted").AddPreset(name)
	}
	if _, ok := m.presets[name]; !ok {
		return errors.NewChainError(errors.CodeNotFound, "preset not found").AddPreset(name)
	}

	delete(m.presets, name)
	if m.activePreset == name {
		m.activePreset = CustomPreset
	}
	return nil
}

// Snapshot returns a detached copy of the manager state.
func (m *Manager) Snapshot() State {
	return State{
		ActivePreset: m.activePreset,
		Presets:      m.Presets(),
		Modules:      m.Modules(),
		CharacterSet: m.characterSet,
	}
}

// Restore replaces the manager state. Modules are normalized rather than
// rejected and the built-in presets are always restored to their shipped form.
// An active preset name that is not in the catalog becomes CustomPreset.
func (m *Manager) Restore(state State) {
	m.characterSet = alphabet.Resolve(state.CharacterSet).Name()
	a := m.Alphabet()

	m.presets = BuiltinPresets()
	for name, modules := range state.Presets {
		if IsBuiltinPreset(name) || name == CustomPreset {
			continue
		}
		m.presets[name] = NormalizeChain(modules, a)
	}

	m.modules = NormalizeChain(state.Modules, a)
	if m.modules == nil {
		m.modules = []models.ModuleConfig{}
	}

	m.activePreset = state.ActivePreset
	if _, ok := m.presets[m.activePreset]; !ok {
		m.activePreset = CustomPreset
	}
}

// ModuleIDs returns the IDs of the chain in order.
func (m *Manager) ModuleIDs() []string {
	return ectolinq.Map(m.modules, func(module models.ModuleConfig) string {
		return module.ID
	})
}

func (m *Manager) indexOf(id string) (int, error) {
	for i, module := range m.modules {
		if module.ID == id {
			return i, nil
		}
	}
	return -1, errors.NewChainError(errors.CodeNotFound, "module not found").AddModule(id)
}

func (m *Manager) markCustom() {
	m.activePreset = CustomPreset
}
