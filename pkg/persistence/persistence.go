// Package persistence reads and writes named cipher configurations.
//
// # Overview
//
// A SavedConfiguration is a named, timestamped snapshot of the chain manager plus
// the message being worked on:
//
//	{
//	  "name": "night shift",
//	  "timestamp": 1717171717000,
//	  "state": {
//	    "activePresetName": "Custom",
//	    "presets": {"Enigma": [...]},
//	    "moduleChain": [...],
//	    "messages": {"input": "HELLO", "output": "MFNCZ"},
//	    "version": 1,
//	    "characterSet": "uppercase"
//	  }
//	}
//
// # Versions
//
// Payloads written before CurrentVersion are migrated: every field the payload
// lacks is filled from Defaults, and saved presets are merged over the default
// catalog. A payload at CurrentVersion must be complete. Payloads from a newer
// version, or that cannot be parsed, are rejected as corrupt and nothing from
// them is applied.
package persistence

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/chain"
	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// CurrentVersion is the state version written by this package.
const CurrentVersion = 1

// Messages is the text last entered and its processed form.
type Messages struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// SavedState is the versioned body of a SavedConfiguration.
type SavedState struct {
	ActivePresetName string                           `json:"activePresetName"`
	Presets          map[string][]models.ModuleConfig `json:"presets"`
	ModuleChain      []models.ModuleConfig            `json:"moduleChain"`
	Messages         Messages                         `json:"messages"`
	Version          int                              `json:"version"`
	CharacterSet     alphabet.CharacterSet            `json:"characterSet,omitempty"`
}

type SavedConfiguration struct {
	Name      string     `json:"name" validate:"required"`
	Timestamp int64      `json:"timestamp"`
	State     SavedState `json:"state"`
}

// Defaults is the state a fresh engine starts with.
func Defaults() SavedState {
	return SavedState{
		ActivePresetName: chain.CustomPreset,
		Presets:          chain.BuiltinPresets(),
		ModuleChain:      []models.ModuleConfig{},
		Messages:         Messages{},
		Version:          CurrentVersion,
		CharacterSet:     alphabet.Uppercase,
	}
}

// New builds a configuration from a manager snapshot.
func New(name string, state chain.State, messages Messages, now time.Time) SavedConfiguration {
	return SavedConfiguration{
		Name:      name,
		Timestamp: now.UnixMilli(),
		State: SavedState{
			ActivePresetName: state.ActivePreset,
			Presets:          state.Presets,
			ModuleChain:      state.Modules,
			Messages:         messages,
			Version:          CurrentVersion,
			CharacterSet:     state.CharacterSet,
		},
	}
}

// ManagerState converts the saved body back into a manager snapshot.
func (s SavedState) ManagerState() chain.State {
	return chain.State{
		ActivePreset: s.ActivePresetName,
		Presets:      s.Presets,
		Modules:      s.ModuleChain,
		CharacterSet: s.CharacterSet,
	}
}

// Encode serializes cfg as compact JSON.
func Encode(cfg SavedConfiguration) ([]byte, error) {
	return json.Marshal(cfg)
}

type savedStateJSON struct {
	ActivePresetName *string                          `json:"activePresetName"`
	Presets          map[string][]models.ModuleConfig `json:"presets"`
	ModuleChain      *[]models.ModuleConfig           `json:"moduleChain"`
	Messages         *Messages                        `json:"messages"`
	Version          *int                             `json:"version"`
	CharacterSet     *alphabet.CharacterSet           `json:"characterSet"`
}

type savedConfigurationJSON struct {
	Name      *string         `json:"name"`
	Timestamp *int64          `json:"timestamp"`
	State     *savedStateJSON `json:"state"`
}

// Decode parses and, when needed, migrates a saved configuration.
func Decode(data []byte) (SavedConfiguration, error) {
	var wire savedConfigurationJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return SavedConfiguration{}, errors.NewChainErrorf(errors.CodeCorrupt, "saved configuration is not valid: %w", err)
	}
	if wire.Name == nil || *wire.Name == "" {
		return SavedConfiguration{}, errors.NewChainError(errors.CodeCorrupt, "saved configuration has no name").AddField("name")
	}
	if wire.State == nil {
		return SavedConfiguration{}, errors.NewChainError(errors.CodeCorrupt, "saved configuration has no state").AddField("state")
	}

	version := 0
	if wire.State.Version != nil {
		version = *wire.State.Version
	}

	var (
		state SavedState
		err   error
	)
	switch {
	case version > CurrentVersion:
		return SavedConfiguration{}, errors.NewChainErrorf(errors.CodeCorrupt, "state version %d is newer than supported version %d", version, CurrentVersion).AddField("version")
	case version < CurrentVersion:
		state = migrate(*wire.State)
	default:
		state, err = complete(*wire.State)
		if err != nil {
			return SavedConfiguration{}, err
		}
	}

	cfg := SavedConfiguration{Name: *wire.Name, State: state}
	if wire.Timestamp != nil {
		cfg.Timestamp = *wire.Timestamp
	} else if version == CurrentVersion {
		return SavedConfiguration{}, errors.NewChainError(errors.CodeCorrupt, "saved configuration has no timestamp").AddField("timestamp")
	}

	return cfg, nil
}

// migrate upgrades an older state to CurrentVersion, filling every missing field
// from Defaults. Saved presets win over default presets of the same name.
func migrate(old savedStateJSON) SavedState {
	state := Defaults()

	if old.ActivePresetName != nil {
		state.ActivePresetName = *old.ActivePresetName
	}
	for name, modules := range old.Presets {
		state.Presets[name] = modules
	}
	if old.ModuleChain != nil {
		state.ModuleChain = *old.ModuleChain
	}
	if old.Messages != nil {
		state.Messages = *old.Messages
	}
	if old.CharacterSet != nil {
		state.CharacterSet = *old.CharacterSet
	}

	state.Version = CurrentVersion
	return state
}

// complete checks a current-version state has every required field.
func complete(wire savedStateJSON) (SavedState, error) {
	missing := ""
	switch {
	case wire.ActivePresetName == nil:
		missing = "activePresetName"
	case wire.Presets == nil:
		missing = "presets"
	case wire.ModuleChain == nil:
		missing = "moduleChain"
	case wire.Messages == nil:
		missing = "messages"
	}
	if missing != "" {
		return SavedState{}, errors.NewChainErrorf(errors.CodeCorrupt, "state version %d is missing '%s'", CurrentVersion, missing).AddField(missing)
	}

	state := SavedState{
		ActivePresetName: *wire.ActivePresetName,
		Presets:          wire.Presets,
		ModuleChain:      *wire.ModuleChain,
		Messages:         *wire.Messages,
		Version:          CurrentVersion,
		CharacterSet:     alphabet.Uppercase,
	}
	if wire.CharacterSet != nil {
		state.CharacterSet = *wire.CharacterSet
	}
	return state, nil
}
