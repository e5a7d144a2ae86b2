package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/chain"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/persistence"
	"gopkg.in/yaml.v3"
)

// ChainFile is the YAML form of a module chain. Modules use the same flat
// fields as the JSON wire shape:
//
//	characterSet: uppercase
//	modules:
//	  - type: rotors
//	    rotorSettings:
//	      - {rotor: I, ringSetting: 0}
//	  - type: shifter
//	    shift: 3
//
// "id" defaults to the module's position and "enabled" defaults to true.
type ChainFile struct {
	CharacterSet alphabet.CharacterSet `yaml:"characterSet,omitempty"`
	Modules      []map[string]any      `yaml:"modules"`
}

// ReadChainFile parses and validates a YAML chain.
func ReadChainFile(r io.Reader) (alphabet.CharacterSet, []models.ModuleConfig, error) {
	var file ChainFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return "", nil, fmt.Errorf("failed to parse chain file: %w", err)
	}

	set := file.CharacterSet
	if set == "" {
		set = alphabet.Uppercase
	}
	if !alphabet.IsKnown(set) {
		return "", nil, fmt.Errorf("unknown character set %q", set)
	}
	a := alphabet.Resolve(set)

	modules := make([]models.ModuleConfig, 0, len(file.Modules))
	for i, fields := range file.Modules {
		if _, ok := fields["id"]; !ok {
			fields["id"] = fmt.Sprintf("module-%d", i+1)
		}
		if _, ok := fields["enabled"]; !ok {
			fields["enabled"] = true
		}

		data, err := json.Marshal(fields)
		if err != nil {
			return "", nil, fmt.Errorf("module %d: %w", i+1, err)
		}
		var module models.ModuleConfig
		if err := json.Unmarshal(data, &module); err != nil {
			return "", nil, fmt.Errorf("module %d: %w", i+1, err)
		}
		if err := chain.Validate(module, a); err != nil {
			return "", nil, fmt.Errorf("module %d: %w", i+1, err)
		}
		modules = append(modules, module)
	}

	return set, modules, nil
}

// WriteChainFile writes modules as a YAML chain.
func WriteChainFile(w io.Writer, set alphabet.CharacterSet, modules []models.ModuleConfig) error {
	data, err := json.Marshal(modules)
	if err != nil {
		return err
	}
	file := ChainFile{CharacterSet: set}
	if err := json.Unmarshal(data, &file.Modules); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return err
	}
	return enc.Close()
}

// chainConfiguration wraps a chain from a file as a configuration the engine
// can apply.
func chainConfiguration(name string, set alphabet.CharacterSet, modules []models.ModuleConfig, now time.Time) persistence.SavedConfiguration {
	state := persistence.Defaults()
	state.ModuleChain = modules
	state.CharacterSet = set
	return persistence.SavedConfiguration{
		Name:      name,
		Timestamp: now.UnixMilli(),
		State:     state,
	}
}
