package chain

import (
	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/models"
)

// ConnectPlugboardPair pairs two symbols on a plugboard module. Existing pairs
// involving either symbol are removed first.
func (m *Manager) ConnectPlugboardPair(id, from, to string) error {
	i, board, err := m.plugboard(id)
	if err != nil {
		return err
	}

	a := m.Alphabet()
	f, t, cerr := symbolPair(from, to, a)
	if cerr != nil {
		return cerr.AddModule(id).AddField("mapping")
	}
	if f == t {
		return errors.NewChainErrorf(errors.CodeInvalid, "'%c' cannot be paired with itself", f).AddModule(id).AddField("mapping")
	}

	mapping := normalizePairs(board.Mapping, a)
	for _, symbol := range []string{string(f), string(t)} {
		if partner, ok := mapping[symbol]; ok {
			delete(mapping, partner)
			delete(mapping, symbol)
		}
	}
	mapping[string(f)] = string(t)
	mapping[string(t)] = string(f)

	m.modules[i].Payload = models.PlugboardPayload{Mapping: mapping}
	m.markCustom()
	return nil
}

// DisconnectPlugboardSymbol removes the pair a symbol belongs to, if any.
func (m *Manager) DisconnectPlugboardSymbol(id, symbol string) error {
	i, board, err := m.plugboard(id)
	if err != nil {
		return err
	}

	s, ok := singleSymbol(symbol, m.Alphabet())
	if !ok {
		return errors.NewChainErrorf(errors.CodeInvalid, "'%s' is not a single %s symbol", symbol, m.characterSet).AddModule(id).AddField("mapping")
	}

	mapping := normalizePairs(board.Mapping, m.Alphabet())
	partner, ok := mapping[string(s)]
	if !ok {
		return nil
	}
	delete(mapping, string(s))
	delete(mapping, partner)

	m.modules[i].Payload = models.PlugboardPayload{Mapping: mapping}
	m.markCustom()
	return nil
}

// ResetPlugboard removes every pair.
func (m *Manager) ResetPlugboard(id string) error {
	i, _, err := m.plugboard(id)
	if err != nil {
		return err
	}
	m.modules[i].Payload = models.PlugboardPayload{Mapping: map[string]string{}}
	m.markCustom()
	return nil
}

// AddRotor appends the first rotor type not already in the set.
func (m *Manager) AddRotor(id string) error {
	i, rotors, err := m.rotorSet(id)
	if err != nil {
		return err
	}

	used := make([]models.RotorType, 0, len(rotors.RotorSettings))
	for _, s := range rotors.RotorSettings {
		used = append(used, s.Rotor)
	}
	next, ok := firstUnused(used)
	if !ok {
		return errors.NewChainError(errors.CodeConflict, "every rotor type is already in use").AddModule(id).AddField("rotorSettings")
	}

	settings := append(rotors.Clone().(models.RotorSetPayload).RotorSettings, models.RotorSetting{Rotor: next})
	m.modules[i].Payload = models.RotorSetPayload{RotorSettings: settings}
	m.markCustom()
	return nil
}

// RemoveRotor removes the rotor in slot. The last rotor cannot be removed.
func (m *Manager) RemoveRotor(id string, slot int) error {
	i, rotors, err := m.rotorSet(id)
	if err != nil {
		return err
	}
	if err := checkSlot(id, slot, rotors); err != nil {
		return err
	}
	if len(rotors.RotorSettings) == 1 {
		return errors.NewChainError(errors.CodeConflict, "a rotor set needs at least one rotor").AddModule(id).AddField("rotorSettings")
	}

	settings := make([]models.RotorSetting, 0, len(rotors.RotorSettings)-1)
	settings = append(settings, rotors.RotorSettings[:slot]...)
	settings = append(settings, rotors.RotorSettings[slot+1:]...)
	m.modules[i].Payload = models.RotorSetPayload{RotorSettings: settings}
	m.markCustom()
	return nil
}

// SetRotorType changes the rotor in slot. A type already used by another slot
// is rejected.
func (m *Manager) SetRotorType(id string, slot int, rotor models.RotorType) error {
	i, rotors, err := m.rotorSet(id)
	if err != nil {
		return err
	}
	if err := checkSlot(id, slot, rotors); err != nil {
		return err
	}

	for j, s := range rotors.RotorSettings {
		if j != slot && s.Rotor == rotor {
			return errors.NewChainErrorf(errors.CodeConflict, "rotor %s is already used in slot %d", rotor, j).AddModule(id).AddField("rotorSettings")
		}
	}

	updated := rotors.Clone().(models.RotorSetPayload)
	updated.RotorSettings[slot].Rotor = rotor
	if err := validatePayload(updated, m.Alphabet()); err != nil {
		return errors.WrapChainError(errors.CodeInvalid, err).AddModule(id)
	}

	m.modules[i].Payload = updated
	m.markCustom()
	return nil
}

// SetRingSetting changes the ring setting of the rotor in slot.
func (m *Manager) SetRingSetting(id string, slot, ring int) error {
	i, rotors, err := m.rotorSet(id)
	if err != nil {
		return err
	}
	if err := checkSlot(id, slot, rotors); err != nil {
		return err
	}

	updated := rotors.Clone().(models.RotorSetPayload)
	updated.RotorSettings[slot].RingSetting = ring
	if err := validatePayload(updated, m.Alphabet()); err != nil {
		return errors.WrapChainError(errors.CodeInvalid, err).AddModule(id)
	}

	m.modules[i].Payload = updated
	m.markCustom()
	return nil
}

func (m *Manager) plugboard(id string) (int, models.PlugboardPayload, error) {
	i, err := m.indexOf(id)
	if err != nil {
		return -1, models.PlugboardPayload{}, err
	}
	board, ok := m.modules[i].Payload.(models.PlugboardPayload)
	if !ok || m.modules[i].Kind != models.KindPlugboard {
		return -1, models.PlugboardPayload{}, errors.NewChainError(errors.CodeInvalid, "module is not a plugboard").AddModule(id).AddKind(string(m.modules[i].Kind))
	}
	return i, board, nil
}

func (m *Manager) rotorSet(id string) (int, models.RotorSetPayload, error) {
	i, err := m.indexOf(id)
	if err != nil {
		return -1, models.RotorSetPayload{}, err
	}
	rotors, ok := m.modules[i].Payload.(models.RotorSetPayload)
	if !ok || m.modules[i].Kind != models.KindRotors {
		return -1, models.RotorSetPayload{}, errors.NewChainError(errors.CodeInvalid, "module is not a rotor set").AddModule(id).AddKind(string(m.modules[i].Kind))
	}
	return i, rotors, nil
}

func checkSlot(id string, slot int, rotors models.RotorSetPayload) error {
	if slot < 0 || slot >= len(rotors.RotorSettings) {
		return errors.NewChainErrorf(errors.CodeNotFound, "rotor slot %d does not exist", slot).AddModule(id).AddField("rotorSettings")
	}
	return nil
}
