package chain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	n := 0
	return NewManager(logger, WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}))
}

func TestNewManager(t *testing.T) {
	m := newTestManager()

	assert.Empty(t, m.Modules())
	assert.Equal(t, CustomPreset, m.ActivePreset())
	assert.True(t, m.IsCustom())
	assert.Equal(t, alphabet.Uppercase, m.CharacterSet())
	assert.Equal(t, []string{PresetCaesar, PresetEnigma, PresetVigenere}, m.PresetNames())
}

func TestManager_AddModuleUsesDefaults(t *testing.T) {
	m := newTestManager()

	for _, kind := range models.Kinds() {
		module, err := m.AddModule(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, module.Kind)
		assert.True(t, module.Enabled)
		assert.NoError(t, Validate(module, m.Alphabet()), kind)
	}

	assert.Len(t, m.Modules(), len(models.Kinds()))
	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"}, m.ModuleIDs())

	_, err := m.AddModule("lamp")
	assert.True(t, errors.HasCode(err, errors.CodeInvalid))
}

func TestManager_RemoveModule(t *testing.T) {
	m := newTestManager()
	_, _ = m.AddModule(models.KindShifter)
	_, _ = m.AddModule(models.KindVigenere)

	require.NoError(t, m.RemoveModule("m1"))
	assert.Equal(t, []string{"m2"}, m.ModuleIDs())

	assert.True(t, errors.IsNotFound(m.RemoveModule("m1")))
}

func TestManager_MoveModule(t *testing.T) {
	m := newTestManager()
	for i := 0; i < 3; i++ {
		_, _ = m.AddModule(models.KindShifter)
	}

	require.NoError(t, m.MoveModule("m3", Up))
	assert.Equal(t, []string{"m1", "m3", "m2"}, m.ModuleIDs())

	require.NoError(t, m.MoveModule("m1", Down))
	assert.Equal(t, []string{"m3", "m1", "m2"}, m.ModuleIDs())

	require.NoError(t, m.MoveModule("m3", Up))
	assert.Equal(t, []string{"m3", "m1", "m2"}, m.ModuleIDs())

	assert.Error(t, m.MoveModule("m3", "sideways"))
	assert.True(t, errors.IsNotFound(m.MoveModule("nope", Up)))
}

func TestManager_ReorderModule(t *testing.T) {
	m := newTestManager()
	for i := 0; i < 4; i++ {
		_, _ = m.AddModule(models.KindShifter)
	}

	require.NoError(t, m.ReorderModule(0, 2))
	assert.Equal(t, []string{"m2", "m3", "m1", "m4"}, m.ModuleIDs())

	require.NoError(t, m.ReorderModule(3, 0))
	assert.Equal(t, []string{"m4", "m2", "m3", "m1"}, m.ModuleIDs())

	assert.Error(t, m.ReorderModule(0, 4))
}

func TestManager_SetEnabled(t *testing.T) {
	m := newTestManager()
	_, _ = m.AddModule(models.KindShifter)

	require.NoError(t, m.SetEnabled("m1", false))
	module, err := m.Module("m1")
	require.NoError(t, err)
	assert.False(t, module.Enabled)
}

func TestManager_UpdateModule(t *testing.T) {
	m := newTestManager()
	_, _ = m.AddModule(models.KindTransposition)

	require.NoError(t, m.UpdateModule("m1", models.TranspositionPayload{Pattern: []int{3, 1, 0, 2}}))
	module, _ := m.Module("m1")
	assert.Equal(t, models.TranspositionPayload{Pattern: []int{3, 1, 0, 2}}, module.Payload)

	err := m.UpdateModule("m1", models.TranspositionPayload{Pattern: []int{0, 0}})
	assert.True(t, errors.HasCode(err, errors.CodeInvalid))
	assert.Contains(t, err.Error(), "module 'm1'")

	err = m.UpdateModule("m1", models.ShifterPayload{Shift: 1})
	assert.Error(t, err)

	assert.Error(t, m.UpdateModule("m1", nil))

	module, _ = m.Module("m1")
	assert.Equal(t, models.TranspositionPayload{Pattern: []int{3, 1, 0, 2}}, module.Payload)
}

func TestManager_UpdateModuleAcceptsUnconnectedPlugs(t *testing.T) {
	m := newTestManager()
	_, _ = m.AddModule(models.KindPlugboard)
	_, _ = m.AddModule(models.KindReflector)

	require.NoError(t, m.UpdateModule("m1", models.PlugboardPayload{Mapping: map[string]string{"A": "A", "B": "C", "C": "B"}}))
	require.NoError(t, m.UpdateModule("m2", models.ReflectorPayload{
		ReflectorType: models.ReflectorCustom,
		CustomMapping: map[string]string{"A": "B", "B": "C", "C": "A"},
	}))

	module, _ := m.Module("m2")
	assert.Equal(t, "C", module.Payload.(models.ReflectorPayload).CustomMapping["B"])
}

func TestManager_UpdateModuleCopiesPayload(t *testing.T) {
	m := newTestManager()
	_, _ = m.AddModule(models.KindPlugboard)
	mapping := map[string]string{"A": "B", "B": "A"}

	require.NoError(t, m.UpdateModule("m1", models.PlugboardPayload{Mapping: mapping}))
	mapping["A"] = "C"

	module, _ := m.Module("m1")
	assert.Equal(t, "B", module.Payload.(models.PlugboardPayload).Mapping["A"])
}

func TestManager_UpdateModuleAllowsDuplicateRotors(t *testing.T) {
	m := newTestManager()
	_, _ = m.AddModule(models.KindRotors)

	err := m.UpdateModule("m1", models.RotorSetPayload{RotorSettings: []models.RotorSetting{
		{Rotor: models.RotorI}, {Rotor: models.RotorI},
	}})

	assert.NoError(t, err)
}

func TestManager_ModulesIsDeepCopy(t *testing.T) {
	m := newTestManager()
	_, _ = m.AddModule(models.KindRotors)

	modules := m.Modules()
	modules[0].Payload.(models.RotorSetPayload).RotorSettings[0].Rotor = models.RotorV

	module, _ := m.Module("m1")
	assert.Equal(t, models.RotorI, module.Payload.(models.RotorSetPayload).RotorSettings[0].Rotor)
}

func TestManager_LoadPresetIsIdempotent(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.LoadPreset(PresetEnigma))
	first, err := json.Marshal(m.Modules())
	require.NoError(t, err)

	require.NoError(t, m.LoadPreset(PresetEnigma))
	second, err := json.Marshal(m.Modules())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, PresetEnigma, m.ActivePreset())
	assert.False(t, m.IsCustom())
	assert.Equal(t, []string{"enigma-rotors", "enigma-plugboard", "enigma-reflector"}, m.ModuleIDs())
}

func TestManager_LoadPresetDoesNotAliasCatalog(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.LoadPreset(PresetCaesar))

	require.NoError(t, m.UpdateModule("caesar", models.ShifterPayload{Shift: 13}))
	require.NoError(t, m.LoadPreset(PresetCaesar))

	module, _ := m.Module("caesar")
	assert.Equal(t, models.ShifterPayload{Shift: 3}, module.Payload)
}

func TestManager_MutationMarksCustom(t *testing.T) {
	mutations := map[string]func(m *Manager) error{
		"add":     func(m *Manager) error { _, err := m.AddModule(models.KindShifter); return err },
		"remove":  func(m *Manager) error { return m.RemoveModule("vigenere") },
		"disable": func(m *Manager) error { return m.SetEnabled("vigenere", false) },
		"update":  func(m *Manager) error { return m.UpdateModule("vigenere", models.VigenerePayload{Keyword: "LEMON"}) },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			m := newTestManager()
			require.NoError(t, m.LoadPreset(PresetVigenere))
			require.NoError(t, mutate(m))
			assert.Equal(t, CustomPreset, m.ActivePreset())
		})
	}
}

func TestManager_SetCharacterSetKeepsPreset(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.LoadPreset(PresetCaesar))

	require.NoError(t, m.SetCharacterSet(alphabet.Extended))
	assert.Equal(t, PresetCaesar, m.ActivePreset())
	assert.Equal(t, 89, m.Alphabet().Len())

	assert.Error(t, m.SetCharacterSet("runes"))
}

func TestManager_SavePreset(t *testing.T) {
	m := newTestManager()
	_, _ = m.AddModule(models.KindShifter)

	require.NoError(t, m.SavePreset("Mine"))
	assert.Equal(t, "Mine", m.ActivePreset())
	assert.Contains(t, m.PresetNames(), "Mine")

	require.NoError(t, m.UpdateModule("m1", models.ShifterPayload{Shift: 7}))
	require.NoError(t, m.SavePreset("Mine"))
	assert.Equal(t, models.ShifterPayload{Shift: 7}, m.Presets()["Mine"][0].Payload)

	err := m.SavePreset(PresetEnigma)
	assert.True(t, errors.HasCode(err, errors.CodeImmutable))

	assert.Error(t, m.SavePreset("  "))
	assert.Error(t, m.SavePreset(CustomPreset))
}

func TestManager_DeletePreset(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SavePreset("Mine"))

	assert.True(t, errors.HasCode(m.DeletePreset(PresetEnigma), errors.CodeImmutable))
	assert.True(t, errors.IsNotFound(m.DeletePreset("Other")))

	require.NoError(t, m.DeletePreset("Mine"))
	assert.Equal(t, CustomPreset, m.ActivePreset())
	assert.NotContains(t, m.PresetNames(), "Mine")
	assert.Len(t, m.Presets(), 3)
}

func TestManager_LoadMissingPreset(t *testing.T) {
	m := newTestManager()
	assert.True(t, errors.IsNotFound(m.LoadPreset("nope")))
}

func TestManager_SnapshotRestore(t *testing.T) {
	m := newTestManager()
	_, _ = m.AddModule(models.KindRotors)
	require.NoError(t, m.SetCharacterSet(alphabet.Full))
	require.NoError(t, m.SavePreset("Mine"))

	snapshot := m.Snapshot()

	other := newTestManager()
	other.Restore(snapshot)

	assert.Equal(t, snapshot, other.Snapshot())
	assert.Equal(t, "Mine", other.ActivePreset())
}

func TestManager_RestoreNormalizes(t *testing.T) {
	m := newTestManager()
	m.Restore(State{
		ActivePreset: "Gone",
		Presets: map[string][]models.ModuleConfig{
			PresetEnigma: {models.NewModule("x", models.ShifterPayload{Shift: 1})},
			"Mine":       {models.NewModule("t", models.TranspositionPayload{Pattern: []int{5, 5}})},
		},
		Modules: []models.ModuleConfig{
			models.NewModule("t", models.TranspositionPayload{Pattern: []int{2, 2, 2}}),
			{ID: "s", Kind: models.KindShifter, Enabled: true},
		},
		CharacterSet: "unknown",
	})

	assert.Equal(t, CustomPreset, m.ActivePreset())
	assert.Equal(t, alphabet.Uppercase, m.CharacterSet())
	assert.Equal(t, BuiltinPresets()[PresetEnigma], m.Presets()[PresetEnigma])
	assert.Equal(t, models.TranspositionPayload{Pattern: []int{0, 1}}, m.Presets()["Mine"][0].Payload)

	modules := m.Modules()
	assert.Equal(t, models.TranspositionPayload{Pattern: []int{0, 1, 2}}, modules[0].Payload)
	assert.Equal(t, models.ShifterPayload{Shift: 3}, modules[1].Payload)
}
