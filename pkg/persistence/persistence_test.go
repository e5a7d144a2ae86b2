package persistence

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/chain"
	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConfiguration() SavedConfiguration {
	state := chain.State{
		ActivePreset: chain.PresetCaesar,
		Presets:      chain.BuiltinPresets(),
		Modules:      chain.BuiltinPresets()[chain.PresetCaesar],
		CharacterSet: alphabet.Full,
	}
	return New("sample", state, Messages{Input: "HELLO", Output: "KHOOR"}, time.UnixMilli(1717171717000))
}

func TestEncodeDecode_CurrentVersion(t *testing.T) {
	cfg := sampleConfiguration()

	data, err := Encode(cfg)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
	assert.Equal(t, int64(1717171717000), decoded.Timestamp)
}

func TestDecode_MigratesOlderVersions(t *testing.T) {
	data := []byte(`{
		"name": "legacy",
		"timestamp": 42,
		"state": {
			"presets": {
				"Enigma": [{"id":"mine","type":"shifter","enabled":true,"shift":1}],
				"Old": [{"id":"v","type":"vigenere","enabled":true,"keyword":"LEMON"}]
			},
			"messages": {"input": "A", "output": "B"}
		}
	}`)

	cfg, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "legacy", cfg.Name)
	assert.Equal(t, int64(42), cfg.Timestamp)
	assert.Equal(t, CurrentVersion, cfg.State.Version)
	assert.Equal(t, chain.CustomPreset, cfg.State.ActivePresetName)
	assert.Equal(t, alphabet.Uppercase, cfg.State.CharacterSet)
	assert.Equal(t, []models.ModuleConfig{}, cfg.State.ModuleChain)
	assert.Equal(t, Messages{Input: "A", Output: "B"}, cfg.State.Messages)

	assert.Len(t, cfg.State.Presets, 4)
	assert.Equal(t, "mine", cfg.State.Presets[chain.PresetEnigma][0].ID)
	assert.Equal(t, chain.BuiltinPresets()[chain.PresetCaesar], cfg.State.Presets[chain.PresetCaesar])
}

func TestDecode_VersionZeroIsMigrated(t *testing.T) {
	cfg, err := Decode([]byte(`{"name":"zero","state":{"version":0,"activePresetName":"Enigma"}}`))
	require.NoError(t, err)

	assert.Equal(t, "Enigma", cfg.State.ActivePresetName)
	assert.Equal(t, int64(0), cfg.Timestamp)
	assert.Len(t, cfg.State.Presets, 3)
}

func TestDecode_FailsClosed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: `{"name":`},
		{name: "wrong shape", input: `[]`},
		{name: "missing name", input: `{"timestamp":1,"state":{"version":0}}`},
		{name: "missing state", input: `{"name":"x","timestamp":1}`},
		{name: "newer version", input: `{"name":"x","timestamp":1,"state":{"version":2,"activePresetName":"Custom","presets":{},"moduleChain":[],"messages":{"input":"","output":""}}}`},
		{name: "current version missing chain", input: `{"name":"x","timestamp":1,"state":{"version":1,"activePresetName":"Custom","presets":{},"messages":{"input":"","output":""}}}`},
		{name: "current version missing timestamp", input: `{"name":"x","state":{"version":1,"activePresetName":"Custom","presets":{},"moduleChain":[],"messages":{"input":"","output":""}}}`},
		{name: "bad module", input: `{"name":"x","timestamp":1,"state":{"version":1,"activePresetName":"Custom","presets":{},"moduleChain":[{"id":"s","type":"shifter","shift":"three"}],"messages":{"input":"","output":""}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeCorrupt), err.Error())
		})
	}
}

func TestSavedState_ManagerStateRoundTrip(t *testing.T) {
	cfg := sampleConfiguration()
	state := cfg.State.ManagerState()

	assert.Equal(t, chain.PresetCaesar, state.ActivePreset)
	assert.Equal(t, alphabet.Full, state.CharacterSet)
	assert.Equal(t, cfg.State.ModuleChain, state.Modules)
}

func TestExportImport(t *testing.T) {
	cfg := sampleConfiguration()
	var buf bytes.Buffer

	require.NoError(t, Export(&buf, cfg))
	assert.Contains(t, buf.String(), "\n  \"name\": \"sample\"")

	imported, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, imported)
}

func TestImport_RejectsOversizedDocument(t *testing.T) {
	body := strings.NewReader(`{"name":"big","padding":"` + strings.Repeat("x", MaxImportSize) + `"}`)

	_, err := Import(body)
	assert.True(t, errors.HasCode(err, errors.CodeTooLarge))
	assert.Contains(t, err.Error(), "exceeds")
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "cipher-night.json", ExportFileName("night"))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("night shift"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("../etc/passwd"))
	assert.Error(t, ValidateName(`a\b`))
}
