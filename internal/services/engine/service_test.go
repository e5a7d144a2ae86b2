package engine

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/chain"
	chainerrors "github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/kafka"
	"github.com/Ramsey-B/enygma/pkg/metrics"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/persistence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*kafka.ProcessedMessage
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, msg *kafka.ProcessedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return p.err
}

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	store, err := persistence.NewFileStore(filepath.Join(t.TempDir(), "states"), silentLogger())
	require.NoError(t, err)

	ids := 0
	manager := chain.NewManager(silentLogger(), chain.WithIDGenerator(func() string {
		ids++
		return "m" + string(rune('0'+ids))
	}))

	base := []Option{
		WithStore(store),
		WithManager(manager),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	}
	return NewService(silentLogger(), append(base, opts...)...)
}

func TestService_ProcessMessage(t *testing.T) {
	publisher := &fakePublisher{}
	m := metrics.New(prometheus.NewRegistry())
	s := newTestService(t, WithPublisher(publisher), WithMetrics(m))
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetCaesar))

	result := s.ProcessMessage(ctx, "Hello, World")

	assert.Equal(t, "Khoor, Zruog", result.Output)
	assert.Equal(t, persistence.Messages{Input: "Hello, World", Output: "Khoor, Zruog"}, s.Messages())

	require.Len(t, publisher.events, 1)
	assert.Equal(t, chain.PresetCaesar, publisher.events[0].ActivePreset)
	assert.Equal(t, 12, publisher.events[0].InputLength)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("uppercase")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.SymbolsTotal.WithLabelValues("shifter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublishedTotal.WithLabelValues("ok")))
}

func TestService_PublishFailureDoesNotFailProcessing(t *testing.T) {
	s := newTestService(t, WithPublisher(&fakePublisher{err: errors.New("down")}))
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetCaesar))

	assert.Equal(t, "D", s.ProcessMessage(ctx, "A").Output)
}

func TestService_ProcessMessageStartsClean(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetEnigma))

	first := s.ProcessMessage(ctx, "HELLO")
	second := s.ProcessMessage(ctx, "HELLO")

	assert.Equal(t, first.Output, second.Output)
	positions, err := s.RotorPositions("enigma-rotors")
	require.NoError(t, err)
	assert.Nil(t, positions)
}

func TestService_ProcessCharacterAfterMessageStartsFresh(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetEnigma))

	whole := s.ProcessMessage(ctx, "HELLO").Output
	typed := s.ProcessCharacter(ctx, 'H')

	assert.Equal(t, string([]rune(whole)[0]), typed.Result)
	positions, err := s.RotorPositions("enigma-rotors")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1}, positions)
}

func TestService_ProcessCharacterKeepsState(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetEnigma))
	whole := s.ProcessMessage(ctx, "AAA").Output
	s.ResetState(ctx)

	var typed strings.Builder
	for _, r := range "AAA" {
		result := s.ProcessCharacter(ctx, r)
		typed.WriteString(result.Result)
		require.NotEmpty(t, result.History)
	}

	assert.Equal(t, whole, typed.String())

	s.ResetState(ctx)
	positions, err := s.RotorPositions("enigma-rotors")
	require.NoError(t, err)
	assert.Nil(t, positions)
}

func TestService_EditsMarkCustomAndResetModuleState(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetEnigma))
	s.ProcessCharacter(ctx, 'A')

	require.NoError(t, s.SetRingSetting(ctx, "enigma-rotors", 2, 4))

	positions, err := s.RotorPositions("enigma-rotors")
	require.NoError(t, err)
	assert.Nil(t, positions)
	assert.Equal(t, chain.CustomPreset, s.State().ActivePreset)
}

func TestService_ChainEditing(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	shifter, err := s.AddModule(ctx, models.KindShifter)
	require.NoError(t, err)
	vigenere, err := s.AddModule(ctx, models.KindVigenere)
	require.NoError(t, err)
	plugboard, err := s.AddModule(ctx, models.KindPlugboard)
	require.NoError(t, err)

	require.NoError(t, s.UpdateModule(ctx, shifter.ID, models.ShifterPayload{Shift: 1}))
	require.NoError(t, s.SetEnabled(ctx, vigenere.ID, false))
	require.NoError(t, s.ConnectPlugboardPair(ctx, plugboard.ID, "B", "Z"))
	require.NoError(t, s.MoveModule(ctx, plugboard.ID, chain.Up))
	require.NoError(t, s.ReorderModule(ctx, 2, 0))

	state := s.State()
	ids := []string{state.Modules[0].ID, state.Modules[1].ID, state.Modules[2].ID}
	assert.Equal(t, []string{vigenere.ID, shifter.ID, plugboard.ID}, ids)

	// A -> shift 1 -> B -> plugboard -> Z
	assert.Equal(t, "Z", s.ProcessMessage(ctx, "A").Output)

	require.NoError(t, s.DisconnectPlugboardSymbol(ctx, plugboard.ID, "Z"))
	assert.Equal(t, "B", s.ProcessMessage(ctx, "A").Output)

	require.NoError(t, s.RemoveModule(ctx, vigenere.ID))
	assert.Len(t, s.State().Modules, 2)
}

func TestService_RejectedEditsAreReported(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := newTestService(t, WithMetrics(m))
	ctx := context.Background()

	err := s.RemoveModule(ctx, "missing")

	assert.True(t, chainerrors.IsNotFound(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainEditsTotal.WithLabelValues("remove_module", "error")))

	_, err = s.RotorPositions("missing")
	assert.Error(t, err)
}

func TestService_RotorPositionsRequiresRotorModule(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetCaesar))

	_, err := s.RotorPositions("caesar")

	assert.True(t, chainerrors.HasCode(err, chainerrors.CodeInvalid))
}

func TestService_Presets(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetCaesar))
	require.NoError(t, s.UpdateModule(ctx, "caesar", models.ShifterPayload{Shift: 5}))

	require.NoError(t, s.SavePreset(ctx, "Five"))
	assert.Contains(t, s.PresetNames(), "Five")
	assert.Equal(t, "Five", s.State().ActivePreset)

	assert.Error(t, s.SavePreset(ctx, chain.PresetEnigma))
	require.NoError(t, s.DeletePreset(ctx, "Five"))
	assert.NotContains(t, s.PresetNames(), "Five")
}

func TestService_CharacterSet(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetCaesar))

	require.NoError(t, s.SetCharacterSet(ctx, alphabet.Full))
	assert.Equal(t, "c", s.ProcessMessage(ctx, "z").Output)

	assert.Error(t, s.SetCharacterSet(ctx, "klingon"))
}

func TestService_SaveLoadRoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetVigenere))
	s.ProcessMessage(ctx, "ATTACK")

	saved, err := s.Save(ctx, "field")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), saved.Timestamp)

	require.NoError(t, s.LoadPreset(ctx, chain.PresetCaesar))
	s.ProcessMessage(ctx, "X")

	loaded, err := s.Load(ctx, "field")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
	assert.Equal(t, chain.PresetVigenere, s.State().ActivePreset)
	assert.Equal(t, "ATTACK", s.Messages().Input)

	names, err := s.ListSaved(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"field"}, names)

	require.NoError(t, s.DeleteSaved(ctx, "field"))
	_, err = s.Load(ctx, "field")
	assert.True(t, chainerrors.IsNotFound(err))
	assert.Equal(t, chain.PresetVigenere, s.State().ActivePreset)
}

func TestService_WithoutStore(t *testing.T) {
	s := NewService(silentLogger())

	_, err := s.Save(context.Background(), "x")

	assert.True(t, chainerrors.HasCode(err, chainerrors.CodeConflict))
}

func TestService_ExportImport(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetEnigma))
	s.ProcessMessage(ctx, "HELLO")

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf, "portable"))

	other := newTestService(t)
	cfg, err := other.Import(ctx, &buf)
	require.NoError(t, err)

	assert.Equal(t, "portable", cfg.Name)
	assert.Equal(t, s.State(), other.State())
	assert.Equal(t, s.Messages(), other.Messages())

	assert.Error(t, s.Export(&buf, ""))
}

func TestService_ImportRejectsCorruptPayload(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetCaesar))

	_, err := s.Import(ctx, strings.NewReader(`{"name":"x","timestamp":1,"state":{"version":99}}`))

	assert.True(t, chainerrors.HasCode(err, chainerrors.CodeCorrupt))
	assert.Equal(t, chain.PresetCaesar, s.State().ActivePreset)
}

func TestService_ConcurrentUse(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPreset(ctx, chain.PresetEnigma))
	expected := s.ProcessMessage(ctx, "CONCURRENT").Output

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.ProcessMessage(ctx, "CONCURRENT").Output
		}(i)
	}
	wg.Wait()

	for _, result := range results {
		assert.Equal(t, expected, result)
	}
}
