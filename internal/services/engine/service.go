// Package engine hosts one cipher chain for the HTTP and CLI front ends.
//
// A Service owns a chain.Manager and a pipeline.Pipeline and serializes every
// call behind one mutex, so a Service may be shared between requests. Chain
// edits clear the runtime state of the module they touched. Whole-message
// processing starts from a clean state, while keyboard processing
// (ProcessCharacter) continues from wherever the previous symbol left the
// rotors until ResetState is called.
package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/chain"
	"github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/kafka"
	"github.com/Ramsey-B/enygma/pkg/metrics"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/persistence"
	"github.com/Ramsey-B/enygma/pkg/pipeline"
	"github.com/Ramsey-B/enygma/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Publisher receives an event for every processed message.
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.ProcessedMessage) error
}

type Service struct {
	mu        sync.Mutex
	logger    ectologger.Logger
	manager   *chain.Manager
	pipeline  *pipeline.Pipeline
	store     persistence.Store
	publisher Publisher
	metrics   *metrics.Metrics
	messages  persistence.Messages
	position  int
	now       func() time.Time
}

type Option func(*Service)

func WithStore(store persistence.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithManager replaces the default manager, for example to fix module IDs.
func WithManager(manager *chain.Manager) Option {
	return func(s *Service) {
		s.manager = manager
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(logger ectologger.Logger, opts ...Option) *Service {
	s := &Service{
		logger:   logger,
		pipeline: pipeline.NewPipeline(logger),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.manager == nil {
		s.manager = chain.NewManager(logger)
	}
	return s
}

// State returns a snapshot of the chain, presets and character set.
func (s *Service) State() chain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Snapshot()
}

func (s *Service) Module(id string) (models.ModuleConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Module(id)
}

// Messages returns the last processed input and output.
func (s *Service) Messages() persistence.Messages {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages
}

func (s *Service) PresetNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.PresetNames()
}

// ProcessMessage runs text through the chain from a clean state. Runtime state
// is cleared again afterwards so keyboard input starts from position 0 with
// the rotors at their initial positions.
func (s *Service) ProcessMessage(ctx context.Context, text string) pipeline.MessageResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "EngineService.ProcessMessage", attribute.Int("length", len(text)))
	defer span.End()

	start := time.Now()
	set := s.manager.CharacterSet()
	modules := s.manager.Modules()
	result := s.pipeline.ProcessMessage(ctx, text, modules, set)
	s.pipeline.Reset()
	s.position = 0
	s.messages = persistence.Messages{Input: text, Output: result.Output}

	s.metrics.ObserveMessage(string(set), time.Since(start))
	for _, record := range result.History {
		s.metrics.ObserveSymbol(string(record.ModuleKind))
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"active_preset": s.manager.ActivePreset(),
		"character_set": set,
		"modules":       len(modules),
		"length":        len([]rune(text)),
	}).Debug("processed message")

	s.publish(ctx, text, result, modules)
	return result
}

func (s *Service) publish(ctx context.Context, text string, result pipeline.MessageResult, modules []models.ModuleConfig) {
	if s.publisher == nil {
		return
	}
	event := kafka.NewProcessedMessage(s.manager.ActivePreset(), string(s.manager.CharacterSet()), modules, text, result.Output, len(result.History))
	event.TraceID = tracing.GetTraceID(ctx)
	event.SpanID = tracing.GetSpanID(ctx)

	// a failed publish never fails the request
	err := s.publisher.Publish(ctx, event)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to publish processed message")
	}
	s.metrics.ObservePublish(err)
}

// ProcessCharacter processes one symbol at the next keyboard position without
// resetting state.
func (s *Service) ProcessCharacter(ctx context.Context, symbol rune) pipeline.CharacterResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.pipeline.ProcessCharacter(ctx, symbol, s.position, s.manager.Modules(), s.manager.CharacterSet())
	s.position++
	for _, record := range result.History {
		s.metrics.ObserveSymbol(string(record.ModuleKind))
	}
	return result
}

// ResetState clears rotor positions, transposition blocks and the keyboard
// position.
func (s *Service) ResetState(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pipeline.Reset()
	s.position = 0
	s.logger.WithContext(ctx).Debug("runtime state reset")
}

func (s *Service) RotorPositions(id string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	module, err := s.manager.Module(id)
	if err != nil {
		return nil, err
	}
	if module.Kind != models.KindRotors {
		return nil, errors.NewChainError(errors.CodeInvalid, "module is not a rotor set").AddModule(id).AddKind(string(module.Kind))
	}
	return s.pipeline.RotorPositions(id), nil
}

// edit runs a chain mutation under the lock. A non-empty moduleID clears only
// that module's runtime state; otherwise all state is cleared.
func (s *Service) edit(ctx context.Context, operation, moduleID string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn()
	s.metrics.ObserveEdit(operation, err)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("operation", operation).Debug("chain edit rejected")
		return err
	}

	if moduleID != "" {
		s.pipeline.ResetModule(moduleID)
	} else {
		s.pipeline.Reset()
		s.position = 0
	}
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"operation":     operation,
		"module_id":     moduleID,
		"active_preset": s.manager.ActivePreset(),
	}).Info("chain edited")
	return nil
}

func (s *Service) AddModule(ctx context.Context, kind models.ModuleKind) (models.ModuleConfig, error) {
	var module models.ModuleConfig
	err := s.edit(ctx, "add_module", "", func() error {
		var err error
		module, err = s.manager.AddModule(kind)
		return err
	})
	return module, err
}

func (s *Service) RemoveModule(ctx context.Context, id string) error {
	return s.edit(ctx, "remove_module", id, func() error {
		return s.manager.RemoveModule(id)
	})
}

func (s *Service) MoveModule(ctx context.Context, id string, direction chain.Direction) error {
	return s.edit(ctx, "move_module", "", func() error {
		return s.manager.MoveModule(id, direction)
	})
}

func (s *Service) ReorderModule(ctx context.Context, from, to int) error {
	return s.edit(ctx, "reorder_module", "", func() error {
		return s.manager.ReorderModule(from, to)
	})
}

func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return s.edit(ctx, "set_enabled", id, func() error {
		return s.manager.SetEnabled(id, enabled)
	})
}

func (s *Service) UpdateModule(ctx context.Context, id string, payload models.ModulePayload) error {
	return s.edit(ctx, "update_module", id, func() error {
		return s.manager.UpdateModule(id, payload)
	})
}

func (s *Service) SetCharacterSet(ctx context.Context, set alphabet.CharacterSet) error {
	return s.edit(ctx, "set_character_set", "", func() error {
		return s.manager.SetCharacterSet(set)
	})
}

func (s *Service) ConnectPlugboardPair(ctx context.Context, id, from, to string) error {
	return s.edit(ctx, "connect_plugboard_pair", id, func() error {
		return s.manager.ConnectPlugboardPair(id, from, to)
	})
}

func (s *Service) DisconnectPlugboardSymbol(ctx context.Context, id, symbol string) error {
	return s.edit(ctx, "disconnect_plugboard_symbol", id, func() error {
		return s.manager.DisconnectPlugboardSymbol(id, symbol)
	})
}

func (s *Service) ResetPlugboard(ctx context.Context, id string) error {
	return s.edit(ctx, "reset_plugboard", id, func() error {
		return s.manager.ResetPlugboard(id)
	})
}

func (s *Service) AddRotor(ctx context.Context, id string) error {
	return s.edit(ctx, "add_rotor", id, func() error {
		return s.manager.AddRotor(id)
	})
}

func (s *Service) RemoveRotor(ctx context.Context, id string, slot int) error {
	return s.edit(ctx, "remove_rotor", id, func() error {
		return s.manager.RemoveRotor(id, slot)
	})
}

func (s *Service) SetRotorType(ctx context.Context, id string, slot int, rotor models.RotorType) error {
	return s.edit(ctx, "set_rotor_type", id, func() error {
		return s.manager.SetRotorType(id, slot, rotor)
	})
}

func (s *Service) SetRingSetting(ctx context.Context, id string, slot, ring int) error {
	return s.edit(ctx, "set_ring_setting", id, func() error {
		return s.manager.SetRingSetting(id, slot, ring)
	})
}

func (s *Service) LoadPreset(ctx context.Context, name string) error {
	return s.edit(ctx, "load_preset", "", func() error {
		return s.manager.LoadPreset(name)
	})
}

// SavePreset does not touch the chain, so runtime state is kept.
func (s *Service) SavePreset(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.manager.SavePreset(name)
	s.metrics.ObserveEdit("save_preset", err)
	return err
}

func (s *Service) DeletePreset(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.manager.DeletePreset(name)
	s.metrics.ObserveEdit("delete_preset", err)
	return err
}

func (s *Service) requireStore() error {
	if s.store == nil {
		return errors.NewChainError(errors.CodeConflict, "no configuration store is configured")
	}
	return nil
}

// Save stores the current state and messages under name.
func (s *Service) Save(ctx context.Context, name string) (persistence.SavedConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "EngineService.Save")
	defer span.End()

	if err := s.requireStore(); err != nil {
		return persistence.SavedConfiguration{}, err
	}

	cfg := persistence.New(name, s.manager.Snapshot(), s.messages, s.now())
	err := s.store.Save(ctx, cfg)
	s.metrics.ObserveStore("save", err)
	if err != nil {
		return persistence.SavedConfiguration{}, err
	}
	s.logger.WithContext(ctx).WithField("name", name).Info("configuration saved")
	return cfg, nil
}

// Load restores a saved configuration. Nothing changes when it is missing or
// corrupt.
func (s *Service) Load(ctx context.Context, name string) (persistence.SavedConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "EngineService.Load")
	defer span.End()

	if err := s.requireStore(); err != nil {
		return persistence.SavedConfiguration{}, err
	}

	cfg, ok := s.store.Load(ctx, name)
	if !ok {
		s.metrics.ObserveStore("load", errors.NewChainError(errors.CodeNotFound, "not loaded"))
		return persistence.SavedConfiguration{}, errors.NewChainErrorf(errors.CodeNotFound, "no usable configuration named '%s'", name).AddField("name")
	}
	s.metrics.ObserveStore("load", nil)

	s.apply(cfg)
	s.logger.WithContext(ctx).WithField("name", name).Info("configuration loaded")
	return cfg, nil
}

func (s *Service) apply(cfg persistence.SavedConfiguration) {
	s.manager.Restore(cfg.State.ManagerState())
	s.messages = cfg.State.Messages
	s.pipeline.Reset()
	s.position = 0
}

func (s *Service) ListSaved(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStore(); err != nil {
		return nil, err
	}
	names, err := s.store.List(ctx)
	s.metrics.ObserveStore("list", err)
	return names, err
}

func (s *Service) DeleteSaved(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStore(); err != nil {
		return err
	}
	err := s.store.Delete(ctx, name)
	s.metrics.ObserveStore("delete", err)
	return err
}

// Export writes the current state and messages as a configuration named name.
func (s *Service) Export(w io.Writer, name string) error {
	s.mu.Lock()
	cfg := persistence.New(name, s.manager.Snapshot(), s.messages, s.now())
	s.mu.Unlock()

	if err := persistence.ValidateName(name); err != nil {
		return err
	}
	return persistence.Export(w, cfg)
}

// Import reads an exported configuration and applies it. A payload that cannot
// be decoded leaves the current state untouched.
func (s *Service) Import(ctx context.Context, r io.Reader) (persistence.SavedConfiguration, error) {
	cfg, err := persistence.Import(r)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("rejected imported configuration")
		return persistence.SavedConfiguration{}, err
	}

	s.Apply(ctx, cfg)
	return cfg, nil
}

// Apply replaces the chain, presets, character set and messages with those of
// cfg and clears all runtime state.
func (s *Service) Apply(ctx context.Context, cfg persistence.SavedConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(cfg)
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"name":          cfg.Name,
		"active_preset": cfg.State.ActivePresetName,
		"modules":       len(cfg.State.ModuleChain),
	}).Info("configuration applied")
}
