package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// ModuleSummary identifies a module without its key material.
type ModuleSummary struct {
	ID      string            `json:"id"`
	Type    models.ModuleKind `json:"type"`
	Enabled bool              `json:"enabled"`
}

// ProcessedMessage is published after a whole message went through a chain.
// The input text is not included, only its length.
type ProcessedMessage struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	ActivePreset string          `json:"active_preset"`
	CharacterSet string          `json:"character_set"`
	Modules      []ModuleSummary `json:"modules"`
	InputLength  int             `json:"input_length"`
	Output       string          `json:"output"`
	HistorySize  int             `json:"history_size"`
	TraceID      string          `json:"trace_id,omitempty"`
	SpanID       string          `json:"span_id,omitempty"`
}

// NewProcessedMessage builds an event for one processed message.
func NewProcessedMessage(activePreset, characterSet string, chain []models.ModuleConfig, input, output string, historySize int) *ProcessedMessage {
	modules := make([]ModuleSummary, len(chain))
	for i, module := range chain {
		modules[i] = ModuleSummary{ID: module.ID, Type: module.Kind, Enabled: module.Enabled}
	}
	return &ProcessedMessage{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		ActivePreset: activePreset,
		CharacterSet: characterSet,
		Modules:      modules,
		InputLength:  len([]rune(input)),
		Output:       output,
		HistorySize:  historySize,
	}
}

func (m *ProcessedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageHeaders are copied onto every published event for filtering.
type MessageHeaders struct {
	ActivePreset string
	CharacterSet string
	TraceParent  string
}

func (h MessageHeaders) ToKafkaHeaders() []kafka.Header {
	headers := make([]kafka.Header, 0, 3)
	if h.ActivePreset != "" {
		headers = append(headers, kafka.Header{Key: "active_preset", Value: []byte(h.ActivePreset)})
	}
	if h.CharacterSet != "" {
		headers = append(headers, kafka.Header{Key: "character_set", Value: []byte(h.CharacterSet)})
	}
	if h.TraceParent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(h.TraceParent)})
	}
	return headers
}

// ExtractHeaders reads MessageHeaders back from Kafka headers.
func ExtractHeaders(headers []kafka.Header) MessageHeaders {
	var h MessageHeaders
	for _, header := range headers {
		switch header.Key {
		case "active_preset":
			h.ActivePreset = string(header.Value)
		case "character_set":
			h.CharacterSet = string(header.Value)
		case "traceparent":
			h.TraceParent = string(header.Value)
		}
	}
	return h
}
