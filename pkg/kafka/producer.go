package kafka

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes processed-message events to Kafka
type Producer struct {
	writer MessageWriter
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a producer backed by a kafka.Writer
func NewProducer(config ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("a topic is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		MaxAttempts:            config.MaxAttempts,
		WriteTimeout:           config.WriteTimeout,
		Async:                  config.Async,
		Compression:            compression(config.Compression),
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, config.Topic, logger), nil
}

// NewProducerWithWriter creates a producer on an existing writer.
func NewProducerWithWriter(writer MessageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

func compression(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}

// Publish publishes a processed-message event keyed by its active preset.
func (p *Producer) Publish(ctx context.Context, msg *ProcessedMessage) error {
	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	headers := MessageHeaders{
		ActivePreset: msg.ActivePreset,
		CharacterSet: msg.CharacterSet,
	}
	if msg.TraceID != "" {
		headers.TraceParent = fmt.Sprintf("00-%s-%s-01", msg.TraceID, msg.SpanID)
	}

	kafkaMsg := kafka.Message{
		Key:     []byte(msg.ActivePreset),
		Value:   data,
		Headers: headers.ToKafkaHeaders(),
		Time:    msg.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("topic", p.topic).Error("Failed to publish processed message")
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}
