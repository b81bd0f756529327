// Package kafka publishes activity events to a Kafka topic using segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/inkwellhq/inkwell/pkg/eventstream"
	"github.com/inkwellhq/inkwell/pkg/logger"
)

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Zero uses the kafka-go default.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes activity events as JSON messages keyed by user ID so a
// single user's activity stays ordered within a partition.
type Publisher struct {
	topic  string
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher validates the config and creates a Kafka publisher.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           c.WriteTimeout,
	}

	return newPublisher(c.Topic, w, c.Logger), nil
}

func newPublisher(topic string, w messageWriter, log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{topic: topic, writer: w, logger: log}
}

// PublishActivity serializes the event and writes it to the topic.
func (p *Publisher) PublishActivity(ctx context.Context, event *eventstream.ActivityEvent) error {
	if event == nil {
		return eventstream.ErrNilActivityEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling activity event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Activity.UserID),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: fmt.Appendf(nil, "%d", event.SchemaVersion)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}

	p.logger.Debug("activity event published",
		"topic", p.topic,
		"event_id", event.EventID,
		"action", event.Activity.Action,
	)
	return nil
}

// Close flushes pending writes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
