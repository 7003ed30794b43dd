// Package kafka publishes conversation turn events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/chatzilla/pkg/eventstream"
)

// DefaultTopic is used when Config.Topic is empty.
const DefaultTopic = "chatzilla.turns"

// Config holds the Kafka publisher settings.
type Config struct {
	// Brokers is the list of bootstrap broker addresses ("host:port").
	Brokers []string

	// Topic receives one message per completed turn.
	Topic string

	// WriteTimeout bounds a single publish. Defaults to 10s.
	WriteTimeout time.Duration
}

// messageWriter is the part of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes TurnEvents as JSON, keyed by conversation ID so every
// turn of a conversation lands on the same partition in order.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a Kafka-backed publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	timeout := cfg.WriteTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return newPublisher(&kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}), nil
}

func newPublisher(w messageWriter) *Publisher {
	return &Publisher{writer: w}
}

// PublishTurn writes event to the configured topic.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling turn event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.ConversationID),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing turn event: %w", err)
	}

	return nil
}

// Close flushes pending writes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
