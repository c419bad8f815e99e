// Package kafka publishes tally reconcile and backdating events to a Kafka
// topic as JSON messages keyed by stream.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/stream"
)

// DefaultTopic is the topic used when none is configured.
const DefaultTopic = "tally.events"

// Event types.
const (
	EventStreamReconciled = "stream.reconciled"
	EventEntryBackdated   = "entry.backdated"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Publisher)(nil)
	_ plugin.OnShutdown         = (*Publisher)(nil)
	_ plugin.OnBackdatedEntry   = (*Publisher)(nil)
	_ plugin.OnStreamReconciled = (*Publisher)(nil)
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the message envelope.
type Event struct {
	Type   string          `json:"type"`
	Stream stream.Key      `json:"stream"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

type backdated struct {
	Entry *entry.Entry `json:"entry"`
	Tail  *entry.Entry `json:"tail"`
}

// Publisher is a tally plugin that writes events to Kafka.
type Publisher struct {
	writer         MessageWriter
	logger         *slog.Logger
	skipConsistent bool
	now            func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithWriter replaces the Kafka writer, mainly for tests.
func WithWriter(w MessageWriter) Option {
	return func(p *Publisher) { p.writer = w }
}

// WithSkipConsistent drops stream.reconciled events for runs that found no
// drift.
func WithSkipConsistent(skip bool) Option {
	return func(p *Publisher) { p.skipConsistent = skip }
}

// NewPublisher creates a publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string, opts ...Option) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	p := &Publisher{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "kafka-publisher" }

// OnBackdatedEntry implements plugin.OnBackdatedEntry.
func (p *Publisher) OnBackdatedEntry(ctx context.Context, e, tail *entry.Entry) error {
	return p.publish(ctx, EventEntryBackdated, e.StreamKey, backdated{Entry: e, Tail: tail})
}

// OnStreamReconciled implements plugin.OnStreamReconciled.
func (p *Publisher) OnStreamReconciled(ctx context.Context, report *stream.Report) error {
	if p.skipConsistent && report.Status() == stream.StatusConsistent {
		return nil
	}
	return p.publish(ctx, EventStreamReconciled, report.Key, report)
}

// OnShutdown implements plugin.OnShutdown.
func (p *Publisher) OnShutdown(_ context.Context) error {
	return p.writer.Close()
}

func (p *Publisher) publish(ctx context.Context, typ string, key stream.Key, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafka: encode %s: %w", typ, err)
	}
	value, err := json.Marshal(Event{
		Type:   typ,
		Stream: key,
		Time:   p.now().UTC(),
		Data:   data,
	})
	if err != nil {
		return fmt.Errorf("kafka: encode envelope: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(typ)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka: publish %s: %w", typ, err)
	}

	p.logger.Debug("event published", "type", typ, "stream", key)
	return nil
}
