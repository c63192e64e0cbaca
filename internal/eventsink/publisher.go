package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"suggestbot/internal/config"
	"suggestbot/internal/logging"
	"suggestbot/internal/requests"
)

const (
	publishTimeout   = 5 * time.Second
	drainTimeout     = 10 * time.Second
	defaultQueueSize = 256
)

// Message is the JSON document written for each audit event.
type Message struct {
	EventID   string          `json:"event_id"`
	RequestID string          `json:"request_id"`
	Timestamp string          `json:"ts"`
	ActorID   string          `json:"actor_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Encode converts an audit event into its wire form.
func Encode(event requests.Event) ([]byte, error) {
	msg := Message{
		EventID:   event.ID,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
		EventType: string(event.Type),
	}
	if !event.Timestamp.IsZero() {
		msg.Timestamp = event.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if payload := strings.TrimSpace(event.PayloadJSON); payload != "" {
		msg.Payload = json.RawMessage(payload)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal event message: %w", err)
	}
	return data, nil
}

// Publisher ships audit events somewhere outside the database.
type Publisher interface {
	Publish(ctx context.Context, event requests.Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by request id, so every event for one
// request lands on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafka builds a synchronous publisher for cfg.
func NewKafka(cfg config.Events, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaPublisher(w, logging.NewComponentLogger(logger, "eventsink").With(logging.String("topic", cfg.KafkaTopic)))
}

func newKafkaPublisher(w messageWriter, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, event requests.Event) error {
	value, err := Encode(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(event.RequestID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("event published",
		logging.String(logging.FieldRequestID, event.RequestID),
		logging.String("audit_event", string(event.Type)),
		logging.Int("value_size", len(value)),
	)
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// New returns a Kafka publisher when brokers are configured and a no-op
// publisher otherwise.
func New(cfg *config.Config, logger *slog.Logger) Publisher {
	if cfg == nil || len(cfg.Events.KafkaBrokers) == 0 || strings.TrimSpace(cfg.Events.KafkaTopic) == "" {
		return Noop{}
	}
	return NewKafka(cfg.Events, logger)
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, requests.Event) error { return nil }
func (Noop) Close() error                                  { return nil }

// Forwarder feeds store events to a publisher from a bounded queue on one
// background goroutine, so a slow or unreachable broker never stalls the
// caller. Events that do not fit are dropped and logged; they remain in the
// database either way.
type Forwarder struct {
	publisher Publisher
	logger    *slog.Logger
	queue     chan requests.Event

	mu     sync.RWMutex
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	dropped atomic.Int64
}

// NewForwarder starts a forwarder for p. It returns nil for a no-op publisher.
func NewForwarder(p Publisher, logger *slog.Logger, queueSize int) *Forwarder {
	if p == nil {
		return nil
	}
	if _, ok := p.(Noop); ok {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Forwarder{
		publisher: p,
		logger:    logger,
		queue:     make(chan requests.Event, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go f.loop()
	return f
}

// Hook returns the store event hook. It never blocks.
func (f *Forwarder) Hook() requests.EventHook {
	if f == nil {
		return nil
	}
	return f.enqueue
}

// Dropped reports how many events were discarded because the queue was full.
func (f *Forwarder) Dropped() int64 {
	if f == nil {
		return 0
	}
	return f.dropped.Load()
}

func (f *Forwarder) enqueue(ctx context.Context, event requests.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		f.drop(ctx, event, "forwarder closed")
		return
	}
	select {
	case f.queue <- event:
	default:
		f.drop(ctx, event, "queue full")
	}
}

func (f *Forwarder) drop(ctx context.Context, event requests.Event, reason string) {
	f.dropped.Add(1)
	logging.WarnWithContext(logging.WithContext(ctx, f.logger), "audit event dropped", "event_publish_dropped",
		logging.String(logging.FieldRequestID, event.RequestID),
		logging.String("audit_event", string(event.Type)),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "check events.kafka_brokers connectivity"),
		logging.String(logging.FieldImpact, "event is stored locally but missing from the stream"),
	)
}

func (f *Forwarder) loop() {
	defer close(f.done)
	for event := range f.queue {
		if f.ctx.Err() != nil {
			f.dropped.Add(1)
			continue
		}
		f.publish(event)
	}
}

func (f *Forwarder) publish(event requests.Event) {
	ctx, cancel := context.WithTimeout(f.ctx, publishTimeout)
	defer cancel()
	if err := f.publisher.Publish(ctx, event); err != nil {
		logging.WarnWithContext(f.logger, "audit event not published", "event_publish_failed",
			logging.String(logging.FieldRequestID, event.RequestID),
			logging.String("audit_event", string(event.Type)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check events.kafka_brokers connectivity"),
			logging.String(logging.FieldImpact, "event is stored locally but missing from the stream"),
		)
	}
}

// Close stops accepting events and drains the queue. Publishing is cut off
// after drainTimeout and the remainder counted as dropped.
func (f *Forwarder) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-f.done:
	case <-timer.C:
		f.cancel()
		<-f.done
	}
	f.cancel()
	if n := f.dropped.Load(); n > 0 {
		logging.WarnWithContext(f.logger, "audit events dropped during run", "event_publish_dropped",
			logging.Int64("dropped", n),
			logging.String(logging.FieldErrorHint, "check events.kafka_brokers connectivity"),
		)
	}
	return nil
}
