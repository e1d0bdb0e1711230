package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
)

const (
	kafkaQueueSize    = 256
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = 5 * time.Second
)

var errKafkaClosed = errors.New("kafka publisher closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes the same RowChanged envelope as Publisher to a Kafka
// topic, keyed by partition key so a user's changes stay ordered. Notify only
// enqueues; a single background writer delivers in order, so a slow broker
// never holds up the mutation that produced the change.
type KafkaPublisher struct {
	w      messageWriter
	seq    Sequencer
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string, seq Sequencer, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           kafkaBatchTimeout,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, seq, logger, kafkaQueueSize)
}

func newKafkaPublisher(w messageWriter, seq Sequencer, logger *zap.Logger, queueSize int) *KafkaPublisher {
	p := &KafkaPublisher{
		w:      w,
		seq:    seq,
		logger: logger,
		queue:  make(chan kafka.Message, queueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
		err := p.w.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.logger.Warn("kafka write failed",
				zap.String("key", string(msg.Key)),
				zap.String("event_id", header(msg, "event-id")),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting changes, flushes what is queued and closes the
// writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.w.Close()
}

func (p *KafkaPublisher) Notify(ctx context.Context, c notify.Change) error {
	env, body, err := buildRowChanged(ctx, c, p.seq)
	if err != nil {
		return err
	}

	headers := []kafka.Header{
		{Key: "event-name", Value: []byte(env.EventName)},
		{Key: "event-id", Value: []byte(env.EventID)},
		{Key: "correlation-id", Value: []byte(env.CorrelationID)},
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	msg := kafka.Message{
		Key:     []byte(env.PartitionKey),
		Value:   body,
		Headers: headers,
		Time:    env.OccurredAt,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("kafka %s: %w", env.PartitionKey, errKafkaClosed)
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return fmt.Errorf("kafka queue full, dropped %s", env.PartitionKey)
	}
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
