package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

var (
	ErrBufferFull      = errors.New("event buffer full")
	ErrPublisherClosed = errors.New("event publisher closed")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher buffers events and writes them from a single goroutine.
type KafkaPublisher struct {
	w       messageWriter
	log     logrus.FieldLogger
	inbox chan kafka.Message
	done  chan struct{}

	// mu guards closed and the close of inbox against concurrent sends.
	mu     sync.RWMutex
	closed bool
}

func NewKafkaPublisher(brokers []string, topic string, buf int, log logrus.FieldLogger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(w, buf, log)
}

func newKafkaPublisher(w messageWriter, buf int, log logrus.FieldLogger) *KafkaPublisher {
	return &KafkaPublisher{
		w:     w,
		log:   log,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
}

// Start runs the write loop until Close drains the buffer.
func (p *KafkaPublisher) Start() {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.log.WithError(err).WithField("key", string(m.Key)).Warn("kafka write failed")
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.log.WithError(err).Warn("kafka writer close failed")
		}
	}()
}

// Publish queues the event keyed by the entity it concerns, so events for one
// order land on one partition in order. It never blocks.
func (p *KafkaPublisher) Publish(_ context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(env.PartitionKey()),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close flushes queued events and waits for the writer to finish.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
	return nil
}
