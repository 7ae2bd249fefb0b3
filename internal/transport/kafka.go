// v0
// internal/transport/kafka.go
package transport

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is satisfied by *kafka.Writer and
// *circuitbreaker.CBKafkaWriter.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter returns a writer keyed by run id, so one run's events stay
// on one partition in order.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// KafkaSink publishes every event to one topic with the event kind in the
// "kind" header.
type KafkaSink struct {
	w      messageWriter
	closer interface{ Close() error }
	now    func() time.Time
}

// NewKafkaSink publishes through w. closer, when non-nil, is closed with
// the sink; it is normally the *kafka.Writer that w wraps.
func NewKafkaSink(w messageWriter, closer interface{ Close() error }) *KafkaSink {
	return &KafkaSink{w: w, closer: closer, now: time.Now}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, kind Kind, key string, payload []byte) error {
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Time:    s.now(),
		Headers: []kafka.Header{{Key: "kind", Value: []byte(kind)}},
	})
}

func (s *KafkaSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
