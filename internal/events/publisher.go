// Package events pushes pop notifications onto external brokers.
// Publisher is a direct, synchronous push; Broadcaster (broadcaster.go)
// is a periodic replay of the durable audit log.
package events

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher sends one message per popped value as it happens. It is
// best effort: if the write fails the value has already left the
// queue, so callers that need redelivery should pair Publisher with
// Broadcaster's replay-from-audit-log path instead of relying on
// Publisher alone.
type Publisher[T any] struct {
	writer *kafka.Writer
	encode func(T) []byte
}

// NewPublisher builds a synchronous writer requiring acks from every
// in-sync replica, batched with a short timeout so a single slow pop
// doesn't wait indefinitely for a batch to fill. encode converts a
// popped value to the message body.
func NewPublisher[T any](brokers []string, topic string, encode func(T) []byte) *Publisher[T] {
	return &Publisher[T]{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		encode: encode,
	}
}

// PublishPop sends one pop event, keyed on its sequence number so
// consumers can dedupe. seq is encoded big-endian so keys sort the same
// way Kafka's own byte-lexical key ordering would expect.
func (p *Publisher[T]) PublishPop(ctx context.Context, seq uint64, value T) error {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: p.encode(value),
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher[T]) Close() error {
	return p.writer.Close()
}
