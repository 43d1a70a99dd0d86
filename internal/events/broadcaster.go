package events

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"github.com/jayshah2111/lock-free-concurrent-pq/internal/audit"
)

// Event is the wire payload a Broadcaster publishes for each replayed
// audit record.
type Event struct {
	Seq      uint64 `json:"seq"`
	PoppedAt int64  `json:"poppedAt"`
	Value    []byte `json:"value"`
}

// Broadcaster periodically replays internal/audit's durable log onto a
// Kafka topic via sarama. It tracks one in-memory cursor over the
// append-only log rather than a per-record state field, since a pop has
// no further lifecycle once it has been recorded.
type Broadcaster[T any] struct {
	log      *audit.Log[T]
	producer sarama.SyncProducer
	topic    string
	next     atomic.Uint64
}

// NewBroadcaster configures a synchronous sarama producer: acks from
// every replica, a handful of retries before giving up on a single
// send.
func NewBroadcaster[T any](l *audit.Log[T], brokers []string, topic string) (*Broadcaster[T], error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster[T]{
		log:      l,
		producer: producer,
		topic:    topic,
	}, nil
}

// Start launches the replay loop in a new goroutine, ticking every 250
// milliseconds until ctx is cancelled.
func (b *Broadcaster[T]) Start(ctx context.Context) {
	log.Println("[events] broadcaster started")

	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.replayOnce()
			}
		}
	}()
}

// replayOnce scans the audit log from the last successfully published
// sequence and publishes everything new. A send failure stops the scan
// early so the cursor does not advance past the failed record; the next
// tick retries from the same point.
func (b *Broadcaster[T]) replayOnce() {
	from := b.next.Load()
	_ = b.log.ScanFrom(from, func(seq uint64, poppedAt int64, value T) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil // unserializable value, skip rather than stall forever
		}
		payload, err := json.Marshal(Event{Seq: seq, PoppedAt: poppedAt, Value: raw})
		if err != nil {
			return nil
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			return err // stop here; retry this seq on the next tick
		}
		b.next.Store(seq + 1)
		return nil
	})
}

// Close shuts down the underlying sarama producer.
func (b *Broadcaster[T]) Close() error {
	return b.producer.Close()
}
