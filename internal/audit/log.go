// Package audit provides a durable, append-only record of every value
// popped from a queue, keyed by a monotonic sequence number.
package audit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Codec converts a queue's element type to and from the bytes the log
// persists. Callers supply one because the audit log has no way to know
// how pq.Queue[T]'s T should be serialized.
type Codec[T any] struct {
	Encode func(T) []byte
	Decode func([]byte) (T, error)
}

// Log is an append-only, durable record of popped values. It is safe
// for concurrent use; pebble.DB itself guarantees that.
type Log[T any] struct {
	db    *pebble.DB
	codec Codec[T]
}

// Open opens (creating if absent) a pebble-backed audit log rooted at
// dir. Writes are synced.
func Open[T any](dir string, codec Codec[T]) (*Log[T], error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false,
	})
	if err != nil {
		return nil, err
	}
	return &Log[T]{db: db, codec: codec}, nil
}

// Close releases the underlying pebble handle.
func (l *Log[T]) Close() error {
	return l.db.Close()
}

// Record durably appends one (sequence, poppedAt, value) triple. seq
// must be monotonically increasing across calls; the log does not
// enforce this itself.
func (l *Log[T]) Record(seq uint64, poppedAt int64, value T) error {
	payload := l.codec.Encode(value)
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf[:8], uint64(poppedAt))
	copy(buf[8:], payload)
	return l.db.Set(keyFor(seq), buf, pebble.Sync)
}

// Get returns the poppedAt timestamp and value recorded for seq.
func (l *Log[T]) Get(seq uint64) (poppedAt int64, value T, err error) {
	val, closer, err := l.db.Get(keyFor(seq))
	if err != nil {
		var zero T
		return 0, zero, err
	}
	defer closer.Close()
	return l.decode(val)
}

// ScanFrom replays every record with sequence >= from, in increasing
// order, invoking fn for each. Replay stops at the first error fn
// returns.
func (l *Log[T]) ScanFrom(from uint64, fn func(seq uint64, poppedAt int64, value T) error) error {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: keyFor(from),
		UpperBound: []byte("audit/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		poppedAt, value, err := l.decode(iter.Value())
		if err != nil {
			return err
		}
		if err := fn(seq, poppedAt, value); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (l *Log[T]) decode(raw []byte) (int64, T, error) {
	if len(raw) < 8 {
		var zero T
		return 0, zero, errors.New("audit: record too short")
	}
	poppedAt := int64(binary.BigEndian.Uint64(raw[:8]))
	value, err := l.codec.Decode(raw[8:])
	if err != nil {
		var zero T
		return 0, zero, err
	}
	return poppedAt, value, nil
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("audit/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("audit/"))), "%d", &seq)
	return seq, err
}
