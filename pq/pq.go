// Package pq is the public surface of the lock-free concurrent
// min-priority queue: construct, push, pop, size, empty, destroy. It is
// a thin wrapper over internal/skiplist, which does the actual work of
// ordering entries and coordinating with internal/reclaim for safe
// concurrent deletion.
package pq

import (
	"cmp"

	"github.com/jayshah2111/lock-free-concurrent-pq/internal/skiplist"
)

// Options tunes the queue's skip-list shape. The zero value uses the
// package defaults (MaxLevel 16, Probability 0.5).
type Options struct {
	MaxLevel    int
	Probability float64
}

// Queue is a concurrent, lock-free min-priority queue over any totally
// ordered key type. Many goroutines may call Push and Pop on the same
// Queue concurrently without external locking.
//
// Queue is not copyable; every constructor returns a pointer and every
// method is defined on *Queue.
type Queue[T cmp.Ordered] struct {
	sl *skiplist.SkipList[T]
}

// New constructs an empty queue bound to a private reclamation domain.
func New[T cmp.Ordered](opts Options) *Queue[T] {
	return &Queue[T]{
		sl: skiplist.New[T](skiplist.Options{
			MaxLevel:    opts.MaxLevel,
			Probability: opts.Probability,
		}),
	}
}

// Push inserts value into the queue. It never blocks.
func (q *Queue[T]) Push(value T) {
	q.sl.Push(value)
}

// Pop removes and returns the minimum value, or reports false if the
// queue was observed empty. It never blocks.
func (q *Queue[T]) Pop() (T, bool) {
	return q.sl.Pop()
}

// Len returns an approximate count of live entries. Not linearizable
// with concurrent Push/Pop.
func (q *Queue[T]) Len() int {
	return q.sl.Len()
}

// Empty reports whether Len() is approximately zero.
func (q *Queue[T]) Empty() bool {
	return q.sl.Empty()
}

// Drain pops every remaining value in increasing order, invoking fn for
// each, until the queue reports empty. Meant for shutdown paths, not
// steady-state consumption.
func (q *Queue[T]) Drain(fn func(T)) {
	q.sl.Drain(fn)
}

// Close releases the queue's internal reclamation bookkeeping. Must
// only be called once no goroutine is performing Push or Pop on the
// queue.
func (q *Queue[T]) Close() {
	q.sl.Close()
}
