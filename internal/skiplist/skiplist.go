// Package skiplist implements a lock-free, multi-level ordered index
// whose bottom level is the sorted sequence of live entries. The
// companion hazard-pointer domain in internal/reclaim is what makes
// unlinking a node safe while another goroutine may still be
// dereferencing it.
//
// Nothing here is exported outside the module; pq.Queue is the public
// surface.
package skiplist

import (
	"cmp"
	"sync/atomic"

	"github.com/jayshah2111/lock-free-concurrent-pq/internal/reclaim"
)

// Hazard slot assignments for a single traversal. Two slots cover the
// (pred, curr) pair find() walks with; a third covers the head
// successor Pop inspects before it commits to a candidate.
const (
	slotCurr      = 0
	slotPred      = 1
	slotCandidate = 2
)

// Options tunes the skip list's shape. The zero value resolves to
// DefaultMaxLevel/DefaultProbability.
type Options struct {
	MaxLevel    int
	Probability float64
}

func (o Options) withDefaults() Options {
	if o.MaxLevel <= 0 {
		o.MaxLevel = DefaultMaxLevel
	}
	if o.Probability <= 0 || o.Probability >= 1 {
		o.Probability = DefaultProbability
	}
	return o
}

// SkipList is a concurrent min-ordered skip list. The zero value is not
// usable; construct with New.
type SkipList[T cmp.Ordered] struct {
	head, tail *node[T]
	domain     *reclaim.Domain[node[T]]
	count      atomic.Int64
	opts       Options
}

// New constructs an empty skip list bound to a fresh, private
// reclamation domain.
func New[T cmp.Ordered](opts Options) *SkipList[T] {
	opts = opts.withDefaults()
	s := &SkipList[T]{opts: opts}
	s.head = newSentinel[T](opts.MaxLevel)
	s.tail = newSentinel[T](opts.MaxLevel)
	for level := 0; level <= opts.MaxLevel; level++ {
		s.head.next[level].Store(s.tail)
	}
	s.domain = reclaim.New[node[T]](nil)
	return s
}

// less orders by value. Callers check curr == s.tail by identity
// before ever calling less, since the tail sentinel's value is a zero
// value with no meaningful ordering of its own.
func (s *SkipList[T]) less(a, b T) bool { return a < b }

// find walks from head at the top level down to 0, populating preds
// and succs (both length opts.MaxLevel+1). Marked nodes encountered
// along the way are helped off the list with a CAS on the
// predecessor's level pointer; a failed helping CAS just re-reads the
// predecessor's current successor and keeps going.
func (s *SkipList[T]) find(h *reclaim.Handle[node[T]], key T, preds, succs []*node[T]) {
	pred := s.head
	for level := s.opts.MaxLevel; level >= 0; level-- {
		curr := h.Protect(slotCurr, &pred.next[level])
		for {
			if curr == s.tail {
				break
			}
			if curr.marked.Load() {
				succ := curr.next[level].Load()
				pred.next[level].CompareAndSwap(curr, succ)
				curr = h.Protect(slotCurr, &pred.next[level])
				continue
			}
			if s.less(curr.value, key) {
				pred = curr
				h.Promote(slotPred, slotCurr)
				curr = h.Protect(slotCurr, &pred.next[level])
				continue
			}
			break
		}
		preds[level] = pred
		succs[level] = curr
	}
}

// Push inserts value.
func (s *SkipList[T]) Push(value T) {
	topLevel := pickLevel(s.opts.MaxLevel, s.opts.Probability)

	h := s.domain.Acquire()
	defer h.Release()

	preds := make([]*node[T], s.opts.MaxLevel+1)
	succs := make([]*node[T], s.opts.MaxLevel+1)

	for {
		s.find(h, value, preds, succs)

		n := newNode(value, topLevel)
		for level := 0; level <= topLevel; level++ {
			n.next[level].Store(succs[level])
		}

		// Linearization point: once this CAS succeeds the node is
		// reachable on level 0.
		if !preds[0].next[0].CompareAndSwap(succs[0], n) {
			continue
		}

		for level := 1; level <= topLevel; level++ {
			for {
				pred, succ := preds[level], succs[level]
				n.next[level].Store(succ)
				if pred.next[level].CompareAndSwap(succ, n) {
					break
				}
				s.find(h, value, preds, succs)
			}
		}

		n.fullyLinked.Store(true)
		s.count.Add(1)
		return
	}
}

// Pop extracts the minimum value. The head successor is
// hazard-protected before any field on it is read, and the physical
// unlink CASes by node identity rather than by value, so duplicate
// keys never cause the wrong physical node to be spliced out.
func (s *SkipList[T]) Pop() (T, bool) {
	h := s.domain.Acquire()
	defer h.Release()

	preds := make([]*node[T], s.opts.MaxLevel+1)
	succs := make([]*node[T], s.opts.MaxLevel+1)

	for {
		candidate := h.Protect(slotCandidate, &s.head.next[0])
		if candidate == s.tail {
			var zero T
			return zero, false
		}
		if !candidate.fullyLinked.Load() {
			continue
		}
		if candidate.marked.Load() {
			continue
		}
		if !candidate.marked.CompareAndSwap(false, true) {
			continue
		}

		out := candidate.value

		s.find(h, out, preds, succs)

		for level := candidate.topLevel; level >= 0; level-- {
			succ := candidate.next[level].Load()
			preds[level].next[level].CompareAndSwap(candidate, succ)
		}

		s.count.Add(-1)
		s.domain.Retire(candidate)
		return out, true
	}
}

// Len returns the approximate live count. Not linearizable with
// concurrent Push/Pop.
func (s *SkipList[T]) Len() int {
	return int(s.count.Load())
}

// Empty reports whether the approximate count is zero.
func (s *SkipList[T]) Empty() bool {
	return s.Len() <= 0
}

// Close flushes any nodes still sitting in the reclamation domain's
// retired list. It must only be called when no goroutine is performing
// operations on the list.
func (s *SkipList[T]) Close() {
	s.domain.Scan()
}

// Drain pops every remaining value in order, invoking fn for each.
func (s *SkipList[T]) Drain(fn func(T)) {
	for {
		v, ok := s.Pop()
		if !ok {
			return
		}
		fn(v)
	}
}
