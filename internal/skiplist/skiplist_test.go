package skiplist

import (
	"sort"
	"sync"
	"testing"
)

func TestPushPopOrdering(t *testing.T) {
	s := New[int](Options{})

	values := []int{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	for _, v := range values {
		s.Push(v)
	}

	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	for _, want := range sorted {
		got, ok := s.Pop()
		if !ok {
			t.Fatalf("Pop reported empty before draining all %d values", len(values))
		}
		if got != want {
			t.Fatalf("Pop returned %d, want %d", got, want)
		}
	}

	if _, ok := s.Pop(); ok {
		t.Fatalf("Pop succeeded on an exhausted list")
	}
}

func TestPopEmptyReportsFalse(t *testing.T) {
	s := New[int](Options{})
	if _, ok := s.Pop(); ok {
		t.Fatalf("Pop on an empty list reported success")
	}
}

func TestLenTracksPushPop(t *testing.T) {
	s := New[int](Options{})
	if !s.Empty() {
		t.Fatalf("new list is not reported empty")
	}

	s.Push(1)
	s.Push(2)
	s.Push(3)
	if got := s.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	s.Pop()
	if got := s.Len(); got != 2 {
		t.Fatalf("Len() = %d after one pop, want 2", got)
	}
}

func TestDuplicateKeysAreConserved(t *testing.T) {
	s := New[int](Options{})
	for i := 0; i < 5; i++ {
		s.Push(42)
	}
	s.Push(1)

	got, ok := s.Pop()
	if !ok || got != 1 {
		t.Fatalf("Pop() = (%d, %v), want (1, true)", got, ok)
	}

	count := 0
	for {
		v, ok := s.Pop()
		if !ok {
			break
		}
		if v != 42 {
			t.Fatalf("Pop() = %d among duplicates, want 42", v)
		}
		count++
	}
	if count != 5 {
		t.Fatalf("popped %d duplicates of 42, want 5", count)
	}
}

func TestDrainVisitsEverythingInOrder(t *testing.T) {
	s := New[int](Options{})
	values := []int{4, 1, 3, 2}
	for _, v := range values {
		s.Push(v)
	}

	var got []int
	s.Drain(func(v int) { got = append(got, v) })

	want := []int{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Drain visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Drain visited %v, want %v", got, want)
		}
	}
	if !s.Empty() {
		t.Fatalf("list not empty after Drain")
	}
}

func TestConcurrentPushPopConservesCount(t *testing.T) {
	s := New[int](Options{MaxLevel: 8, Probability: 0.5})

	const producers = 8
	const perProducer = 500
	const total = producers * perProducer

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				s.Push(base*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	if got := s.Len(); got != total {
		t.Fatalf("Len() = %d after concurrent pushes, want %d", got, total)
	}

	var mu sync.Mutex
	seen := make(map[int]bool, total)
	var consumers sync.WaitGroup
	for c := 0; c < producers; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				v, ok := s.Pop()
				if !ok {
					return
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	consumers.Wait()

	if len(seen) != total {
		t.Fatalf("saw %d distinct values after concurrent drain, want %d", len(seen), total)
	}
}

func TestConcurrentPopsNeverReturnTheSameNodeTwice(t *testing.T) {
	s := New[int](Options{})
	const n = 2000
	for i := 0; i < n; i++ {
		s.Push(i)
	}

	results := make(chan int, n)
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := s.Pop()
				if !ok {
					return
				}
				results <- v
			}
		}()
	}
	wg.Wait()
	close(results)

	counts := make(map[int]int, n)
	total := 0
	for v := range results {
		counts[v]++
		total++
	}
	if total != n {
		t.Fatalf("popped %d values total, want %d", total, n)
	}
	for v, c := range counts {
		if c != 1 {
			t.Fatalf("value %d popped %d times, want exactly once", v, c)
		}
	}
}

func TestCloseIsIdempotentAndReleasesRetired(t *testing.T) {
	s := New[int](Options{})
	s.Push(1)
	s.Push(2)
	s.Pop()
	s.Close()
	s.Close()
	if got := s.domain.Pending(); got != 0 {
		t.Fatalf("Pending() = %d after Close, want 0", got)
	}
}
