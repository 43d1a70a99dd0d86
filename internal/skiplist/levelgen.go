package skiplist

import (
	"math/rand"
	"sync"
	"time"
)

// levelGen holds a leased *rand.Rand. Goroutines have no thread-local
// storage, so generators are leased from a pool instead of pinned to a
// fixed slot.
type levelGen struct {
	rnd *rand.Rand
}

var levelGenPool = sync.Pool{
	New: func() any {
		return &levelGen{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
	},
}

// pickLevel flips a p-biased coin until it comes up tails, capping the
// result at maxLevel.
func pickLevel(maxLevel int, p float64) int {
	g := levelGenPool.Get().(*levelGen)
	defer levelGenPool.Put(g)

	level := 0
	for level < maxLevel && g.rnd.Float64() < p {
		level++
	}
	return level
}
