// Package pairlock serializes work per unordered user pair. Swipe
// resolution for one pair must run one at a time; disjoint pairs proceed
// in parallel.
package pairlock

import (
	"fmt"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// PairLock hands out a mutex per canonical pair key. Entries are
// reference-counted and removed once the last holder unlocks, so the map
// stays proportional to in-flight pairs, not all pairs ever seen.
type PairLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *PairLock {
	return &PairLock{locks: make(map[string]*entry)}
}

// Key returns the canonical key for an unordered user pair.
func Key(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Lock acquires the mutex for the pair and returns its unlock func.
func (p *PairLock) Lock(a, b uint64) func() {
	key := Key(a, b)

	p.mu.Lock()
	e, ok := p.locks[key]
	if !ok {
		e = &entry{}
		p.locks[key] = e
	}
	e.refs++
	p.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		p.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
