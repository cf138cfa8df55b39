package pairlock_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundmate/soundmate/internal/utils/pairlock"
)

func TestKey_Canonical(t *testing.T) {
	assert.Equal(t, pairlock.Key(1, 2), pairlock.Key(2, 1))
	assert.Equal(t, "1:2", pairlock.Key(2, 1))
}

func TestLock_SerializesSamePair(t *testing.T) {
	pl := pairlock.New()

	const iterations = 200
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := pl.Lock(7, 3)
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4*iterations, counter)
}

func TestLock_DisjointPairsDoNotBlock(t *testing.T) {
	pl := pairlock.New()

	unlockA := pl.Lock(1, 2)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := pl.Lock(3, 4)
		unlockB()
		close(done)
	}()

	<-done // would deadlock if pair (3,4) waited on pair (1,2)
}
