package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/satset/internal/ir"
)

func TestClock_Next(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current(), "new clock should start at 0")
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(41)
	assert.Equal(t, int64(42), c.Next(), "clock continues after the start value")
}

func TestClock_ConcurrentNextUnique(t *testing.T) {
	c := NewClock()
	const goroutines, perGoroutine = 8, 250

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), c.Current())
}

func TestClock_StampsObservations(t *testing.T) {
	var seq Sequencer = NewClock()
	v := mustVar(t, "x", ir.KindInt)

	first, err := NewObservation(v, ir.Int(1), WithSeq(seq.Next()))
	require.NoError(t, err)
	second, err := NewObservation(v, ir.Int(2), WithSeq(seq.Next()))
	require.NoError(t, err)

	assert.Less(t, first.Seq(), second.Seq())
}
