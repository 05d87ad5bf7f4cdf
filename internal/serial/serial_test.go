package serial

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Next(t *testing.T) {
	var testCases = []struct {
		description string
		count       int
	}{
		{description: "single", count: 1},
		{description: "one millisecond worth", count: MaxSequence + 1},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			g := New(WithClock(func() int64 { return 1000 }))
			seen := map[uint32]bool{}
			for i := 0; i < testCase.count; i++ {
				sn := g.Next()
				assert.NotZero(t, sn)
				assert.False(t, seen[sn], "duplicate serial %d at %d", sn, i)
				seen[sn] = true
			}
		})
	}
}

func TestGenerator_Wraparound(t *testing.T) {
	var calls int64
	// the clock only advances once the sequence has been exhausted
	now := func() int64 {
		n := atomic.AddInt64(&calls, 1)
		if n <= MaxSequence+5 {
			return 42
		}
		return 43
	}
	g := New(WithClock(now))
	for i := 0; i <= MaxSequence; i++ {
		g.Next()
	}
	assert.EqualValues(t, 42, g.last)
	assert.EqualValues(t, MaxSequence, g.sequence)

	sn := g.Next()
	assert.EqualValues(t, 43, g.last)
	assert.EqualValues(t, 0, g.sequence)
	assert.Equal(t, Checksum(43, 0), sn)
}

func TestGenerator_ClockGoesBackwards(t *testing.T) {
	ts := int64(100)
	g := New(WithClock(func() int64 { return ts }))
	first := g.Next()
	ts = 90
	second := g.Next()
	assert.NotEqual(t, first, second)
	assert.EqualValues(t, 100, g.last)
	assert.EqualValues(t, 1, g.sequence)
}

func TestGenerator_Concurrent(t *testing.T) {
	g := New()
	const workers, perWorker = 4, 250
	out := make(chan uint32, workers*perWorker)
	wg := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				out <- g.Next()
			}
		}()
	}
	wg.Wait()
	close(out)
	seen := map[uint32]bool{}
	for sn := range out {
		require.False(t, seen[sn])
		seen[sn] = true
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestChecksum(t *testing.T) {
	assert.NotEqual(t, Checksum(1, 0), Checksum(1, 1))
	assert.Equal(t, Checksum(7, 3), Checksum(7, 3))
	assert.Equal(t, Checksum(1<<32+5, 2), Checksum(5, 2))
}
