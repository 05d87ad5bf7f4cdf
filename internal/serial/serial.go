// Package serial generates process-unique 32-bit identifiers for pooled objects.
//
// A serial is the IEEE CRC-32 of a (millisecond timestamp, sequence) tuple; the
// sequence restarts every millisecond and wraps at MaxSequence, in which case
// the generator waits for the clock to advance. Zero is never returned since
// it marks an object that is not live.
package serial

import (
	"encoding/binary"
	"hash/crc32"
	"runtime"
	"sync"

	"github.com/viant/treemirror/internal/clock"
)

// MaxSequence is the highest per-millisecond sequence value.
const MaxSequence = 9999

// Generator produces serials; it is safe for concurrent use.
type Generator struct {
	mux      sync.Mutex
	now      func() int64
	last     int64
	sequence uint16
}

// Option customises a Generator.
type Option func(g *Generator)

// WithClock overrides the millisecond clock.
func WithClock(now func() int64) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a generator.
func New(options ...Option) *Generator {
	ret := &Generator{now: clock.Millis}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Next returns the next serial.
func (g *Generator) Next() uint32 {
	g.mux.Lock()
	defer g.mux.Unlock()
	for {
		ts, seq := g.advance()
		if sn := Checksum(ts, seq); sn != 0 {
			return sn
		}
	}
}

// advance moves to the next unused (timestamp, sequence) pair. A clock that
// goes backwards is treated as if it stood still.
func (g *Generator) advance() (int64, uint16) {
	ts := g.now()
	if ts > g.last {
		g.last = ts
		g.sequence = 0
		return g.last, g.sequence
	}
	g.sequence = (g.sequence + 1) % (MaxSequence + 1)
	if g.sequence == 0 {
		for ts <= g.last {
			runtime.Gosched()
			ts = g.now()
		}
		g.last = ts
	}
	return g.last, g.sequence
}

// Reset clears the generator state.
func (g *Generator) Reset() {
	g.mux.Lock()
	g.last = 0
	g.sequence = 0
	g.mux.Unlock()
}

// Checksum encodes the low 32 bits of ts and the sequence as 6 little-endian
// bytes and returns their CRC-32.
func Checksum(ts int64, seq uint16) uint32 {
	var data [6]byte
	binary.LittleEndian.PutUint32(data[:4], uint32(ts))
	binary.LittleEndian.PutUint16(data[4:], seq)
	return crc32.ChecksumIEEE(data[:])
}
