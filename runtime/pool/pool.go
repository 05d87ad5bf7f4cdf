package pool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/viant/treemirror/internal/serial"
	"go.uber.org/zap"
)

// Stats describes pool occupancy.
type Stats struct {
	Kind    string `json:"kind" yaml:"kind"`
	InUse   int    `json:"inUse" yaml:"inUse"`
	Free    int    `json:"free" yaml:"free"`
	Adds    int    `json:"adds" yaml:"adds"`
	Removes int    `json:"removes" yaml:"removes"`
}

// Pending returns the number of staged changes.
func (s Stats) Pending() int { return s.Adds + s.Removes }

func (s Stats) String() string {
	return fmt.Sprintf("%s: inUse=%d free=%d toAdd=%d toRemove=%d", s.Kind, s.InUse, s.Free, s.Adds, s.Removes)
}

// Pool allocates and recycles objects of one kind. Hooks run under the pool
// mutex and must not call back into the same pool.
type Pool[T Pooled] struct {
	kind      string
	factory   func() T
	bulk      int
	generator *serial.Generator
	logger    *zap.Logger

	mux       sync.Mutex
	free      []T
	committed map[uint32]T
	adds      map[uint32]T
	removes   map[uint32][]T
}

func newPool[T Pooled](kind string, factory func() T, r *Registry) *Pool[T] {
	return &Pool[T]{
		kind:      kind,
		factory:   factory,
		bulk:      r.bulk,
		generator: r.generator,
		logger:    r.logger,
		committed: make(map[uint32]T),
		adds:      make(map[uint32]T),
		removes:   make(map[uint32][]T),
	}
}

// Kind returns the pooled type name.
func (p *Pool[T]) Kind() string { return p.kind }

// Acquire hands out an object. When the free list is empty bulk fresh objects
// are constructed first. A non-zero forced serial is reused as the object
// identity, otherwise a new serial is generated.
func (p *Pool[T]) Acquire(bulk int, forced uint32, args ...interface{}) (T, error) {
	var zero T
	p.mux.Lock()
	defer p.mux.Unlock()
	if len(p.free) == 0 {
		if bulk <= 0 {
			bulk = p.bulk
		}
		if bulk <= 0 {
			bulk = 1
		}
		for i := 0; i < bulk; i++ {
			p.free = append(p.free, p.factory())
		}
	}
	obj := p.free[0]
	p.free[0] = zero
	p.free = p.free[1:]
	if sn := obj.Serial(); sn != 0 {
		p.logger.Error("acquired object is still live", zap.String("kind", p.kind), zap.Uint32("serial", sn))
		return zero, fmt.Errorf("%w: %s %d", ErrLiveObject, p.kind, sn)
	}
	sn := forced
	if sn == 0 {
		sn = p.nextSerial()
	}
	obj.SetSerial(sn)
	obj.Bind(func() error { return p.Release(obj) })
	obj.OnAcquire(args...)
	p.adds[sn] = obj
	return obj, nil
}

// Release stages obj for removal; it re-enters the free list on the next Tick.
func (p *Pool[T]) Release(obj T) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	sn := obj.Serial()
	if sn == 0 || p.isReleased(sn, obj) {
		p.logger.Error("object released twice", zap.String("kind", p.kind), zap.Uint32("serial", sn))
		return fmt.Errorf("%w: %s %d", ErrDoubleRelease, p.kind, sn)
	}
	obj.OnRelease()
	p.removes[sn] = append(p.removes[sn], obj)
	return nil
}

// Tick applies staged changes: removes first, then adds. It reports whether
// anything was applied.
func (p *Pool[T]) Tick() bool {
	p.mux.Lock()
	defer p.mux.Unlock()
	if len(p.adds) == 0 && len(p.removes) == 0 {
		return false
	}
	for sn, objs := range p.removes {
		for _, obj := range objs {
			if live, ok := p.committed[sn]; ok && same(live, obj) {
				delete(p.committed, sn)
			} else if added, ok := p.adds[sn]; ok && same(added, obj) {
				delete(p.adds, sn)
			} else {
				p.logger.Warn("released object not registered", zap.String("kind", p.kind), zap.Uint32("serial", sn))
			}
			obj.SetSerial(0)
			p.free = append(p.free, obj)
		}
	}
	clear(p.removes)
	for sn, obj := range p.adds {
		p.committed[sn] = obj
	}
	clear(p.adds)
	return true
}

// InUse returns the committed objects ordered by serial.
func (p *Pool[T]) InUse() []T {
	p.mux.Lock()
	ret := make([]T, 0, len(p.committed))
	for _, obj := range p.committed {
		ret = append(ret, obj)
	}
	p.mux.Unlock()
	sort.Slice(ret, func(i, j int) bool { return ret[i].Serial() < ret[j].Serial() })
	return ret
}

// Get returns the committed object with the supplied serial.
func (p *Pool[T]) Get(sn uint32) (T, bool) {
	p.mux.Lock()
	defer p.mux.Unlock()
	obj, ok := p.committed[sn]
	return obj, ok
}

// Len returns the committed in-use count.
func (p *Pool[T]) Len() int {
	p.mux.Lock()
	defer p.mux.Unlock()
	return len(p.committed)
}

// Stats returns an occupancy snapshot.
func (p *Pool[T]) Stats() Stats {
	p.mux.Lock()
	defer p.mux.Unlock()
	removes := 0
	for _, objs := range p.removes {
		removes += len(objs)
	}
	return Stats{Kind: p.kind, InUse: len(p.committed), Free: len(p.free), Adds: len(p.adds), Removes: removes}
}

func (p *Pool[T]) nextSerial() uint32 {
	for {
		sn := p.generator.Next()
		if _, ok := p.committed[sn]; ok {
			continue
		}
		if _, ok := p.adds[sn]; ok {
			continue
		}
		if _, ok := p.removes[sn]; ok {
			continue
		}
		return sn
	}
}

func (p *Pool[T]) isReleased(sn uint32, obj T) bool {
	for _, candidate := range p.removes[sn] {
		if same(candidate, obj) {
			return true
		}
	}
	return false
}

func same[T any](a, b T) bool {
	return any(a) == any(b)
}
