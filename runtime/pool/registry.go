package pool

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/viant/treemirror/internal/serial"
	"github.com/viant/treemirror/metrics"
	"go.uber.org/zap"
)

type tickable interface {
	Tick() bool
	Stats() Stats
}

// Registry holds one pool per object kind and ticks them together.
type Registry struct {
	mux       sync.RWMutex
	pools     map[reflect.Type]tickable
	order     []reflect.Type
	generator *serial.Generator
	logger    *zap.Logger
	metrics   *metrics.Metrics
	bulk      int
}

// NewRegistry creates a registry.
func NewRegistry(options ...Option) *Registry {
	ret := &Registry{
		pools: make(map[reflect.Type]tickable),
		bulk:  1,
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.generator == nil {
		ret.generator = serial.New()
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	return ret
}

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType == nil {
		rType = reflect.TypeOf((*T)(nil)).Elem()
	}
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// Of returns the pool for T, creating it with factory on first use.
func Of[T Pooled](r *Registry, factory func() T) *Pool[T] {
	key := keyOf[T]()
	r.mux.RLock()
	existing, ok := r.pools[key]
	r.mux.RUnlock()
	if ok {
		return existing.(*Pool[T])
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	if existing, ok = r.pools[key]; ok {
		return existing.(*Pool[T])
	}
	ret := newPool[T](key.String(), factory, r)
	r.pools[key] = ret
	r.order = append(r.order, key)
	return ret
}

// Tick applies staged changes of every pool and returns how many pools changed.
func (r *Registry) Tick() int {
	r.mux.RLock()
	pools := make([]tickable, 0, len(r.order))
	for _, key := range r.order {
		pools = append(pools, r.pools[key])
	}
	r.mux.RUnlock()
	applied := 0
	for _, p := range pools {
		if p.Tick() {
			applied++
		}
		if r.metrics != nil {
			s := p.Stats()
			r.metrics.ObservePool(s.Kind, s.InUse, s.Free, s.Pending())
		}
	}
	return applied
}

// Stats returns per-kind occupancy in registration order.
func (r *Registry) Stats() []Stats {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]Stats, 0, len(r.order))
	for _, key := range r.order {
		ret = append(ret, r.pools[key].Stats())
	}
	return ret
}


// Pulse ticks the registry every interval until ctx is done.
func (r *Registry) Pulse(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Tick()
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}
