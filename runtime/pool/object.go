package pool

import "sync/atomic"

// Pooled is the lifecycle contract of pool managed objects. Embed Object to
// get a default implementation and override OnAcquire/OnRelease.
type Pooled interface {
	Serial() uint32
	SetSerial(serial uint32)
	Bind(release func() error)
	// OnAcquire initialises fresh or recycled state.
	OnAcquire(args ...interface{})
	// OnRelease clears state before the object goes back to the free list.
	OnRelease()
}

// Object is an embeddable Pooled base.
type Object struct {
	serial  atomic.Uint32
	release func() error
}

// Serial returns object identity; 0 means not live.
func (o *Object) Serial() uint32 { return o.serial.Load() }

// SetSerial is used by the owning pool.
func (o *Object) SetSerial(serial uint32) { o.serial.Store(serial) }

// Bind attaches the owning pool release function.
func (o *Object) Bind(release func() error) { o.release = release }

// IsLive reports whether the object is acquired and not yet recycled.
func (o *Object) IsLive() bool { return o.Serial() != 0 }

// OnAcquire is a no-op hook.
func (o *Object) OnAcquire(...interface{}) {}

// OnRelease is a no-op hook.
func (o *Object) OnRelease() {}

// Release returns the object to its owning pool.
func (o *Object) Release() error {
	if o.release == nil {
		return ErrUnbound
	}
	return o.release()
}
