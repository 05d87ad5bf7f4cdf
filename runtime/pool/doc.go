// Package pool recycles objects of a given kind and stages membership changes.
//
// Acquire and Release never mutate the committed in-use view directly; they
// stage adds and removes which become visible on the next Tick. Readers that
// iterate InUse therefore see a stable set between ticks, and a release made
// during such an iteration does not disturb it.
//
// A Registry keeps exactly one Pool per object kind:
//
//	reg := pool.NewRegistry()
//	files := pool.Of[*tree.File](reg, tree.NewFile)
//	f, _ := files.Acquire(16, 0)
//	...
//	_ = f.Release()
//	reg.Tick()
package pool
