package pool

import "errors"

var (
	// ErrDoubleRelease is returned when releasing an object that is not live.
	ErrDoubleRelease = errors.New("pool: object already released")

	// ErrLiveObject indicates a free-list object still carrying a serial.
	ErrLiveObject = errors.New("pool: free object has non-zero serial")

	// ErrUnbound is returned when releasing an object that was never acquired from a pool.
	ErrUnbound = errors.New("pool: object is not bound to a pool")
)
