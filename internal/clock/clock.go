// Package clock wraps wall-clock access so that time-sensitive components
// (serial generation, sweep scheduling) can be driven by a fake clock in tests.
package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Millis returns current unix time in milliseconds.
func Millis() int64 { return NowFunc().UnixMilli() }
