// Package progress aggregates task counters for the scheduler. Updates are
// signed deltas so producers never read-modify-write shared state.
package progress
