package mirror

import "errors"

var (
	// ErrNotInitialized is returned before Init or Restore succeeded.
	ErrNotInitialized = errors.New("mirror: not initialized")

	ErrNotFound = errors.New("mirror: not found")

	// ErrInvalidPath covers empty names, the root where a child is expected
	// and file paths where a folder is expected.
	ErrInvalidPath = errors.New("mirror: invalid path")

	// ErrInvalidMove rejects moving a node into itself or into its current
	// parent. The tree is left untouched.
	ErrInvalidMove = errors.New("mirror: invalid move")

	ErrExists = errors.New("mirror: already exists")
)
