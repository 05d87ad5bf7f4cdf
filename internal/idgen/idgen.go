package idgen

import "github.com/google/uuid"

// NewFunc produces correlation identifiers; tests may stub it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new opaque, globally unique identifier.
func New() string { return NewFunc() }
