package cryptotax

import (
	"errors"
	"fmt"
)

// Fatal error classes. Everything else surfaces as a Warning.

// ErrInvalidConfig wraps configuration problems. They abort a run before any
// computation or persistence happens.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrUnresolved reports that no EUR value could be assigned to an entry.
var ErrUnresolved = errors.New("no EUR value resolvable")

// ErrNoPrice reports that no close exists for an (asset, day) pair.
var ErrNoPrice = errors.New("no price for that day")

// TransportError wraps a failed exchange call. A transport failure aborts the
// whole run and leaves persisted state untouched.
type TransportError struct {
	Source string
	Op     string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
