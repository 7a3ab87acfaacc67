package iterator

import (
	"errors"
	"fmt"
)

// Done is returned by Next when the shard has no more tuples.
var Done = errors.New("no more tuples") //nolint:revive,errname // iterator sentinel, reads as iterator.Done

// ErrOpen matches every *OpenError.
var ErrOpen = errors.New("open shard stream")

// OpenError is the fatal error of a stream that could not be opened.
// The iterator is closed once it is returned; there is no retry.
type OpenError struct {
	Endpoint string
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open shard stream %s: %v", e.Endpoint, e.Err)
}

// Unwrap exposes both ErrOpen and the transport cause.
func (e *OpenError) Unwrap() []error { return []error{ErrOpen, e.Err} }
