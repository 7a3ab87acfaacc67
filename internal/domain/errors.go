package domain

import "errors"

var (
	// ErrInvalidQuery signals a query the export handler would reject.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrShardNotFound signals a collection with no active replica for a shard.
	ErrShardNotFound = errors.New("shard not found")
	// ErrCollectionNotFound signals a collection missing from cluster state.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrClosed signals use of a released resource.
	ErrClosed = errors.New("closed")
	// ErrStreamException signals an exception tuple sent by the engine mid-stream.
	ErrStreamException = errors.New("stream exception")
	// ErrTupleSkipped signals a tuple a sink deliberately dropped.
	ErrTupleSkipped = errors.New("tuple skipped")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)
