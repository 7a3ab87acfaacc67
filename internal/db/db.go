package db

import (
	"context"
	"time"
)

// Store is the tuple store facade used by the valkey sink.
type Store interface {
	Pinger
	HashStore
	JSONStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore writes flat tuples as hashes.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
}

// JSONSetItem holds a single key+path+data triple for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Path string
	Data []byte
}

// JSONStore writes tuples as JSON documents.
type JSONStore interface {
	JSONSetMulti(ctx context.Context, items []JSONSetItem) error
}
