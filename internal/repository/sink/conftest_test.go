package sink

import (
	"bytes"
	"context"
	"sync"

	"github.com/kailas-cloud/solrstream/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	mu          sync.Mutex
	jsonSetFn   func(ctx context.Context, items []db.JSONSetItem) error
	hsetMultiFn func(ctx context.Context, items []db.HashSetItem) error
	jsonBatches [][]db.JSONSetItem
	hashBatches [][]db.HashSetItem
}

func (m *mockStore) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error {
	m.mu.Lock()
	m.jsonBatches = append(m.jsonBatches, append([]db.JSONSetItem(nil), items...))
	m.mu.Unlock()
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	m.mu.Lock()
	m.hashBatches = append(m.hashBatches, append([]db.HashSetItem(nil), items...))
	m.mu.Unlock()
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

// closeBuffer records whether Close was called.
type closeBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closeBuffer) Close() error {
	b.closed = true
	return nil
}
