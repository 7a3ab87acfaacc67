package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/solrstream/internal/db"
	"github.com/kailas-cloud/solrstream/internal/domain"
	"github.com/kailas-cloud/solrstream/internal/domain/tuple"
)

// Valkey formats.
const (
	FormatJSON = "json"
	FormatHash = "hash"
)

// store is the consumer interface for tuple writes (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
}

// ValkeyConfig holds valkey sink settings.
type ValkeyConfig struct {
	Collection string
	KeyPrefix  string
	IDField    string
	Format     string // json (default) or hash
	BatchSize  int
}

// Valkey writes tuples as JSON documents or hashes keyed by prefix + collection + ":" + id.
// Writes are buffered and sent in pipelined batches.
type Valkey struct {
	store store
	cfg   ValkeyConfig

	mu      sync.Mutex
	jsonBuf []db.JSONSetItem
	hashBuf []db.HashSetItem
	closed  bool
}

// NewValkey creates a valkey sink.
func NewValkey(s store, cfg ValkeyConfig) *Valkey {
	if cfg.IDField == "" {
		cfg.IDField = "id"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	return &Valkey{store: s, cfg: cfg}
}

// Key returns the key a tuple with the given id is stored under.
func (s *Valkey) Key(id string) string {
	return s.cfg.KeyPrefix + s.cfg.Collection + ":" + id
}

// Write buffers the tuple and sends a batch when the buffer is full.
// Tuples without an id are skipped with domain.ErrTupleSkipped.
func (s *Valkey) Write(ctx context.Context, _ string, t *tuple.Tuple) error {
	id, ok := tupleID(t, s.cfg.IDField)
	if !ok {
		return fmt.Errorf("%w: no %q field", domain.ErrTupleSkipped, s.cfg.IDField)
	}
	key := s.Key(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("valkey sink: %w", domain.ErrClosed)
	}

	switch s.cfg.Format {
	case FormatHash:
		s.hashBuf = append(s.hashBuf, db.HashSetItem{Key: key, Fields: flatten(t)})
	default:
		data, err := json.Marshal(t.Fields)
		if err != nil {
			return fmt.Errorf("marshal tuple %s: %w", id, err)
		}
		s.jsonBuf = append(s.jsonBuf, db.JSONSetItem{Key: key, Path: "$", Data: data})
	}

	if len(s.jsonBuf)+len(s.hashBuf) >= s.cfg.BatchSize {
		return s.flushLocked(ctx)
	}
	return nil
}

// Flush sends the buffered tuples.
func (s *Valkey) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Valkey) flushLocked(ctx context.Context) error {
	if len(s.jsonBuf) > 0 {
		if err := s.store.JSONSetMulti(ctx, s.jsonBuf); err != nil {
			return fmt.Errorf("json.set batch of %d: %w", len(s.jsonBuf), err)
		}
		s.jsonBuf = s.jsonBuf[:0]
	}
	if len(s.hashBuf) > 0 {
		if err := s.store.HSetMulti(ctx, s.hashBuf); err != nil {
			return fmt.Errorf("hset batch of %d: %w", len(s.hashBuf), err)
		}
		s.hashBuf = s.hashBuf[:0]
	}
	return nil
}

// Close flushes what is left. The store itself belongs to the caller.
func (s *Valkey) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.flushLocked(ctx)
}

func tupleID(t *tuple.Tuple, field string) (string, bool) {
	s, ok := t.String(field)
	return s, ok && s != ""
}

// flatten renders tuple fields as hash values: scalars as text, the rest as JSON.
func flatten(t *tuple.Tuple) map[string]string {
	out := make(map[string]string, t.Len())
	for k, v := range t.Fields {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			out[k] = x
		case bool:
			out[k] = strconv.FormatBool(x)
		case int8, int16, int32, int, int64:
			n, _ := t.Long(k)
			out[k] = strconv.FormatInt(n, 10)
		case float32:
			out[k] = strconv.FormatFloat(float64(x), 'f', -1, 32)
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case time.Time:
			out[k] = x.UTC().Format(time.RFC3339Nano)
		default:
			data, err := json.Marshal(x)
			if err != nil {
				out[k] = fmt.Sprint(x)
				continue
			}
			out[k] = string(data)
		}
	}
	return out
}
