package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/solrstream/internal/db"
	"github.com/kailas-cloud/solrstream/internal/domain"
	"github.com/kailas-cloud/solrstream/internal/domain/tuple"
	"github.com/kailas-cloud/solrstream/internal/javabin"
)

func tup(fields map[string]any) *tuple.Tuple { return tuple.FromMap(fields) }

// --- JSONLines ---

func TestJSONLines_WritesOneLinePerTuple(t *testing.T) {
	buf := &closeBuffer{}
	s := NewJSONLines(buf)
	ctx := context.Background()

	for _, id := range []string{"1", "2"} {
		if err := s.Write(ctx, "shard1", tup(map[string]any{"id": id, "n": int32(7)})); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !buf.closed {
		t.Error("underlying writer not closed")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"id": "2", "n": float64(7)}, got); diff != "" {
		t.Errorf("line mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONLines_WriteAfterClose(t *testing.T) {
	s := NewJSONLines(&closeBuffer{})
	_ = s.Close()
	err := s.Write(context.Background(), "shard1", tup(map[string]any{"id": "1"}))
	if !errors.Is(err, domain.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestJSONLines_ConcurrentWriters(t *testing.T) {
	buf := &closeBuffer{}
	s := NewJSONLines(buf)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				_ = s.Write(context.Background(), "shard", tup(map[string]any{"w": w, "i": i}))
			}
		}()
	}
	wg.Wait()
	_ = s.Close()

	if n := strings.Count(buf.String(), "\n"); n != 200 {
		t.Errorf("expected 200 lines, got %d", n)
	}
}

// --- Javabin ---

func TestJavabin_ReadableByTupleParser(t *testing.T) {
	buf := &closeBuffer{}
	s, err := NewJavabin(buf)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = s.Write(ctx, "shard1", tup(map[string]any{"id": "a"}))
	_ = s.Write(ctx, "shard2", tup(map[string]any{"id": "b"}))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p, err := javabin.NewTupleParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewTupleParser: %v", err)
	}
	var ids []string
	for {
		doc, err := p.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		ids = append(ids, doc["id"].(string))
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

// --- Valkey ---

func TestValkey_BatchesJSON(t *testing.T) {
	st := &mockStore{}
	s := NewValkey(st, ValkeyConfig{Collection: "books", KeyPrefix: "solrstream:", BatchSize: 2})
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := s.Write(ctx, "shard1", tup(map[string]any{"id": id})); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if len(st.jsonBatches) != 1 || len(st.jsonBatches[0]) != 2 {
		t.Fatalf("expected one full batch of 2, got %v", st.jsonBatches)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(st.jsonBatches) != 2 {
		t.Fatalf("expected remaining tuple flushed on close, got %d batches", len(st.jsonBatches))
	}

	first := st.jsonBatches[0][0]
	if first.Key != "solrstream:books:1" || first.Path != "$" || string(first.Data) != `{"id":"1"}` {
		t.Errorf("unexpected item: %s %s %s", first.Key, first.Path, first.Data)
	}
}

func TestValkey_HashFormat(t *testing.T) {
	st := &mockStore{}
	s := NewValkey(st, ValkeyConfig{Collection: "books", Format: FormatHash})

	err := s.Write(context.Background(), "shard1", tup(map[string]any{
		"id":    int64(42),
		"title": "Go",
		"price": 9.5,
		"tags":  []any{"a", "b"},
		"none":  nil,
	}))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := db.HashSetItem{
		Key:    "books:42",
		Fields: map[string]string{"id": "42", "title": "Go", "price": "9.5", "tags": `["a","b"]`},
	}
	if diff := cmp.Diff([][]db.HashSetItem{{want}}, st.hashBatches); diff != "" {
		t.Errorf("hash batch mismatch (-want +got):\n%s", diff)
	}
}

func TestValkey_SkipsTuplesWithoutID(t *testing.T) {
	st := &mockStore{}
	s := NewValkey(st, ValkeyConfig{Collection: "books", IDField: "isbn"})

	err := s.Write(context.Background(), "shard1", tup(map[string]any{"id": "1"}))
	if !errors.Is(err, domain.ErrTupleSkipped) {
		t.Fatalf("expected domain.ErrTupleSkipped, got %v", err)
	}
	_ = s.Flush(context.Background())
	if len(st.jsonBatches) != 0 {
		t.Error("skipped tuple must not be stored")
	}
}

func TestValkey_StoreErrorPropagates(t *testing.T) {
	storeErr := &db.Error{Op: db.OpJSONSet, Err: errors.New("READONLY")}
	st := &mockStore{jsonSetFn: func(context.Context, []db.JSONSetItem) error { return storeErr }}
	s := NewValkey(st, ValkeyConfig{Collection: "books", BatchSize: 1})

	err := s.Write(context.Background(), "shard1", tup(map[string]any{"id": "1"}))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestOpenFile_Stdout(t *testing.T) {
	for _, p := range []string{"", "-"} {
		w, err := OpenFile(p)
		if err != nil {
			t.Fatalf("OpenFile(%q): %v", p, err)
		}
		if err := w.Close(); err != nil {
			t.Errorf("closing stdout wrapper: %v", err)
		}
	}
}

func TestOpenFile_CreatesDirs(t *testing.T) {
	path := t.TempDir() + "/out/books.jsonl"
	w, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	s := NewJSONLines(w)
	_ = s.Write(context.Background(), "shard1", tup(map[string]any{"id": "1"}))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
