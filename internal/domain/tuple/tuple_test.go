package tuple

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTuple_Markers(t *testing.T) {
	if !EOFTuple().IsEOF() {
		t.Error("EOFTuple must report IsEOF")
	}
	if FromMap(map[string]any{"id": "1"}).IsEOF() {
		t.Error("plain tuple must not report IsEOF")
	}

	ex := FromMap(map[string]any{FieldException: "boom", FieldEOF: true})
	msg, ok := ex.Exception()
	if !ok || msg != "boom" {
		t.Errorf("Exception() = %q, %v", msg, ok)
	}
	if _, ok := FromMap(nil).Exception(); ok {
		t.Error("empty tuple must carry no exception")
	}
}

func TestTuple_Accessors(t *testing.T) {
	tp := FromMap(map[string]any{
		"id":     "doc-1",
		"count":  int32(7),
		"big":    int64(1 << 40),
		"price":  float32(2.5),
		"flag":   true,
		"tags":   []any{"a", "b"},
		"numstr": "42",
	})

	if s, _ := tp.String("id"); s != "doc-1" {
		t.Errorf("String(id) = %q", s)
	}
	if s, _ := tp.String("count"); s != "7" {
		t.Errorf("String(count) = %q", s)
	}
	if n, ok := tp.Long("count"); !ok || n != 7 {
		t.Errorf("Long(count) = %d, %v", n, ok)
	}
	if n, ok := tp.Long("big"); !ok || n != 1<<40 {
		t.Errorf("Long(big) = %d, %v", n, ok)
	}
	if n, ok := tp.Long("numstr"); !ok || n != 42 {
		t.Errorf("Long(numstr) = %d, %v", n, ok)
	}
	if f, ok := tp.Double("price"); !ok || f != 2.5 {
		t.Errorf("Double(price) = %f, %v", f, ok)
	}
	if b, ok := tp.Bool("flag"); !ok || !b {
		t.Errorf("Bool(flag) = %v, %v", b, ok)
	}
	if _, ok := tp.Long("missing"); ok {
		t.Error("Long(missing) must fail")
	}

	tags, ok := tp.Strings("tags")
	if !ok {
		t.Fatal("Strings(tags) failed")
	}
	if diff := cmp.Diff([]string{"a", "b"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	single, _ := tp.Strings("id")
	if diff := cmp.Diff([]string{"doc-1"}, single); diff != "" {
		t.Errorf("scalar Strings mismatch (-want +got):\n%s", diff)
	}
}

func TestTuple_Keys(t *testing.T) {
	tp := FromMap(map[string]any{"b": 1, "a": 2, "c": 3})
	if diff := cmp.Diff([]string{"a", "b", "c"}, tp.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if tp.Len() != 3 {
		t.Errorf("Len() = %d", tp.Len())
	}
}
