package javabin

import (
	"fmt"
	"io"
)

// ResponseKey is the top-level entry wrapping the docs of an export response.
const ResponseKey = "response"

// DocWriter streams documents as an export-style response:
// {"response": {"docs": ITERATOR[doc, doc, ...]}}.
type DocWriter struct {
	enc    *Encoder
	closed bool
}

// NewDocWriter writes the response preamble to w.
func NewDocWriter(w io.Writer) (*DocWriter, error) {
	enc := NewEncoder(w)
	steps := []func() error{
		enc.WriteHeader,
		func() error { return enc.BeginOrderedMap(1) },
		func() error { return enc.WriteName(ResponseKey) },
		func() error { return enc.BeginOrderedMap(1) },
		func() error { return enc.WriteName(DocsKey) },
		enc.BeginIterator,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("write preamble: %w", err)
		}
	}
	return &DocWriter{enc: enc}, nil
}

// Write appends one document.
func (w *DocWriter) Write(doc map[string]any) error {
	if w.closed {
		return fmt.Errorf("javabin: write after close")
	}
	if err := w.enc.WriteVal(doc); err != nil {
		return fmt.Errorf("write doc: %w", err)
	}
	return nil
}

// Flush pushes buffered documents to the underlying writer.
func (w *DocWriter) Flush() error {
	return w.enc.Flush()
}

// Close terminates the docs sequence and flushes. It does not close the underlying writer.
func (w *DocWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.enc.End(); err != nil {
		return fmt.Errorf("write end: %w", err)
	}
	return w.enc.Flush()
}
