package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/kailas-cloud/solrstream/internal/domain"
	"github.com/kailas-cloud/solrstream/internal/domain/tuple"
	"github.com/kailas-cloud/solrstream/internal/javabin"
)

// Javabin writes tuples as an export-style javabin response that javabin.TupleParser
// (and any export client) can read back.
type Javabin struct {
	mu     sync.Mutex
	w      io.WriteCloser
	dw     *javabin.DocWriter
	closed bool
}

// NewJavabin writes the response preamble to w. Close closes w.
func NewJavabin(w io.WriteCloser) (*Javabin, error) {
	dw, err := javabin.NewDocWriter(w)
	if err != nil {
		return nil, fmt.Errorf("javabin sink: %w", err)
	}
	return &Javabin{w: w, dw: dw}, nil
}

// Write appends one document.
func (s *Javabin) Write(_ context.Context, _ string, t *tuple.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("javabin sink: %w", domain.ErrClosed)
	}
	if err := s.dw.Write(t.Fields); err != nil {
		return fmt.Errorf("write tuple: %w", err)
	}
	return nil
}

// Flush writes buffered documents.
func (s *Javabin) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.dw.Flush(); err != nil {
		return fmt.Errorf("flush javabin: %w", err)
	}
	return nil
}

// Close terminates the document iterator and closes the underlying writer.
func (s *Javabin) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.dw.Close(), s.w.Close())
}
