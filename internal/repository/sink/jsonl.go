package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/kailas-cloud/solrstream/internal/domain"
	"github.com/kailas-cloud/solrstream/internal/domain/tuple"
)

// JSONLines writes one JSON object per tuple.
type JSONLines struct {
	mu     sync.Mutex
	w      io.WriteCloser
	buf    *bufio.Writer
	enc    *json.Encoder
	closed bool
}

// NewJSONLines creates a sink over w. Close closes w.
func NewJSONLines(w io.WriteCloser) *JSONLines {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &JSONLines{w: w, buf: buf, enc: enc}
}

// Write encodes the tuple fields as one line.
func (s *JSONLines) Write(_ context.Context, _ string, t *tuple.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("jsonl sink: %w", domain.ErrClosed)
	}
	if err := s.enc.Encode(t.Fields); err != nil {
		return fmt.Errorf("encode tuple: %w", err)
	}
	return nil
}

// Flush writes buffered lines.
func (s *JSONLines) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("flush jsonl: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *JSONLines) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.buf.Flush(), s.w.Close())
}
