// Package sink writes exported tuples to their destination.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/solrstream/internal/domain/tuple"
)

// Sink receives the tuples of every shard. Implementations are safe for concurrent use.
// Write returns domain.ErrTupleSkipped for a tuple the sink deliberately dropped.
type Sink interface {
	Write(ctx context.Context, shard string, t *tuple.Tuple) error
	Flush(ctx context.Context) error
	Close() error
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// OpenFile opens path for writing. "" and "-" mean stdout, which is never closed.
func OpenFile(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
