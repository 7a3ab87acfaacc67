package solrstream

import (
	"github.com/kailas-cloud/solrstream/internal/domain"
	"github.com/kailas-cloud/solrstream/internal/iterator"
	"github.com/kailas-cloud/solrstream/internal/transport/solr"
)

// Done is returned by Iterator.Next once the stream is exhausted.
var Done = iterator.Done

// Sentinel errors re-exported from the internal layers.
// Use errors.Is() to check.
var (
	ErrInvalidQuery          = domain.ErrInvalidQuery
	ErrShardNotFound         = domain.ErrShardNotFound
	ErrCollectionNotFound    = domain.ErrCollectionNotFound
	ErrClosed                = domain.ErrClosed
	ErrStreamException       = domain.ErrStreamException
	ErrOpen                  = iterator.ErrOpen
	ErrPartitionKeysRequired = solr.ErrPartitionKeysRequired
	ErrSkipTuple             = domain.ErrTupleSkipped
)
