package export

import (
	"context"

	"github.com/kailas-cloud/solrstream/internal/domain/tuple"
	"github.com/kailas-cloud/solrstream/internal/iterator"
	"github.com/kailas-cloud/solrstream/internal/transport/solr"
)

// ClusterClient discovers shards and hands out per-shard clients.
type ClusterClient interface {
	iterator.ClusterClient
	Shards(ctx context.Context, collection string) ([]solr.Shard, error)
}

// Sink receives tuples from every shard job concurrently.
type Sink interface {
	Write(ctx context.Context, shard string, t *tuple.Tuple) error
	Flush(ctx context.Context) error
}
