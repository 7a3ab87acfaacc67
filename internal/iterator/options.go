package iterator

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrstream/internal/domain/query"
	"github.com/kailas-cloud/solrstream/internal/transport/solr"
)

// StreamFactory creates the unopened stream for an endpoint and the normalized params.
type StreamFactory func(endpoint string, params *query.Params) TupleStream

// Option configures a ShardIterator.
type Option func(*ShardIterator)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(it *ShardIterator) {
		if l != nil {
			it.logger = l
		}
	}
}

// WithStreamFactory replaces the HTTP stream, mostly for tests.
func WithStreamFactory(f StreamFactory) Option {
	return func(it *ShardIterator) {
		if f != nil {
			it.newStream = f
		}
	}
}

func defaultStreamFactory(endpoint string, params *query.Params) TupleStream {
	return solr.NewStream(endpoint, params)
}
