package solrstream

import (
	"github.com/kailas-cloud/solrstream/internal/domain/query"
	"github.com/kailas-cloud/solrstream/internal/domain/tuple"
	"github.com/kailas-cloud/solrstream/internal/iterator"
	"github.com/kailas-cloud/solrstream/internal/transport/solr"
	exportuc "github.com/kailas-cloud/solrstream/internal/usecase/export"
)

type (
	// Query holds the request parameters of a stream.
	Query = query.Params
	// Tuple is one record of a stream.
	Tuple = tuple.Tuple
	// Shard is one slice of a collection and its replicas.
	Shard = solr.Shard
	// Replica is one copy of a shard.
	Replica = solr.Replica
	// Iterator streams the tuples of one shard. It is not safe for concurrent use.
	Iterator = iterator.ShardIterator
	// OpenError reports a stream that could not be opened.
	OpenError = iterator.OpenError
	// StreamError is an exception raised by the cluster inside a stream.
	StreamError = solr.StreamError
	// ExportReport summarizes an Export call.
	ExportReport = exportuc.Report
	// ShardReport is the outcome of one shard stream of an Export call.
	ShardReport = exportuc.JobReport
)

// Request handlers.
const (
	ExportHandler = query.ExportHandler
	SelectHandler = query.SelectHandler
)

// NewQuery creates a Query with q set.
func NewQuery(q string) *Query { return query.New(q) }
