// Package iterator exposes one shard's export stream as a single-pass pull iterator.
//
// A ShardIterator normalizes its query at construction (filter queries merged into
// one clause, export handler by default, no row cap, javabin responses), opens the
// stream on the first Next and releases the stream, its client cache and its
// per-shard client when the stream ends, fails or is closed.
package iterator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrstream/internal/domain/query"
	"github.com/kailas-cloud/solrstream/internal/domain/tuple"
	"github.com/kailas-cloud/solrstream/internal/metrics"
	"github.com/kailas-cloud/solrstream/internal/transport/solr"
)

// ClusterClient is the shared cluster client the iterator borrows. It is never closed here.
type ClusterClient interface {
	ZkHost() string
	NewShardClient(endpoint string) solr.Client
}

// TupleStream is the network stream the iterator drives.
type TupleStream interface {
	SetStreamContext(sctx *solr.StreamContext)
	Open(ctx context.Context) error
	Read() (*tuple.Tuple, error)
	Close() error
}

var _ TupleStream = (*solr.Stream)(nil)

type state int

const (
	stateConstructed state = iota
	stateOpen
	stateClosed
)

// ShardIterator streams the tuples of one shard. It is not safe for concurrent use.
type ShardIterator struct {
	endpoint   string
	cloud      ClusterClient
	params     *query.Params
	numWorkers int
	workerID   int

	handle     solr.Client
	ownsHandle bool

	logger    *zap.Logger
	newStream StreamFactory

	state    state
	stream   TupleStream
	cache    *solr.ClientCache
	active   bool
	count    int64
	closeErr error
}

// New creates an iterator over endpoint and normalizes params in place.
// It performs no network I/O; connection errors surface on the first Next.
func New(
	endpoint string, cloud ClusterClient, params *query.Params,
	numWorkers, workerID int, opts ...Option,
) *ShardIterator {
	if params == nil {
		params = query.New("")
	}
	it := &ShardIterator{
		endpoint:   endpoint,
		cloud:      cloud,
		params:     params,
		numWorkers: numWorkers,
		workerID:   workerID,
		logger:     zap.NewNop(),
		newStream:  defaultStreamFactory,
	}
	for _, o := range opts {
		o(it)
	}

	it.handle = cloud.NewShardClient(endpoint)
	it.ownsHandle = any(it.handle) != any(cloud)

	it.normalize()

	it.logger.Debug("Shard iterator created",
		zap.String("endpoint", endpoint),
		zap.String("zk_host", cloud.ZkHost()),
		zap.Int("num_workers", numWorkers),
		zap.Int("worker_id", workerID),
	)
	return it
}

// normalize rewrites the params for a streaming export request. Order matters:
// filters are merged before anything else touches the params.
func (it *ShardIterator) normalize() {
	if merged, ok := query.MergeFilterQueries(it.params); ok {
		metrics.FilterMergesTotal.Inc()
		it.logger.Info("Merged multiple filter queries into a single param", zap.String("fq", merged))
	}
	if it.params.RequestHandler() == "" {
		it.params.SetRequestHandler(query.ExportHandler)
	}
	it.params.ClearRows()
	it.params.Set(query.ParamWriterType, query.WriterJavabin)
}

// Endpoint returns the shard URL.
func (it *ShardIterator) Endpoint() string { return it.endpoint }

// Params returns the normalized params. Callers must not modify them.
func (it *ShardIterator) Params() *query.Params { return it.params }

// Count returns the number of tuples returned so far.
func (it *ShardIterator) Count() int64 { return it.count }

// Next returns the next tuple, or Done once the shard is exhausted or the iterator
// is closed. The first call opens the stream; ctx of that call bounds the whole stream.
// Any other error is terminal and the iterator is closed before it is returned.
func (it *ShardIterator) Next(ctx context.Context) (*tuple.Tuple, error) {
	switch it.state {
	case stateClosed:
		return nil, Done
	case stateConstructed:
		if err := it.open(ctx); err != nil {
			return nil, err
		}
	case stateOpen:
	}

	if err := ctx.Err(); err != nil {
		it.fail("read", err)
		return nil, fmt.Errorf("read shard %s: %w", it.endpoint, err)
	}

	t, err := it.stream.Read()
	if errors.Is(err, io.EOF) {
		if cerr := it.release(); cerr != nil {
			it.logger.Warn("Release after end of stream failed",
				zap.String("endpoint", it.endpoint), zap.Error(cerr))
		}
		it.logger.Debug("Shard stream exhausted",
			zap.String("endpoint", it.endpoint), zap.Int64("tuples", it.count))
		return nil, Done
	}
	if err != nil {
		it.fail("read", err)
		return nil, fmt.Errorf("read shard %s: %w", it.endpoint, err)
	}

	it.count++
	metrics.TuplesReadTotal.Inc()
	return t, nil
}

// open builds a fresh client cache and stream context and opens the stream.
func (it *ShardIterator) open(ctx context.Context) error {
	it.cache = solr.NewClientCache(it.cloud)
	sctx := &solr.StreamContext{
		Cache:      it.cache,
		NumWorkers: it.numWorkers,
		WorkerID:   it.workerID,
	}
	it.stream = it.newStream(it.endpoint, it.params)
	it.stream.SetStreamContext(sctx)
	it.state = stateOpen

	start := time.Now()
	if err := it.stream.Open(ctx); err != nil {
		metrics.StreamsOpenedTotal.WithLabelValues("error").Inc()
		it.fail("open", err)
		return &OpenError{Endpoint: it.endpoint, Err: err}
	}
	metrics.StreamOpenDuration.Observe(time.Since(start).Seconds())
	metrics.StreamsOpenedTotal.WithLabelValues("ok").Inc()
	metrics.StreamsActive.Inc()
	it.active = true

	it.logger.Debug("Shard stream opened",
		zap.String("endpoint", it.endpoint),
		zap.String("handler", it.params.RequestHandler()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (it *ShardIterator) fail(stage string, err error) {
	metrics.StreamErrorsTotal.WithLabelValues(stage).Inc()
	it.logger.Error("Shard stream failed",
		zap.String("endpoint", it.endpoint),
		zap.String("stage", stage),
		zap.Error(err),
	)
	if cerr := it.release(); cerr != nil {
		it.logger.Warn("Release after failure failed",
			zap.String("endpoint", it.endpoint), zap.Error(cerr))
	}
}

// Close releases the stream, the per-shard client (unless it is the shared cluster
// client) and the client cache. It is safe to call more than once and before the
// first Next; later calls return the outcome of the first release.
func (it *ShardIterator) Close() error {
	return it.release()
}

func (it *ShardIterator) release() error {
	if it.state == stateClosed {
		return it.closeErr
	}
	it.state = stateClosed

	var errs []error
	if it.stream != nil {
		if err := it.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream: %w", err))
		}
	}
	if it.active {
		metrics.StreamsActive.Dec()
		it.active = false
	}
	if it.ownsHandle {
		if err := it.handle.Close(); err != nil {
			it.logger.Debug("Close shard client failed",
				zap.String("endpoint", it.endpoint), zap.Error(err))
		}
	}
	if it.cache != nil {
		if err := it.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client cache: %w", err))
		}
	}

	it.closeErr = errors.Join(errs...)
	if it.closeErr != nil {
		metrics.StreamErrorsTotal.WithLabelValues("close").Inc()
	}
	return it.closeErr
}

// All returns a single-use sequence over the remaining tuples. The iterator is closed
// whenever the sequence stops, including a panic in the loop body. A release failure
// after the last tuple is yielded as a final error.
func (it *ShardIterator) All(ctx context.Context) iter.Seq2[*tuple.Tuple, error] {
	return func(yield func(*tuple.Tuple, error) bool) {
		defer func() {
			if it.state != stateClosed {
				_ = it.Close()
			}
		}()
		for {
			t, err := it.Next(ctx)
			if errors.Is(err, Done) {
				if cerr := it.Close(); cerr != nil {
					yield(nil, cerr)
				}
				return
			}
			if !yield(t, err) || err != nil {
				_ = it.Close()
				return
			}
		}
	}
}
