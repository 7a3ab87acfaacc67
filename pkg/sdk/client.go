package solrstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrstream/internal/iterator"
	"github.com/kailas-cloud/solrstream/internal/transport/solr"
	exportuc "github.com/kailas-cloud/solrstream/internal/usecase/export"
)

// cluster is the part of the cluster client the SDK drives; swapped in tests.
type cluster interface {
	exportuc.ClusterClient
	Ping(ctx context.Context) error
	Close() error
}

var _ cluster = (*solr.CloudClient)(nil)

// Client is the solrstream SDK entry point. It is safe for concurrent use.
type Client struct {
	cloud           cluster
	poolSize        int
	workersPerShard int
	zapLogger       *zap.Logger
	obs             *observer
	iterOpts        []iterator.Option
}

// New creates a Client and checks that a seed node answers.
// The provided context bounds the initial check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{poolSize: exportuc.DefaultPoolSize}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.urls) == 0 {
		return nil, errors.New("solrstream: seed node URL required (use WithCloud)")
	}
	if cfg.zapLogger == nil {
		cfg.zapLogger = zap.NewNop()
	}

	cloud, err := solr.NewCloudClient(solr.CloudConfig{
		ZkHost:     cfg.zkHost,
		URLs:       cfg.urls,
		Username:   cfg.username,
		Password:   cfg.password,
		Timeout:    cfg.timeout,
		HTTPClient: cfg.httpClient,
		Logger:     cfg.zapLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("solrstream: create cluster client: %w", err)
	}

	if err := cloud.Ping(ctx); err != nil {
		_ = cloud.Close()
		return nil, fmt.Errorf("solrstream: cluster not reachable: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		_ = cloud.Close()
		return nil, err
	}
	return newClient(cloud, cfg, obs), nil
}

func newClient(cloud cluster, cfg *clientConfig, obs *observer, iterOpts ...iterator.Option) *Client {
	return &Client{
		cloud:           cloud,
		poolSize:        cfg.poolSize,
		workersPerShard: cfg.workersPerShard,
		zapLogger:       cfg.zapLogger,
		obs:             obs,
		iterOpts:        iterOpts,
	}
}

// Close releases the connection pool. Iterators still open keep working until they end.
func (c *Client) Close() error {
	if err := c.cloud.Close(); err != nil {
		return fmt.Errorf("solrstream: close: %w", err)
	}
	return nil
}

// Ping checks that some seed node answers.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.cloud.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Shards lists the shards of collection, sorted by name.
func (c *Client) Shards(ctx context.Context, collection string) (shards []Shard, err error) {
	start := time.Now()
	defer func() { c.obs.observe("shards", start, err) }()

	shards, err = c.cloud.Shards(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("shards of %s: %w", collection, err)
	}
	return shards, nil
}

// Iterator returns an unopened iterator over one shard endpoint. q is normalized
// in place: filter queries merged, export handler by default, rows cleared,
// javabin responses. numWorkers and workerID split the shard when numWorkers > 1,
// which requires the partitionKeys parameter.
func (c *Client) Iterator(endpoint string, q *Query, numWorkers, workerID int) *Iterator {
	opts := append([]iterator.Option{iterator.WithLogger(c.zapLogger)}, c.iterOpts...)
	return iterator.New(endpoint, c.cloud, q, numWorkers, workerID, opts...)
}

// TupleFunc receives every exported tuple. Calls are serialized. Returning
// ErrSkipTuple (or an error wrapping it) counts the tuple as skipped; any other
// error stops that shard.
type TupleFunc func(shard string, t *Tuple) error

// Export streams every shard of collection through fn and reports per-shard outcomes.
// q is copied for every shard and left untouched. A failed shard does not stop
// the others; the returned error joins every failure.
func (c *Client) Export(ctx context.Context, collection string, q *Query, fn TupleFunc) (report ExportReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("export", start, err) }()

	if fn == nil {
		return ExportReport{}, fmt.Errorf("solrstream: nil TupleFunc: %w", ErrInvalidQuery)
	}

	var params *Query
	if q != nil {
		params = q.Clone()
	}
	svc := exportuc.New(c.cloud, &funcSink{fn: fn},
		exportuc.WithPoolSize(c.poolSize),
		exportuc.WithLogger(c.zapLogger),
		exportuc.WithIteratorOptions(c.iterOpts...),
	)

	report, err = svc.Run(ctx, exportuc.Request{
		Collection:      collection,
		Params:          params,
		WorkersPerShard: c.workersPerShard,
	})
	c.obs.exported(collection, report)
	return report, err
}

// funcSink serializes calls to a TupleFunc.
type funcSink struct {
	mu sync.Mutex
	fn TupleFunc
}

func (s *funcSink) Write(_ context.Context, shard string, t *Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn(shard, t)
}

func (s *funcSink) Flush(context.Context) error { return nil }
