package solrstream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	zkHost string
	urls   []string

	username   string
	password   string
	httpClient *http.Client
	timeout    time.Duration

	poolSize        int
	workersPerShard int

	logger     *slog.Logger
	zapLogger  *zap.Logger
	metricsReg prometheus.Registerer
}

// WithCloud sets the coordination-service address and the seed node URLs
// (e.g. http://solr1:8983/solr). At least one URL is required.
func WithCloud(zkHost string, urls ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.zkHost = zkHost
		c.urls = append(c.urls, urls...)
	})
}

// WithBasicAuth sends basic-auth credentials with every request.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithHTTPClient shares an http.Client with the SDK. The SDK will not close its idle connections.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout bounds every cluster request, including whole export streams.
// Default: no timeout.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithPoolSize sets how many shard streams Export runs at once. Default: 8.
func WithPoolSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.poolSize = n
	})
}

// WithWorkersPerShard splits every shard into n hash partitions during Export.
// The query must set partitionKeys when n > 1.
func WithWorkersPerShard(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workersPerShard = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithZapLogger sets the logger of the stream internals (filter merges, stream
// lifecycle, seed failover). Default: disabled.
func WithZapLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.zapLogger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
