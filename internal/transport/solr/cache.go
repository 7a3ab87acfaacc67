package solr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kailas-cloud/solrstream/internal/domain"
)

// ClientSource creates per-node clients carrying the cluster's credentials.
type ClientSource interface {
	NewShardClient(endpoint string) Client
}

// ClientCache hands out one client per node URL for the lifetime of a stream
// and closes them all together.
type ClientCache struct {
	mu      sync.Mutex
	source  ClientSource
	clients map[string]Client
	closed  bool
}

// NewClientCache creates a cache backed by source.
func NewClientCache(source ClientSource) *ClientCache {
	return &ClientCache{source: source, clients: map[string]Client{}}
}

// Get returns the cached client for baseURL, creating it on first use.
func (c *ClientCache) Get(baseURL string) (Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("client cache: %w", domain.ErrClosed)
	}
	if cl, ok := c.clients[baseURL]; ok {
		return cl, nil
	}
	cl := c.source.NewShardClient(baseURL)
	c.clients[baseURL] = cl
	return cl, nil
}

// Len returns the number of cached clients.
func (c *ClientCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// Close closes every cached client and joins their errors. Later calls are no-ops.
func (c *ClientCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	for url, cl := range c.clients {
		if err := cl.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", url, err))
		}
	}
	c.clients = nil
	return errors.Join(errs...)
}

// StreamContext carries what a stream needs beyond its request: the client cache
// and the partition descriptor of the calling worker.
type StreamContext struct {
	Cache      *ClientCache
	NumWorkers int
	WorkerID   int
}
