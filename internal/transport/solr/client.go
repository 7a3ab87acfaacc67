// Package solr is the HTTP transport to the search cluster: per-node clients,
// the cluster-aware client, a short-lived client cache and the tuple stream.
package solr

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/kailas-cloud/solrstream/internal/domain"
)

// Client is a handle to one node or to the whole cluster.
type Client interface {
	BaseURL() string
	Do(req *http.Request) (*http.Response, error)
	Close() error
}

// Credentials hold basic-auth credentials. Empty Username disables auth.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) apply(req *http.Request) {
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}

// Compile-time checks.
var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*CloudClient)(nil)
)

// HTTPClient talks to a single core or node URL.
type HTTPClient struct {
	baseURL       string
	zkHost        string
	http          *http.Client
	auth          Credentials
	ownsTransport bool
	closed        atomic.Bool
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient shares an existing http.Client. The HTTPClient will not close its connections.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.http = hc
		c.ownsTransport = false
	}
}

// WithCredentials enables basic auth.
func WithCredentials(auth Credentials) Option {
	return func(c *HTTPClient) { c.auth = auth }
}

// WithZkHost tags the client with the coordination-service address of its cluster.
func WithZkHost(zkHost string) Option {
	return func(c *HTTPClient) { c.zkHost = zkHost }
}

// NewHTTPClient creates a client for baseURL with its own connection pool unless
// WithHTTPClient is given.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		ownsTransport: true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the node or core URL without a trailing slash.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// ZkHost returns the coordination-service address the client was created for.
func (c *HTTPClient) ZkHost() string { return c.zkHost }

// Do sends req with the configured credentials.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client %s: %w", c.baseURL, domain.ErrClosed)
	}
	c.auth.apply(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Redacted(), err)
	}
	return resp, nil
}

// Closed reports whether Close has been called.
func (c *HTTPClient) Closed() bool { return c.closed.Load() }

// Close releases idle connections of an owned pool. Safe to call more than once.
func (c *HTTPClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.ownsTransport {
		c.http.CloseIdleConnections()
	}
	return nil
}
