package solr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrstream/internal/domain"
)

// CloudConfig holds the cluster client settings.
type CloudConfig struct {
	ZkHost     string   // coordination-service address, passed to per-node clients
	URLs       []string // seed node URLs, e.g. http://host:8983/solr
	Username   string
	Password   string
	Timeout    time.Duration // per request; 0 = none
	HTTPClient *http.Client  // optional shared client
	Logger     *zap.Logger
}

// CloudClient is the cluster-aware client shared by every shard iterator.
// It is safe for concurrent use.
type CloudClient struct {
	zkHost string
	seeds  []string
	http   *http.Client
	auth   Credentials
	logger *zap.Logger
	closed atomic.Bool
}

// NewCloudClient creates a cluster client. At least one seed URL is required.
func NewCloudClient(cfg CloudConfig) (*CloudClient, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.New("solr: at least one seed url is required")
	}
	seeds := make([]string, 0, len(cfg.URLs))
	for _, u := range cfg.URLs {
		if _, err := url.Parse(u); err != nil {
			return nil, fmt.Errorf("solr: invalid seed url %q: %w", u, err)
		}
		seeds = append(seeds, strings.TrimRight(u, "/"))
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.Timeout,
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudClient{
		zkHost: cfg.ZkHost,
		seeds:  seeds,
		http:   hc,
		auth:   Credentials{Username: cfg.Username, Password: cfg.Password},
		logger: logger,
	}, nil
}

// ZkHost returns the coordination-service address.
func (c *CloudClient) ZkHost() string { return c.zkHost }

// BaseURL returns the first seed URL.
func (c *CloudClient) BaseURL() string { return c.seeds[0] }

// Credentials returns the credentials handed to per-node clients.
func (c *CloudClient) Credentials() Credentials { return c.auth }

// Do sends req with the cluster credentials.
func (c *CloudClient) Do(req *http.Request) (*http.Response, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("cloud client: %w", domain.ErrClosed)
	}
	c.auth.apply(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Redacted(), err)
	}
	return resp, nil
}

// NewShardClient returns a client for one node or core URL that reuses the cluster
// credentials and connection pool. The returned client does not own the pool.
func (c *CloudClient) NewShardClient(endpoint string) Client {
	return NewHTTPClient(endpoint,
		WithHTTPClient(c.http),
		WithCredentials(c.auth),
		WithZkHost(c.zkHost),
	)
}

// Closed reports whether Close has been called.
func (c *CloudClient) Closed() bool { return c.closed.Load() }

// Close releases the connection pool. Safe to call more than once.
func (c *CloudClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.http.CloseIdleConnections()
	return nil
}

// Ping checks that some seed node answers its system info endpoint.
func (c *CloudClient) Ping(ctx context.Context) error {
	_, err := c.getJSON(ctx, "/admin/info/system", url.Values{"wt": {"json"}}, nil)
	return err
}

// Replica is one copy of a shard.
type Replica struct {
	Name     string
	Core     string
	BaseURL  string
	NodeName string
	State    string
	Leader   bool
	Live     bool
}

// CoreURL is the URL requests for this replica are sent to.
func (r Replica) CoreURL() string {
	return strings.TrimRight(r.BaseURL, "/") + "/" + r.Core
}

// Active reports whether the replica can serve requests.
func (r Replica) Active() bool {
	return r.State == "active" && r.Live
}

// Shard is a slice of a collection and its replicas.
type Shard struct {
	Name     string
	State    string
	Replicas []Replica
}

// Endpoint picks the active leader, else the first active replica.
func (s Shard) Endpoint() (string, error) {
	var fallback string
	for _, r := range s.Replicas {
		if !r.Active() {
			continue
		}
		if r.Leader {
			return r.CoreURL(), nil
		}
		if fallback == "" {
			fallback = r.CoreURL()
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("shard %s has no active replica: %w", s.Name, domain.ErrShardNotFound)
	}
	return fallback, nil
}

type clusterStatus struct {
	Cluster struct {
		Collections map[string]struct {
			Shards map[string]struct {
				State    string `json:"state"`
				Replicas map[string]struct {
					Core     string `json:"core"`
					BaseURL  string `json:"base_url"`
					NodeName string `json:"node_name"`
					State    string `json:"state"`
					Leader   string `json:"leader"`
				} `json:"replicas"`
			} `json:"shards"`
		} `json:"collections"`
		LiveNodes []string `json:"live_nodes"`
	} `json:"cluster"`
}

// Shards lists the shards of collection, sorted by name, using the collections API.
func (c *CloudClient) Shards(ctx context.Context, collection string) ([]Shard, error) {
	var st clusterStatus
	params := url.Values{
		"action":     {"CLUSTERSTATUS"},
		"collection": {collection},
		"wt":         {"json"},
	}
	if _, err := c.getJSON(ctx, "/admin/collections", params, &st); err != nil {
		return nil, fmt.Errorf("cluster status: %w", err)
	}
	coll, ok := st.Cluster.Collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collection, domain.ErrCollectionNotFound)
	}
	live := make(map[string]struct{}, len(st.Cluster.LiveNodes))
	for _, n := range st.Cluster.LiveNodes {
		live[n] = struct{}{}
	}

	shards := make([]Shard, 0, len(coll.Shards))
	for name, sh := range coll.Shards {
		shard := Shard{Name: name, State: sh.State}
		for rname, r := range sh.Replicas {
			_, isLive := live[r.NodeName]
			shard.Replicas = append(shard.Replicas, Replica{
				Name:     rname,
				Core:     r.Core,
				BaseURL:  r.BaseURL,
				NodeName: r.NodeName,
				State:    r.State,
				Leader:   r.Leader == "true",
				Live:     isLive || len(live) == 0,
			})
		}
		sort.Slice(shard.Replicas, func(i, j int) bool { return shard.Replicas[i].Name < shard.Replicas[j].Name })
		shards = append(shards, shard)
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i].Name < shards[j].Name })
	return shards, nil
}

// getJSON tries each seed in order and decodes the first successful answer into out.
// It returns the seed that answered.
func (c *CloudClient) getJSON(ctx context.Context, path string, params url.Values, out any) (string, error) {
	var errs []error
	for _, seed := range c.seeds {
		err := c.getJSONFrom(ctx, seed, path, params, out)
		if err == nil {
			return seed, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warn("Seed node request failed", zap.String("seed", seed), zap.String("path", path), zap.Error(err))
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

func (c *CloudClient) getJSONFrom(ctx context.Context, seed, path string, params url.Values, out any) error {
	u := seed + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return newHTTPError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
