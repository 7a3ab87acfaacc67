package solr

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/kailas-cloud/solrstream/internal/javabin"
)

// capturedRequest is what the fake node saw.
type capturedRequest struct {
	Path     string
	Form     url.Values
	User     string
	Password string
}

// fakeNode serves docs as a javabin export response and records requests.
type fakeNode struct {
	srv  *httptest.Server
	mu   sync.Mutex
	reqs []capturedRequest
	docs []map[string]any
}

func newFakeNode(t *testing.T, docs []map[string]any) *fakeNode {
	t.Helper()
	n := &fakeNode{docs: docs}
	n.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		user, pass, _ := r.BasicAuth()
		n.mu.Lock()
		n.reqs = append(n.reqs, capturedRequest{Path: r.URL.Path, Form: r.PostForm, User: user, Password: pass})
		n.mu.Unlock()

		w.Header().Set("Content-Type", "application/octet-stream")
		dw, err := javabin.NewDocWriter(w)
		if err != nil {
			t.Errorf("doc writer: %v", err)
			return
		}
		for _, d := range n.docs {
			if err := dw.Write(d); err != nil {
				t.Errorf("write doc: %v", err)
				return
			}
		}
		if err := dw.Close(); err != nil {
			t.Errorf("close doc writer: %v", err)
		}
	}))
	t.Cleanup(n.srv.Close)
	return n
}

func (n *fakeNode) URL() string { return n.srv.URL + "/solr/coll_shard1_replica_n1" }

func (n *fakeNode) requests() []capturedRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]capturedRequest(nil), n.reqs...)
}

// staticSource hands out pre-built clients and counts calls.
type staticSource struct {
	mu      sync.Mutex
	created []string
}

func (s *staticSource) NewShardClient(endpoint string) Client {
	s.mu.Lock()
	s.created = append(s.created, endpoint)
	s.mu.Unlock()
	return NewHTTPClient(endpoint)
}
