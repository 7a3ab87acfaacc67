package iterator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/solrstream/internal/domain/query"
	"github.com/kailas-cloud/solrstream/internal/javabin"
	"github.com/kailas-cloud/solrstream/internal/transport/solr"
)

func TestShardIterator_OverHTTP(t *testing.T) {
	var gotPath string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotPath, gotForm = r.URL.Path, r.PostForm

		dw, err := javabin.NewDocWriter(w)
		if err != nil {
			t.Errorf("doc writer: %v", err)
			return
		}
		for _, id := range []string{"a", "b", "c"} {
			_ = dw.Write(map[string]any{"id": id, "price": 1.5})
		}
		_ = dw.Close()
	}))
	defer srv.Close()

	cloud, err := solr.NewCloudClient(solr.CloudConfig{ZkHost: "zk:2181", URLs: []string{srv.URL + "/solr"}})
	if err != nil {
		t.Fatal(err)
	}
	defer cloud.Close()

	params := query.New("*:*").
		AddFilterQuery("type:book", "year:[2000 TO *]").
		Set(query.ParamFields, "id,price").
		Set(query.ParamSort, "id asc").
		Set(query.ParamPartitionKeys, "id").
		SetRows(100)

	it := New(srv.URL+"/solr/books_shard1_replica_n1", cloud, params, 2, 0)

	var ids []string
	for tp, err := range it.All(context.Background()) {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		id, _ := tp.String("id")
		ids = append(ids, id)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	if gotPath != "/solr/books_shard1_replica_n1/export" {
		t.Errorf("path = %q", gotPath)
	}
	wantFQ := []string{"(type:book) AND (year:[2000 TO *])", solr.HashFilter(2, 0)}
	if diff := cmp.Diff(wantFQ, gotForm["fq"]); diff != "" {
		t.Errorf("fq mismatch (-want +got):\n%s", diff)
	}
	if gotForm.Has("rows") {
		t.Error("rows must not be sent")
	}
	if gotForm.Get("wt") != "javabin" {
		t.Errorf("wt = %q", gotForm.Get("wt"))
	}

	if cloud.Closed() {
		t.Error("iterator must not close the cluster client")
	}
	if h, ok := it.handle.(*solr.HTTPClient); !ok || !h.Closed() {
		t.Error("dedicated shard client must be closed after the stream ends")
	}
}

func TestShardIterator_UnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL
	srv.Close()

	cloud, _ := solr.NewCloudClient(solr.CloudConfig{URLs: []string{dead + "/solr"}})
	defer cloud.Close()

	it := New(dead+"/solr/books_shard1_replica_n1", cloud, query.New("*:*"), 1, 0)
	_, err := it.Next(context.Background())
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if err := it.Close(); err != nil {
		t.Errorf("Close after failed open: %v", err)
	}
}
