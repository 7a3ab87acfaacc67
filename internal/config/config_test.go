package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/solrstream/internal/domain"
	"github.com/kailas-cloud/solrstream/internal/domain/query"
)

func validConfig() Config {
	cfg := Config{
		Solr: SolrConfig{URLs: []string{"http://localhost:8983/solr"}},
		Export: ExportConfig{
			Collection: "books",
			Fields:     "id,title",
			Sort:       "id asc",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"missing solr urls", func(c *Config) { c.Solr.URLs = nil }, "solr.urls is required"},
		{"missing collection", func(c *Config) { c.Export.Collection = "" }, "export.collection is required"},
		{"missing partition keys", func(c *Config) { c.Export.WorkersPerShard = 4 }, "export.partition_keys"},
		{"export without sort", func(c *Config) { c.Export.Sort = "" }, "sort"},
		{"unknown sink", func(c *Config) { c.Sink.Type = "kafka" }, "sink.type"},
		{"valkey sink without addrs", func(c *Config) { c.Sink.Type = SinkValkey }, "database.addrs"},
		{"unknown valkey format", func(c *Config) {
			c.Sink.Type = SinkValkey
			c.Database.Addrs = []string{"localhost:6379"}
			c.Sink.Format = "xml"
		}, "sink.valkey_format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestValidate_ExportErrorIsInvalidQuery(t *testing.T) {
	cfg := validConfig()
	cfg.Export.Fields = ""
	if err := cfg.Validate(); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestValidate_SelectHandlerSkipsExportChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Export.RequestHandler = query.SelectHandler
	cfg.Export.Sort = ""
	cfg.Export.Fields = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 10 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.Export.Query != "*:*" {
		t.Errorf("expected q='*:*', got %q", cfg.Export.Query)
	}
	if cfg.Export.RequestHandler != query.ExportHandler {
		t.Errorf("expected qt=%q, got %q", query.ExportHandler, cfg.Export.RequestHandler)
	}
	if cfg.Export.WorkersPerShard != 1 {
		t.Errorf("expected WorkersPerShard=1, got %d", cfg.Export.WorkersPerShard)
	}
	if cfg.Export.PoolSize != 8 {
		t.Errorf("expected PoolSize=8, got %d", cfg.Export.PoolSize)
	}
	if cfg.Sink.Type != SinkJSONLines || cfg.Sink.IDField != "id" || cfg.Sink.BatchSize != 500 {
		t.Errorf("unexpected sink defaults: %+v", cfg.Sink)
	}
	if cfg.Sink.KeyPrefix != "solrstream:" {
		t.Errorf("expected KeyPrefix='solrstream:', got %q", cfg.Sink.KeyPrefix)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30},
		Export: ExportConfig{Query: "title:go", PoolSize: 2, RequestHandler: query.SelectHandler},
		Sink:   SinkConfig{Type: SinkJavabin, KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Export.Query != "title:go" || cfg.Export.PoolSize != 2 || cfg.Export.RequestHandler != query.SelectHandler {
		t.Errorf("export overridden: %+v", cfg.Export)
	}
	if cfg.Sink.Type != SinkJavabin || cfg.Sink.KeyPrefix != "custom:" {
		t.Errorf("sink overridden: %+v", cfg.Sink)
	}
}

func TestExportConfig_Params(t *testing.T) {
	e := ExportConfig{
		Query:          "*:*",
		FilterQueries:  []string{"type:book", "year:2020"},
		Fields:         "id",
		Sort:           "id asc",
		RequestHandler: query.ExportHandler,
		PartitionKeys:  "id",
		ExtraParams:    map[string]string{"distrib": "false"},
	}
	p := e.Params()

	if diff := cmp.Diff([]string{"type:book", "year:2020"}, p.FilterQueries()); diff != "" {
		t.Errorf("fq mismatch (-want +got):\n%s", diff)
	}
	for name, want := range map[string]string{
		query.ParamFields:         "id",
		query.ParamSort:           "id asc",
		query.ParamRequestHandler: query.ExportHandler,
		query.ParamPartitionKeys:  "id",
		query.ParamDistrib:        "false",
	} {
		if got := p.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("SOLR_URL", "http://solr1:8983/solr")
	t.Setenv("SOLR_PASSWORD", "s3cret")

	doc := []byte(`
solr:
  urls: ["${SOLR_URL}"]
  username: ${SOLR_USER:-solr}
  password: ${SOLR_PASSWORD}
export:
  collection: books
  fl: id
  sort: id asc
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{"http://solr1:8983/solr"}, cfg.Solr.URLs); diff != "" {
		t.Errorf("urls mismatch (-want +got):\n%s", diff)
	}
	if cfg.Solr.Username != "solr" || cfg.Solr.Password != "s3cret" {
		t.Errorf("credentials = %q/%q", cfg.Solr.Username, cfg.Solr.Password)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("solr: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("export:\n  collection: books\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Export.Collection == "" || len(cfg.Solr.URLs) == 0 {
		t.Errorf("local config incomplete: %+v", cfg)
	}
}
