package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/solrstream/internal/domain/query"
)

// Sink types.
const (
	SinkJSONLines = "jsonl"
	SinkJavabin   = "javabin"
	SinkValkey    = "valkey"
)

// Config holds the solrexport configuration.
type Config struct {
	Solr     SolrConfig     `yaml:"solr"`
	Export   ExportConfig   `yaml:"export"`
	Sink     SinkConfig     `yaml:"sink"`
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds ops API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds ops HTTP server settings. Port 0 disables the server.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SolrConfig holds cluster connection settings.
type SolrConfig struct {
	ZkHost     string   `yaml:"zk_host"`
	URLs       []string `yaml:"urls"` // seed nodes, e.g. http://solr1:8983/solr
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	TimeoutSec int      `yaml:"timeout_sec"` // 0 = no client timeout
}

// ExportConfig describes what to export and how wide to fan out.
type ExportConfig struct {
	Collection      string            `yaml:"collection"`
	Query           string            `yaml:"q"`
	FilterQueries   []string          `yaml:"fq"`
	Fields          string            `yaml:"fl"`
	Sort            string            `yaml:"sort"`
	RequestHandler  string            `yaml:"qt"` // default: /export
	ExtraParams     map[string]string `yaml:"params"`
	WorkersPerShard int               `yaml:"workers_per_shard"`
	PartitionKeys   string            `yaml:"partition_keys"`
	PoolSize        int               `yaml:"pool_size"`
}

// SinkConfig holds the tuple destination.
type SinkConfig struct {
	Type      string `yaml:"type"` // jsonl (default), javabin, valkey
	Path      string `yaml:"path"` // file for jsonl/javabin; "-" or empty = stdout
	KeyPrefix string `yaml:"key_prefix"`
	IDField   string `yaml:"id_field"`
	Format    string `yaml:"valkey_format"` // json (default) or hash
	BatchSize int    `yaml:"batch_size"`
}

// DatabaseConfig holds Valkey connection settings for the valkey sink.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Export.Query == "" {
		c.Export.Query = "*:*"
	}
	if c.Export.RequestHandler == "" {
		c.Export.RequestHandler = query.ExportHandler
	}
	if c.Export.WorkersPerShard <= 0 {
		c.Export.WorkersPerShard = 1
	}
	if c.Export.PoolSize <= 0 {
		c.Export.PoolSize = 8
	}
	if c.Sink.Type == "" {
		c.Sink.Type = SinkJSONLines
	}
	if c.Sink.KeyPrefix == "" {
		c.Sink.KeyPrefix = "solrstream:"
	}
	if c.Sink.IDField == "" {
		c.Sink.IDField = "id"
	}
	if c.Sink.Format == "" {
		c.Sink.Format = "json"
	}
	if c.Sink.BatchSize <= 0 {
		c.Sink.BatchSize = 500
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 0 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Solr.URLs) == 0 {
		return fmt.Errorf("solr.urls is required")
	}
	if c.Export.Collection == "" {
		return fmt.Errorf("export.collection is required")
	}
	if c.Export.WorkersPerShard > 1 && c.Export.PartitionKeys == "" {
		return fmt.Errorf("export.partition_keys is required when export.workers_per_shard > 1")
	}
	if err := c.Export.Params().ValidateExport(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	switch c.Sink.Type {
	case SinkJSONLines, SinkJavabin:
		// ok
	case SinkValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for sink.type %q", SinkValkey)
		}
		if c.Sink.Format != "json" && c.Sink.Format != "hash" {
			return fmt.Errorf("sink.valkey_format must be \"json\" or \"hash\", got %q", c.Sink.Format)
		}
	default:
		return fmt.Errorf("sink.type must be %q, %q or %q, got %q", SinkJSONLines, SinkJavabin, SinkValkey, c.Sink.Type)
	}
	return nil
}

// Params builds the export request parameters.
func (e ExportConfig) Params() *query.Params {
	p := query.New(e.Query).AddFilterQuery(e.FilterQueries...)
	if e.Fields != "" {
		p.Set(query.ParamFields, e.Fields)
	}
	if e.Sort != "" {
		p.Set(query.ParamSort, e.Sort)
	}
	if e.RequestHandler != "" {
		p.SetRequestHandler(e.RequestHandler)
	}
	if e.PartitionKeys != "" {
		p.Set(query.ParamPartitionKeys, e.PartitionKeys)
	}
	for k, v := range e.ExtraParams {
		p.Set(k, v)
	}
	return p
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
