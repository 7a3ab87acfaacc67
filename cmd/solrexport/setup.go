package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrstream/internal/config"
	logpkg "github.com/kailas-cloud/solrstream/internal/logger"
	"github.com/kailas-cloud/solrstream/internal/transport/solr"
)

// bootstrap loads the config for the command's environment and builds the logger.
func bootstrap(cmd *cobra.Command) (config.Config, *zap.Logger, string, error) {
	env := envFrom(cmd)

	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, env, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, env, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, env, nil
}

func newCloudClient(cfg config.SolrConfig, logger *zap.Logger) (*solr.CloudClient, error) {
	cloud, err := solr.NewCloudClient(solr.CloudConfig{
		ZkHost:   cfg.ZkHost,
		URLs:     cfg.URLs,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create cluster client: %w", err)
	}
	return cloud, nil
}
