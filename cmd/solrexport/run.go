package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrstream/internal/config"
	"github.com/kailas-cloud/solrstream/internal/db"
	dbValkey "github.com/kailas-cloud/solrstream/internal/db/valkey"
	"github.com/kailas-cloud/solrstream/internal/metrics"
	"github.com/kailas-cloud/solrstream/internal/repository/sink"
	chiTransport "github.com/kailas-cloud/solrstream/internal/transport/chi"
	exportuc "github.com/kailas-cloud/solrstream/internal/usecase/export"
	healthuc "github.com/kailas-cloud/solrstream/internal/usecase/health"
	"github.com/kailas-cloud/solrstream/internal/version"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Export the configured collection into the configured sink",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	runCmd.Flags().String("collection", "", "override export.collection")
	runCmd.Flags().StringArray("fq", nil, "additional filter query (repeatable)")
	runCmd.Flags().String("out", "", "override sink.path")
	runCmd.Flags().Bool("keep-serving", false, "keep the ops server up after the export until a signal arrives")
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, logger, env, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	logger.Info("Starting solrexport",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("collection", cfg.Export.Collection),
		zap.Strings("solr_urls", cfg.Solr.URLs),
		zap.String("sink", cfg.Sink.Type),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	// Register stream metrics explicitly (no init())
	metrics.RegisterStreamMetrics()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cloud, err := newCloudClient(cfg.Solr, logger)
	if err != nil {
		return err
	}
	defer cloud.Close()

	out, store, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	svc := exportuc.New(cloud, out,
		exportuc.WithPoolSize(cfg.Export.PoolSize),
		exportuc.WithLogger(logger),
	)

	// Pass a nil interface when there is no database.
	var storePinger healthuc.Pinger
	if store != nil {
		storePinger = store
	}
	healthSvc := healthuc.New(cloud, storePinger)

	var srv *http.Server
	if cfg.HTTP.Port > 0 {
		metrics.RegisterHTTPMetrics()
		server := chiTransport.NewServer(healthSvc, svc, cloud, cfg.Auth.APIKeys, logger)
		srv = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:      server.Router(),
			ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		}
		go func() {
			logger.Info("Starting ops HTTP server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", zap.Error(err))
			}
		}()
	}

	report, runErr := svc.Run(ctx, exportuc.Request{
		Collection:      cfg.Export.Collection,
		Params:          cfg.Export.Params(),
		WorkersPerShard: cfg.Export.WorkersPerShard,
	})
	if err := out.Close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close sink: %w", err))
	}

	for _, j := range report.Failed() {
		logger.Error("Shard export failed",
			zap.String("shard", j.Shard),
			zap.String("endpoint", j.Endpoint),
			zap.Int("worker_id", j.WorkerID),
			zap.Error(j.Err),
		)
	}

	if srv != nil {
		if keep, _ := cmd.Flags().GetBool("keep-serving"); keep && ctx.Err() == nil {
			logger.Info("Export finished, serving until signal")
			<-ctx.Done()
		}
		logger.Info("Shutting down ops HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	}

	if runErr != nil {
		return fmt.Errorf("export %s: %w", cfg.Export.Collection, runErr)
	}
	logger.Info("Export complete",
		zap.Int64("tuples", report.Tuples),
		zap.Int64("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	)
	return nil
}

// applyFlags overlays command-line overrides on the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	if c, _ := cmd.Flags().GetString("collection"); c != "" {
		cfg.Export.Collection = c
	}
	if fqs, _ := cmd.Flags().GetStringArray("fq"); len(fqs) > 0 {
		cfg.Export.FilterQueries = append(cfg.Export.FilterQueries, fqs...)
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		cfg.Sink.Path = out
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// buildSink creates the configured sink. The store is non-nil only for the valkey sink
// and is closed by the caller after the sink.
func buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (sink.Sink, db.Store, error) {
	switch cfg.Sink.Type {
	case config.SinkJSONLines, config.SinkJavabin:
		w, err := sink.OpenFile(cfg.Sink.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sink: %w", err)
		}
		if cfg.Sink.Type == config.SinkJSONLines {
			return sink.NewJSONLines(w), nil, nil
		}
		s, err := sink.NewJavabin(w)
		if err != nil {
			_ = w.Close()
			return nil, nil, fmt.Errorf("open javabin sink: %w", err)
		}
		return s, nil, nil

	case config.SinkValkey:
		store, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create valkey store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("valkey not ready: %w", err)
		}
		logger.Info("Connected to valkey", zap.Strings("addrs", cfg.Database.Addrs))
		return sink.NewValkey(store, sink.ValkeyConfig{
			Collection: cfg.Export.Collection,
			KeyPrefix:  cfg.Sink.KeyPrefix,
			IDField:    cfg.Sink.IDField,
			Format:     cfg.Sink.Format,
			BatchSize:  cfg.Sink.BatchSize,
		}), store, nil

	default:
		return nil, nil, fmt.Errorf("unknown sink type %q", cfg.Sink.Type)
	}
}
