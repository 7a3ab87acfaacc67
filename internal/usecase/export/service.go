package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrstream/internal/domain"
	"github.com/kailas-cloud/solrstream/internal/domain/query"
	"github.com/kailas-cloud/solrstream/internal/iterator"
	"github.com/kailas-cloud/solrstream/internal/metrics"
)

// DefaultPoolSize bounds the number of shard streams open at once.
const DefaultPoolSize = 8

// Request describes one export run.
type Request struct {
	Collection      string
	Params          *query.Params
	WorkersPerShard int // >1 splits every shard by hash; requires partitionKeys
}

// JobReport is the outcome of one (shard, worker) stream.
type JobReport struct {
	Shard    string
	Endpoint string
	WorkerID int
	Tuples   int64
	Skipped  int64
	Duration time.Duration
	Err      error
}

// Report summarizes an export run.
type Report struct {
	Collection string
	Jobs       []JobReport
	Tuples     int64
	Skipped    int64
	Duration   time.Duration
}

// Failed returns the jobs that ended with an error.
func (r Report) Failed() []JobReport {
	var out []JobReport
	for _, j := range r.Jobs {
		if j.Err != nil {
			out = append(out, j)
		}
	}
	return out
}

// Option configures a Service.
type Option func(*Service)

// WithPoolSize sets how many shard streams run concurrently.
func WithPoolSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.poolSize = n
		}
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIteratorOptions passes options to every shard iterator.
func WithIteratorOptions(opts ...iterator.Option) Option {
	return func(s *Service) { s.iterOpts = append(s.iterOpts, opts...) }
}

// Service exports a collection shard by shard into a sink.
type Service struct {
	cloud    ClusterClient
	sink     Sink
	poolSize int
	logger   *zap.Logger
	iterOpts []iterator.Option

	progress tracker
	running  sync.Mutex
}

// New creates a Service.
func New(cloud ClusterClient, s Sink, opts ...Option) *Service {
	svc := &Service{
		cloud:    cloud,
		sink:     s,
		poolSize: DefaultPoolSize,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// Progress returns a snapshot of the current or last run. Safe for concurrent use.
func (s *Service) Progress() Progress {
	return s.progress.snapshot()
}

type job struct {
	shard    string
	endpoint string
	workerID int
}

// Run streams every shard of the collection into the sink and flushes it.
// Jobs run on a bounded pool; a failed job does not stop the others. The returned
// error joins every job failure. Only one Run executes at a time.
func (s *Service) Run(ctx context.Context, req Request) (Report, error) {
	if req.Collection == "" {
		return Report{}, fmt.Errorf("collection is required: %w", domain.ErrInvalidQuery)
	}
	if !s.running.TryLock() {
		return Report{}, errors.New("export already running")
	}
	defer s.running.Unlock()

	workers := max(req.WorkersPerShard, 1)
	params := req.Params
	if params == nil {
		params = query.New("*:*")
	}

	start := time.Now()
	report := Report{Collection: req.Collection}

	shards, err := s.cloud.Shards(ctx, req.Collection)
	if err != nil {
		s.progress.start(req.Collection, 0)
		s.progress.finish(err)
		return report, fmt.Errorf("list shards of %s: %w", req.Collection, err)
	}

	var jobs []job
	for _, sh := range shards {
		endpoint, err := sh.Endpoint()
		if err != nil {
			report.Jobs = append(report.Jobs, JobReport{Shard: sh.Name, Err: err})
			continue
		}
		for w := range workers {
			jobs = append(jobs, job{shard: sh.Name, endpoint: endpoint, workerID: w})
		}
	}
	s.progress.start(req.Collection, len(jobs))

	s.logger.Info("Export started",
		zap.String("collection", req.Collection),
		zap.Int("shards", len(shards)),
		zap.Int("jobs", len(jobs)),
		zap.Int("pool_size", s.poolSize),
		zap.String("params", params.String()),
	)

	results, err := s.runJobs(ctx, req.Collection, params, workers, jobs)
	if err != nil {
		s.progress.finish(err)
		return report, err
	}
	report.Jobs = append(report.Jobs, results...)

	var errs []error
	for _, j := range report.Jobs {
		report.Tuples += j.Tuples
		report.Skipped += j.Skipped
		if j.Err != nil {
			errs = append(errs, fmt.Errorf("shard %s worker %d: %w", j.Shard, j.WorkerID, j.Err))
		}
	}
	if err := s.sink.Flush(ctx); err != nil {
		s.logger.Error("Sink flush failed",
			zap.String("collection", req.Collection), zap.Error(err))
		errs = append(errs, fmt.Errorf("flush sink: %w", err))
	}
	report.Duration = time.Since(start)

	runErr := errors.Join(errs...)
	s.progress.finish(runErr)

	s.logger.Info("Export finished",
		zap.String("collection", req.Collection),
		zap.Int64("tuples", report.Tuples),
		zap.Int64("skipped", report.Skipped),
		zap.Int("failed_jobs", len(report.Failed())),
		zap.Duration("duration", report.Duration),
	)
	return report, runErr
}

func (s *Service) runJobs(
	ctx context.Context, collection string, params *query.Params, workers int, jobs []job,
) ([]JobReport, error) {
	pool, err := ants.NewPool(s.poolSize, ants.WithPanicHandler(func(v any) {
		s.logger.Error("Export job panic", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]JobReport, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		results[i] = JobReport{Shard: j.shard, Endpoint: j.endpoint, WorkerID: j.workerID}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			s.runJob(ctx, collection, params.Clone(), workers, &results[i])
		})
		if submitErr != nil {
			wg.Done()
			results[i].Err = fmt.Errorf("submit job: %w", submitErr)
		}
	}
	wg.Wait()
	return results, nil
}

// runJob drains one shard stream into the sink. r is owned by this job.
func (s *Service) runJob(ctx context.Context, collection string, params *query.Params, workers int, r *JobReport) {
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			r.Err = fmt.Errorf("job panic: %v", v)
		}
		r.Duration = time.Since(start)
		s.progress.jobDone()
		status := "ok"
		if r.Err != nil {
			status = "error"
		}
		metrics.ExportShardsTotal.WithLabelValues(collection, status).Inc()
	}()
	log := s.logger.With(
		zap.String("shard", r.Shard),
		zap.String("endpoint", r.Endpoint),
		zap.Int("worker_id", r.WorkerID),
	)
	opts := append([]iterator.Option{iterator.WithLogger(log)}, s.iterOpts...)
	it := iterator.New(r.Endpoint, s.cloud, params, workers, r.WorkerID, opts...)

	var written, skipped int64
	flushProgress := func() {
		s.progress.add(r.Shard, written, skipped)
		metrics.ExportTuplesTotal.WithLabelValues(collection, "written").Add(float64(written))
		metrics.ExportTuplesTotal.WithLabelValues(collection, "skipped").Add(float64(skipped))
		r.Tuples += written
		r.Skipped += skipped
		written, skipped = 0, 0
	}
	defer flushProgress()

	for t, err := range it.All(ctx) {
		if err != nil {
			r.Err = err
			return
		}
		if err := s.sink.Write(ctx, r.Shard, t); err != nil {
			if errors.Is(err, domain.ErrTupleSkipped) {
				skipped++
				continue
			}
			r.Err = fmt.Errorf("write to sink: %w", err)
			return
		}
		written++
		if written%1000 == 0 {
			flushProgress()
		}
	}
	log.Debug("Shard job finished", zap.Int64("tuples", r.Tuples+written))
}
