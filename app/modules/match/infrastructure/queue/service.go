package matchqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/club-ladder/app/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const component = "river"

// Service owns the River client that schedules the auto-verify sweep.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics observability.OperationMetrics
}

// NewService connects a pgx pool for River (River requires pgx, not
// database/sql) and registers the sweep as a periodic job.
func NewService(ctx context.Context, dsn string, sweeper Sweeper, interval time.Duration, logger *slog.Logger, metrics observability.OperationMetrics) (*Service, error) {
	logger = logger.With(slog.String("component", "river_queue"))
	metrics.RecordOperationAttempt(ctx, "initialize_service", component)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewAutoVerifyWorker(sweeper, logger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{sweepJob(interval)},
		Logger:       logger,
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", component)
	logger.InfoContext(ctx, "Match queue service initialized", slog.Duration("sweep_interval", interval))
	return &Service{client: client, pool: pool, logger: logger, metrics: metrics}, nil
}

// sweepJob runs on start and then every interval; uniqueness by period keeps
// several API replicas from sweeping the same window twice.
func sweepJob(interval time.Duration) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return AutoVerifySweepArgs{}, &river.InsertOpts{
				UniqueOpts: river.UniqueOpts{ByPeriod: interval},
			}
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", component)
	if err := s.client.Start(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", component)
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", component)
	s.metrics.RecordOperationDuration(ctx, "start_service", component, time.Since(start))
	s.logger.InfoContext(ctx, "Match queue service started")
	return nil
}

// Stop waits for running jobs, then closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "stop_service", component)
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", component)
	s.logger.InfoContext(ctx, "Match queue service stopped")
	return nil
}

// HealthCheck pings River's pool.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("river pool: %w", err)
	}
	return nil
}

// Pool exposes the pgx pool, for River schema migrations.
func (s *Service) Pool() *pgxpool.Pool {
	return s.pool
}
