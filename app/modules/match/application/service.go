package matchservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	matchdb "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/repositories"
	"github.com/Black-And-White-Club/club-ladder/app/observability"
	"github.com/Black-And-White-Club/club-ladder/app/shared/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "MatchService"

const (
	DefaultAutoVerifyAfter = 24 * time.Hour
	DefaultSkillLevel      = 2.5
	defaultMaxPlayers      = 4
	maxMaxPlayers          = 8
	sweepBatchSize         = 100
)

// Config tunes the verification workflow.
type Config struct {
	AutoVerifyAfter   time.Duration
	DefaultSkillLevel float64
}

// MatchService runs open matches: membership, score submission and the
// verification workflow that feeds the rating engine.
type MatchService struct {
	repo      matchdb.Repository
	directory directorydomain.Directory
	activity  activity.Sink
	cfg       Config
	logger    *slog.Logger
	metrics   observability.OperationMetrics
	tracer    trace.Tracer
	db        *bun.DB
	now       func() time.Time
}

// Option customises a MatchService.
type Option func(*MatchService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *MatchService) { s.now = now }
}

// NewMatchService creates a MatchService. db may be nil in tests, in which
// case operations run without a transaction. directory may be nil; new
// players then start at the default skill level.
func NewMatchService(
	repo matchdb.Repository,
	directory directorydomain.Directory,
	sink activity.Sink,
	cfg Config,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts ...Option,
) *MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = activity.NoopSink{}
	}
	if cfg.AutoVerifyAfter <= 0 {
		cfg.AutoVerifyAfter = DefaultAutoVerifyAfter
	}
	if cfg.DefaultSkillLevel == 0 {
		cfg.DefaultSkillLevel = DefaultSkillLevel
	}
	s := &MatchService{
		repo:      repo,
		directory: directory,
		activity:  sink,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MatchService) clock() time.Time {
	return s.now().UTC()
}

func (s *MatchService) notify(ctx context.Context, event activity.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock()
	}
	activity.Notify(ctx, s.activity, s.logger, event)
}

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *MatchService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered",
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("identifier", identifier),
				slog.String("error", err.Error()),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.String("error", wrappedErr.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// runInTx runs fn in a transaction. A returned error rolls back; a failure
// result commits, so logic must reject before writing.
func runInTx[S any, F any](
	s *MatchService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}

func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	return *result.Success, nil
}

func success[S any](v S) (results.OperationResult[S, error], error) {
	return results.SuccessResult[S, error](v), nil
}

func failure[S any](err error) (results.OperationResult[S, error], error) {
	return results.FailureResult[S, error](err), nil
}

func infraError[S any](err error) (results.OperationResult[S, error], error) {
	return results.OperationResult[S, error]{}, err
}
