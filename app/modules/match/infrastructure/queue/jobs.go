package matchqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	matchservice "github.com/Black-And-White-Club/club-ladder/app/modules/match/application"
	"github.com/riverqueue/river"
)

// AutoVerifySweepArgs is the periodic job that finalizes overdue match
// scores.
type AutoVerifySweepArgs struct{}

// Kind returns the job type identifier for River
func (AutoVerifySweepArgs) Kind() string { return "match.auto_verify_sweep" }

// Sweeper is the slice of the match service the worker drives.
type Sweeper interface {
	AutoVerifyDue(ctx context.Context, now time.Time) (*matchservice.SweepReport, error)
}

// AutoVerifyWorker runs one auto-verify pass per job.
type AutoVerifyWorker struct {
	river.WorkerDefaults[AutoVerifySweepArgs]

	sweeper Sweeper
	logger  *slog.Logger
	now     func() time.Time
}

func NewAutoVerifyWorker(sweeper Sweeper, logger *slog.Logger) *AutoVerifyWorker {
	return &AutoVerifyWorker{sweeper: sweeper, logger: logger, now: time.Now}
}

// Work returns nil when individual matches fail; they are picked up by the
// next pass. Only a failure to list due matches is retried.
func (w *AutoVerifyWorker) Work(ctx context.Context, job *river.Job[AutoVerifySweepArgs]) error {
	report, err := w.sweeper.AutoVerifyDue(ctx, w.now())
	if err != nil {
		return fmt.Errorf("auto-verify sweep: %w", err)
	}
	if report.Failed > 0 {
		w.logger.WarnContext(ctx, "Auto-verify sweep left matches unverified",
			slog.Int("failed", report.Failed),
			slog.Int("due", report.Due),
		)
	}
	return nil
}

// Timeout bounds one pass.
func (w *AutoVerifyWorker) Timeout(*river.Job[AutoVerifySweepArgs]) time.Duration {
	return 5 * time.Minute
}
