package match

import (
	"context"
	"fmt"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	matchservice "github.com/Black-And-White-Club/club-ladder/app/modules/match/application"
	matchhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/handlers"
	matchqueue "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/queue"
	matchdb "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/repositories"
	matchrouter "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/router"
	"github.com/Black-And-White-Club/club-ladder/app/observability"
	"github.com/Black-And-White-Club/club-ladder/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the open-match module.
type Module struct {
	MatchService  matchservice.Service
	handlers      *matchhandlers.MatchHandlers
	queue         *matchqueue.Service
	cfg           *config.Config
	observability observability.Observability
}

// NewMatchModule creates and initializes a new match module. The auto-verify
// queue is not started until StartQueue.
func NewMatchModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	directory directorydomain.Directory,
	sink activity.Sink,
	db *bun.DB,
) *Module {
	logger := obs.Logger
	logger.InfoContext(ctx, "match.NewMatchModule initializing")

	repo := matchdb.NewRepository(db)
	metrics := observability.NewPrometheusMetrics(obs.Registry, "match")
	service := matchservice.NewMatchService(repo, directory, sink, matchservice.Config{
		AutoVerifyAfter:   cfg.Match.AutoVerifyAfter,
		DefaultSkillLevel: cfg.Match.DefaultSkillLevel,
	}, logger, metrics, obs.Tracer, db)

	return &Module{
		MatchService:  service,
		handlers:      matchhandlers.NewMatchHandlers(service, logger),
		cfg:           cfg,
		observability: obs,
	}
}

// StartQueue connects River and starts the periodic auto-verify sweep.
func (m *Module) StartQueue(ctx context.Context) error {
	metrics := observability.NewPrometheusMetrics(m.observability.Registry, "match_queue")
	queue, err := matchqueue.NewService(ctx, m.cfg.Postgres.DSN, m.MatchService,
		m.cfg.Match.AutoVerifySweepInterval, m.observability.Logger, metrics)
	if err != nil {
		return fmt.Errorf("match queue: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		_ = queue.Stop(ctx)
		return fmt.Errorf("match queue: %w", err)
	}
	m.queue = queue
	return nil
}

// HealthCheck reports on the River pool when the queue is running.
func (m *Module) HealthCheck(ctx context.Context) error {
	if m.queue == nil {
		return nil
	}
	return m.queue.HealthCheck(ctx)
}

// RegisterRoutes mounts /api/matches and /api/ratings on an authenticated
// router.
func (m *Module) RegisterRoutes(r chi.Router) {
	matchrouter.Register(r, m.handlers)
}

// Close stops the auto-verify queue.
func (m *Module) Close(ctx context.Context) error {
	if m.queue == nil {
		return nil
	}
	return m.queue.Stop(ctx)
}
