package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	"github.com/Black-And-White-Club/club-ladder/app/modules/auth"
	"github.com/Black-And-White-Club/club-ladder/app/modules/directory"
	"github.com/Black-And-White-Club/club-ladder/app/modules/ladder"
	"github.com/Black-And-White-Club/club-ladder/app/modules/match"
	"github.com/Black-And-White-Club/club-ladder/app/observability"
	"github.com/Black-And-White-Club/club-ladder/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// inProcessTopic carries every activity event when NATS is not configured.
const inProcessTopic = "activity"

// App wires the modules to shared infrastructure.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	DB            *bun.DB

	AuthModule      *auth.Module
	DirectoryModule *directory.Module
	LadderModule    *ladder.Module
	MatchModule     *match.Module

	sink      *activity.PublisherSink
	cancelBus context.CancelFunc
}

// OpenDB opens a bun handle over pgdriver.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// NewApp initializes the application with the necessary services and
// configuration. Background work is not started until Start.
func NewApp(ctx context.Context, cfg *config.Config, obs observability.Observability) (*App, error) {
	logger := obs.Logger

	db := OpenDB(cfg.Postgres.DSN)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	app := &App{Config: cfg, Observability: obs, DB: db}
	if err := app.initActivity(ctx, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	app.initModules(ctx, app.sink)

	logger.InfoContext(ctx, "Application initialized")
	return app, nil
}

func (app *App) initModules(ctx context.Context, sink activity.Sink) {
	cfg, obs, db := app.Config, app.Observability, app.DB
	app.AuthModule = auth.NewModule(ctx, cfg, obs)
	app.DirectoryModule = directory.NewDirectoryModule(ctx, obs, db)
	app.LadderModule = ladder.NewLadderModule(ctx, obs, app.DirectoryModule.Service, sink, db)
	app.MatchModule = match.NewMatchModule(ctx, cfg, obs, app.DirectoryModule.Service, sink, db)
}

// initActivity publishes to JetStream when NATS is configured, otherwise to an
// in-process channel whose feed is logged.
func (app *App) initActivity(ctx context.Context, logger *slog.Logger) error {
	if url := app.Config.NATS.URL; url != "" {
		publisher, err := activity.NewJetStreamPublisher(ctx, url, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize activity publisher: %w", err)
		}
		app.sink = activity.NewPublisherSink(publisher)
		logger.InfoContext(ctx, "Activity feed publishing to NATS", slog.String("stream", activity.StreamName))
		return nil
	}

	pubsub := activity.NewInProcess(logger)
	busCtx, cancel := context.WithCancel(context.Background())
	if err := activity.LogFeed(busCtx, pubsub, inProcessTopic, logger); err != nil {
		cancel()
		return fmt.Errorf("failed to start in-process activity feed: %w", err)
	}
	app.sink = activity.NewSingleTopicSink(pubsub, inProcessTopic)
	app.cancelBus = cancel
	logger.InfoContext(ctx, "Activity feed running in-process")
	return nil
}

// Close releases the queue, the activity transport and the database.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	if app.MatchModule != nil {
		if err := app.MatchModule.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if app.sink != nil {
		if err := app.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("activity: %w", err))
		}
	}
	if app.cancelBus != nil {
		app.cancelBus()
	}
	if err := app.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
