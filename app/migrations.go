package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	directorymigrations "github.com/Black-And-White-Club/club-ladder/app/modules/directory/infrastructure/repositories/migrations"
	laddermigrations "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/repositories/migrations"
	matchmigrations "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/repositories/migrations"
)

// ModuleOrder is the order migrations are applied in.
var ModuleOrder = []string{"directory", "ladder", "match"}

// Migrators returns one bun migrator per module. Each keeps its own
// bookkeeping tables so a rollback only touches that module's last group.
func Migrators(db *bun.DB) map[string]*migrate.Migrator {
	sets := map[string]*migrate.Migrations{
		"directory": directorymigrations.Migrations,
		"ladder":    laddermigrations.Migrations,
		"match":     matchmigrations.Migrations,
	}
	out := make(map[string]*migrate.Migrator, len(sets))
	for name, set := range sets {
		out[name] = migrate.NewMigrator(db, set,
			migrate.WithTableName(name+"_bun_migrations"),
			migrate.WithLocksTableName(name+"_bun_migration_locks"),
		)
	}
	return out
}

// MigrateUp initializes and applies every module's pending migrations. report
// is called once per module with the applied group.
func MigrateUp(ctx context.Context, db *bun.DB, report func(module string, group *migrate.MigrationGroup)) error {
	migrators := Migrators(db)
	for _, name := range ModuleOrder {
		m := migrators[name]
		if err := m.Init(ctx); err != nil {
			return fmt.Errorf("%s: init: %w", name, err)
		}
		if err := m.Lock(ctx); err != nil {
			return fmt.Errorf("%s: lock: %w", name, err)
		}
		group, err := m.Migrate(ctx)
		_ = m.Unlock(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if report != nil {
			report(name, group)
		}
	}
	return nil
}

// MigrateRiver installs or upgrades River's job tables and returns the
// versions applied.
func MigrateRiver(ctx context.Context, dsn string) ([]int, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN for River migrations: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create River migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return nil, fmt.Errorf("failed to run River migrations: %w", err)
	}
	versions := make([]int, 0, len(res.Versions))
	for _, v := range res.Versions {
		versions = append(versions, v.Version)
	}
	return versions, nil
}
