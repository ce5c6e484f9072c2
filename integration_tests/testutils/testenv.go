//go:build integration

package testutils

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/Black-And-White-Club/club-ladder/app"
	"github.com/Black-And-White-Club/club-ladder/app/observability"
	"github.com/Black-And-White-Club/club-ladder/config"
	"github.com/Black-And-White-Club/club-ladder/integration_tests/containers"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
)

const jwtSecret = "integration-test-secret-0123456789abcdef"

// TestEnvironment holds the containers shared by one test package.
type TestEnvironment struct {
	PgContainer   *postgres.PostgresContainer
	NatsContainer *tcnats.NATSContainer
	DB            *bun.DB
	DSN           string
	NatsURL       string
}

// NewTestEnvironment starts Postgres and NATS and applies every migration,
// River's included.
func NewTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}
	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, err
	}

	env := &TestEnvironment{
		PgContainer:   pgContainer,
		NatsContainer: natsContainer,
		DB:            app.OpenDB(dsn),
		DSN:           dsn,
		NatsURL:       natsURL,
	}
	if err := env.migrate(ctx); err != nil {
		env.Terminate()
		return nil, err
	}
	return env, nil
}

func (env *TestEnvironment) migrate(ctx context.Context) error {
	if err := app.MigrateUp(ctx, env.DB, nil); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if _, err := app.MigrateRiver(ctx, env.DSN); err != nil {
		return err
	}
	log.Println("All migrations ran successfully")
	return nil
}

// Terminate closes the database and stops both containers.
func (env *TestEnvironment) Terminate() {
	if env.DB != nil {
		_ = env.DB.Close()
	}
	for _, c := range []testcontainers.Container{env.NatsContainer, env.PgContainer} {
		if c == nil {
			continue
		}
		if err := testcontainers.TerminateContainer(c); err != nil {
			log.Printf("Error terminating container: %v", err)
		}
	}
}

// Config returns an application config pointed at the containers.
func (env *TestEnvironment) Config() *config.Config {
	return &config.Config{
		Postgres: config.PostgresConfig{DSN: env.DSN},
		NATS:     config.NATSConfig{URL: env.NatsURL},
		HTTP:     config.HTTPConfig{Addr: "127.0.0.1:0"},
		JWT: config.JWTConfig{
			Secret:     jwtSecret,
			Issuer:     "club-ladder",
			DefaultTTL: time.Hour,
		},
		Match: config.MatchConfig{
			AutoVerifyAfter:         24 * time.Hour,
			AutoVerifySweepInterval: 15 * time.Minute,
			DefaultSkillLevel:       2.5,
		},
		Observability: config.ObservabilityConfig{Environment: "test"},
	}
}

// NewApp builds a fully wired application after clearing every table. tune
// may adjust the config first.
func (env *TestEnvironment) NewApp(t *testing.T, tune func(*config.Config)) *app.App {
	t.Helper()
	ctx := context.Background()
	env.Reset(t)

	cfg := env.Config()
	if tune != nil {
		tune(cfg)
	}
	require.NoError(t, cfg.Validate())

	application, err := app.NewApp(ctx, cfg, observability.NewNoop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := application.Close(context.Background()); err != nil {
			t.Logf("closing app: %v", err)
		}
	})
	return application
}

// Reset truncates every application table.
func (env *TestEnvironment) Reset(t *testing.T) {
	t.Helper()
	_, err := env.DB.ExecContext(context.Background(), `
		TRUNCATE players, ladder_challenge_history, ladder_challenges, ladder_teams,
			match_participants, matches, player_ratings, river_job
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}
