package main

import (
	"fmt"
	"time"

	"github.com/Black-And-White-Club/club-ladder/app"
	"github.com/Black-And-White-Club/club-ladder/app/modules/auth"
	"github.com/Black-And-White-Club/club-ladder/app/observability"
	"github.com/Black-And-White-Club/club-ladder/config"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the auto-verify sweep",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			obs := observability.New(config.ToObsConfig(cfg))

			application, err := app.NewApp(c.Context, cfg, obs)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			return application.Start(c.Context)
		},
	}
}

func newSweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "auto-verify every overdue match score once and exit",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			obs := observability.New(config.ToObsConfig(cfg))

			application, err := app.NewApp(c.Context, cfg, obs)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			defer application.Close(c.Context)

			report, err := application.MatchModule.MatchService.AutoVerifyDue(c.Context, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Due: %d  Verified: %d  Skipped: %d  Failed: %d\n",
				report.Due, len(report.Verified), report.Skipped, report.Failed)
			if report.Failed > 0 {
				return cli.Exit("some matches could not be verified", 1)
			}
			return nil
		},
	}
}

func newTokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "issue a bearer token for a player",
		ArgsUsage: "<player-id>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime (default from config)"},
		},
		Action: func(c *cli.Context) error {
			playerID, err := uuid.Parse(c.Args().First())
			if err != nil {
				return fmt.Errorf("invalid player id %q: %w", c.Args().First(), err)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			module := auth.NewModule(c.Context, cfg, observability.NewNoop())
			token, err := module.GetService().IssueToken(c.Context, playerID, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
