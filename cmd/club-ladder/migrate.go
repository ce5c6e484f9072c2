package main

import (
	"fmt"
	"strings"

	"github.com/Black-And-White-Club/club-ladder/app"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func newMigrateCommand() *cli.Command {
	var (
		db        *bun.DB
		dsn       string
		migrators map[string]*migrate.Migrator
	)
	open := func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		dsn = cfg.Postgres.DSN
		db = app.OpenDB(dsn)
		migrators = app.Migrators(db)
		return nil
	}
	closeDB := func(*cli.Context) error {
		if db != nil {
			return db.Close()
		}
		return nil
	}
	forEach := func(fn func(c *cli.Context, name string, m *migrate.Migrator) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			for _, name := range app.ModuleOrder {
				if err := fn(c, name, migrators[name]); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			return nil
		}
	}

	return &cli.Command{
		Name:   "migrate",
		Usage:  "database migrations",
		Before: open,
		After:  closeDB,
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: forEach(func(c *cli.Context, name string, m *migrate.Migrator) error {
					fmt.Printf("Initializing migrations for module: %s\n", name)
					return m.Init(c.Context)
				}),
			},
			{
				Name:  "up",
				Usage: "migrate every module, then the River job tables",
				Action: func(c *cli.Context) error {
					err := app.MigrateUp(c.Context, db, func(name string, group *migrate.MigrationGroup) {
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", name, group)
						}
					})
					if err != nil {
						return err
					}

					versions, err := app.MigrateRiver(c.Context, dsn)
					if err != nil {
						return err
					}
					if len(versions) == 0 {
						fmt.Println("No new migrations to run for River")
					}
					for _, v := range versions {
						fmt.Printf("Migrated River to version %d\n", v)
					}
					return nil
				},
			},
			{
				Name:      "rollback",
				Usage:     "rollback the last migration group of one module",
				ArgsUsage: "<module>",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					m, ok := migrators[name]
					if !ok {
						return fmt.Errorf("invalid module name %q (want one of %s)", name, strings.Join(app.ModuleOrder, ", "))
					}
					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Printf("No groups to roll back for module: %s\n", name)
					} else {
						fmt.Printf("Rolled back module: %s to %s\n", name, group)
					}
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: forEach(func(c *cli.Context, name string, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Migrations for module: %s\n", name)
					fmt.Printf("  %s\n", ms)
					fmt.Printf("  Applied: %s\n", ms.Applied())
					fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					return nil
				}),
			},
		},
	}
}
