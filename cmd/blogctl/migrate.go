package main

import (
	"fmt"
	"strconv"

	"blogicum/internal/config"
	"blogicum/internal/database"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// openRaw connects without applying the schema policy.
func openRaw(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := database.Dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, database.GormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func withRawDB(fn func(ctx *cli.Context, cfg *config.Config, db *gorm.DB) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openRaw(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()
		return fn(ctx, cfg, db)
	}
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database schema operations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply pending SQL migrations (PostgreSQL)",
				Action: withRawDB(func(ctx *cli.Context, _ *config.Config, db *gorm.DB) error {
					if err := database.RunMigrations(ctx.Context, db); err != nil {
						return fmt.Errorf("sql migrations failed: %w", err)
					}
					fmt.Fprintln(ctx.App.Writer, "sql migrations applied")
					return nil
				}),
			},
			{
				Name:  "auto",
				Usage: "Run GORM AutoMigrate for every model",
				Action: withRawDB(func(ctx *cli.Context, cfg *config.Config, db *gorm.DB) error {
					cfg.DBSchemaMode = database.SchemaModeAuto
					if err := database.ApplySchema(ctx.Context, db, cfg); err != nil {
						return fmt.Errorf("auto schema apply failed: %w", err)
					}
					fmt.Fprintln(ctx.App.Writer, "automigrations applied")
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "Show the schema policy and pending migrations",
				Action: withRawDB(func(ctx *cli.Context, cfg *config.Config, db *gorm.DB) error {
					status, err := database.GetSchemaStatus(ctx.Context, db, cfg)
					if err != nil {
						return fmt.Errorf("schema status failed: %w", err)
					}
					fmt.Fprintf(ctx.App.Writer, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
						status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
						len(status.AppliedVersions), len(status.PendingMigrations))
					for _, m := range status.PendingMigrations {
						fmt.Fprintf(ctx.App.Writer, "pending: %06d_%s\n", m.Version, m.Name)
					}
					return nil
				}),
			},
			{
				Name:      "down",
				Usage:     "Roll back one SQL migration",
				ArgsUsage: "<version>",
				Action: withRawDB(func(ctx *cli.Context, _ *config.Config, db *gorm.DB) error {
					version, err := strconv.Atoi(ctx.Args().First())
					if err != nil {
						return fmt.Errorf("invalid version %q: %w", ctx.Args().First(), err)
					}
					if err := database.RollbackMigration(ctx.Context, db, version); err != nil {
						return fmt.Errorf("rollback failed: %w", err)
					}
					fmt.Fprintf(ctx.App.Writer, "rolled back migration %d\n", version)
					return nil
				}),
			},
		},
	}
}
