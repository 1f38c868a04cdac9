// Package main is the entry point for the Overflow Admin database migration tool.
// It applies the embedded schema migrations for SQLite and PostgreSQL.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/prn-tf/overflow-admin/internal/config"
	"github.com/prn-tf/overflow-admin/internal/logging"
	"github.com/prn-tf/overflow-admin/internal/repository"
	"github.com/prn-tf/overflow-admin/internal/repository/database"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:  "overflow-migrate",
		Usage: "Manage the Overflow Admin database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Run all pending migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDatabase(ctx, c, func(ctx context.Context, db repository.Database) error {
						pending, err := db.Pending(ctx)
						if err != nil {
							return err
						}
						if len(pending) == 0 {
							fmt.Println("Database is up to date")
							return nil
						}
						if err := db.Migrate(ctx); err != nil {
							return err
						}
						fmt.Printf("Applied %d migration(s): %v\n", len(pending), pending)
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "Show current migration status",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDatabase(ctx, c, func(ctx context.Context, db repository.Database) error {
						version, err := db.Version(ctx)
						if err != nil {
							return err
						}
						pending, err := db.Pending(ctx)
						if err != nil {
							return err
						}
						fmt.Printf("Current version: %d\n", version)
						fmt.Printf("Pending:         %v\n", pending)
						return nil
					})
				},
			},
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Printf("Overflow Admin Migration Tool\n")
					fmt.Printf("Version: %s\n", Version)
					fmt.Printf("Build Time: %s\n", BuildTime)
					fmt.Printf("Git Commit: %s\n", GitCommit)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func withDatabase(ctx context.Context, c *cli.Command, fn func(context.Context, repository.Database) error) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	log.Logger = logger

	res, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer res.Database.Close()

	return fn(ctx, res.Database)
}
