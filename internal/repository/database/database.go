// Package database opens the configured backend and builds its repositories.
// It lives outside package repository because the backends import it.
package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/overflow-admin/internal/config"
	"github.com/prn-tf/overflow-admin/internal/repository"
	"github.com/prn-tf/overflow-admin/internal/repository/postgres"
	"github.com/prn-tf/overflow-admin/internal/repository/sqlite"
)

// Result contains the created repositories and database connection.
type Result struct {
	Repos    *repository.Repositories
	Database repository.Database
}

// Open connects to the backend selected by cfg.Driver.
// Migrations are not applied; callers decide when to run them.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Result, error) {
	switch cfg.Driver {
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	case "sqlite":
		return openSQLite(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Result, error) {
	db, err := postgres.NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Result{
		Repos: &repository.Repositories{
			User:    postgres.NewUserRepository(db),
			Content: postgres.NewContentRepository(db),
		},
		Database: db,
	}, nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Result, error) {
	sqliteCfg := sqlite.DefaultConfig(cfg.Path)
	if cfg.JournalMode != "" {
		sqliteCfg.JournalMode = cfg.JournalMode
	}
	if cfg.BusyTimeout > 0 {
		sqliteCfg.BusyTimeout = cfg.BusyTimeout
	}
	if cfg.CacheSize != 0 {
		sqliteCfg.CacheSize = cfg.CacheSize
	}
	if cfg.SynchronousMode != "" {
		sqliteCfg.SynchronousMode = cfg.SynchronousMode
	}
	if cfg.Path == ":memory:" {
		// Every connection to :memory: is a separate database.
		sqliteCfg.ConnMaxLifetime = 0
	}

	db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
	if err != nil {
		return nil, err
	}

	return &Result{
		Repos: &repository.Repositories{
			User:    sqlite.NewUserRepository(db),
			Content: sqlite.NewContentRepository(db),
		},
		Database: db,
	}, nil
}
