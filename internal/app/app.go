// Package app wires configuration into the repositories, services and
// background workers shared by the server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prn-tf/overflow-admin/internal/config"
	"github.com/prn-tf/overflow-admin/internal/lock"
	"github.com/prn-tf/overflow-admin/internal/metrics"
	"github.com/prn-tf/overflow-admin/internal/notify"
	"github.com/prn-tf/overflow-admin/internal/repository"
	"github.com/prn-tf/overflow-admin/internal/repository/database"
	"github.com/prn-tf/overflow-admin/internal/service"
)

// App contains the wired components.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	DB      repository.Database
	Repos   *repository.Repositories
	Metrics *metrics.Metrics
	Locker  lock.Locker

	Dispatcher *notify.Dispatcher
	Users      *service.UserService
	Moderation *service.ModerationService
	Visibility *service.VisibilityService
	Scheduler  *service.ExpiryScheduler

	redis redis.UniversalClient
}

// New connects to the database (and Redis when enabled), applies pending
// migrations and builds the services. The scheduler is created but not started.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Database.Migrate(ctx); err != nil {
		_ = db.Database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db.Database,
		Repos:   db.Repos,
		Metrics: metrics.NewMetrics(),
	}

	if err := a.initLocker(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initNotifier(); err != nil {
		a.Close()
		return nil, err
	}

	a.Users = service.NewUserService(a.Repos.User, logger)
	a.Moderation = service.NewModerationService(a.Repos.User, a.Dispatcher, a.Metrics, logger, service.ModerationConfig{
		TestBanDuration:   cfg.Moderation.TestBanDuration,
		MaxReasonLength:   cfg.Moderation.MaxReasonLength,
		BatchSize:         cfg.Moderation.BatchSize,
		NotifyOnAutoUnban: cfg.Moderation.NotifyOnAutoUnban,
	})
	a.Visibility = service.NewVisibilityService(a.Repos.Content, a.Repos.User, a.Dispatcher, a.Metrics, logger, cfg.Moderation.MaxReasonLength)
	a.Scheduler = service.NewExpiryScheduler(a.Moderation, a.Locker, a.Metrics, logger, service.SchedulerConfig{
		Interval:    cfg.Moderation.SchedulerInterval,
		RunOnStart:  cfg.Moderation.RunOnStart,
		TickTimeout: time.Minute,
	})

	return a, nil
}

func (a *App) initLocker(ctx context.Context) error {
	if !a.Config.Redis.Enabled {
		a.Locker = lock.NewMemoryLocker()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        a.Config.Redis.Addr(),
		Password:    a.Config.Redis.Password,
		DB:          a.Config.Redis.DB,
		PoolSize:    a.Config.Redis.PoolSize,
		DialTimeout: a.Config.Redis.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	a.redis = client
	a.Locker = lock.NewRedisLocker(client)
	a.Logger.Info().Str("addr", a.Config.Redis.Addr()).Msg("using redis lock for expiry sweep")
	return nil
}

func (a *App) initNotifier() error {
	var notifier notify.Notifier = notify.NewLogNotifier(a.Logger)

	if a.Config.Mail.Enabled {
		renderer, err := notify.NewRenderer(notify.SiteInfo{
			SiteName:     a.Config.Mail.SiteName,
			ClientURL:    a.Config.Mail.ClientURL,
			SupportEmail: a.Config.Mail.SupportEmail,
		})
		if err != nil {
			return err
		}
		mailer, err := notify.NewMailer(a.Config.Mail, renderer, a.Logger)
		if err != nil {
			return err
		}
		notifier = mailer
	}

	// Each attempt gets the SMTP timeout; leave room for every retry.
	timeout := a.Config.Mail.Timeout * time.Duration(a.Config.Mail.MaxRetries+2)
	a.Dispatcher = notify.NewDispatcher(notifier, a.Metrics, timeout, a.Logger)
	return nil
}

// Close waits for in-flight notifications and releases connections.
// The scheduler must be stopped first.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("failed to close database")
		}
	}
}
