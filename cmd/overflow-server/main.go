// Package main is the entry point for the Overflow Admin server.
// It serves the moderation API and runs the ban expiry sweep.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/prn-tf/overflow-admin/internal/app"
	"github.com/prn-tf/overflow-admin/internal/auth"
	"github.com/prn-tf/overflow-admin/internal/config"
	"github.com/prn-tf/overflow-admin/internal/handler"
	"github.com/prn-tf/overflow-admin/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:    "overflow-server",
		Usage:   "Serve the moderation API and run the ban expiry sweep",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return run(ctx, c.String("config"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(parent context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting Overflow Admin server")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	authCfg := auth.DefaultConfig(cfg.Auth.JWTSecret)
	authCfg.Issuer = cfg.Auth.Issuer

	router := handler.NewRouter(handler.RouterConfig{
		ModerationHandler: handler.NewModerationHandler(a.Moderation, a.Scheduler, handler.ModerationHandlerConfig{
			TestBansEnabled: cfg.Moderation.TestBansEnabled,
			TestBanSentinel: cfg.Moderation.TestBanSentinel,
		}, logger),
		ContentHandler: handler.NewContentHandler(a.Visibility, logger),
		AuthMiddleware: auth.Middleware(authCfg),
		Health:         a.DB,
		Metrics:        a.Metrics,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      http.MaxBytesHandler(router.Handler(), cfg.Server.MaxBodySize),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, a.Metrics.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go serve(logger, "metrics", metricsServer)
	}

	if cfg.Moderation.SchedulerEnabled {
		a.Scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down server...")
	case err := <-errCh:
		logger.Error().Err(err).Msg("HTTP server failed")
	}

	a.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
	return nil
}

func serve(logger zerolog.Logger, name string, s *http.Server) {
	logger.Info().Str("addr", s.Addr).Msgf("%s server listening", name)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msgf("%s server failed", name)
	}
}
