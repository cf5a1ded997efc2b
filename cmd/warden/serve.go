// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/api"
	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/observability"
	"github.com/wardenauth/warden/pkg/errutil"
)

// Default values for serve command flags.
const (
	defaultSweepInterval   = time.Minute
	defaultShutdownTimeout = 5 * time.Second
)

// serveConfig holds configuration for the serve command.
type serveConfig struct {
	seedFile      string
	sweepInterval time.Duration
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the authentication API, plus metrics and health probes when
metrics-addr is set. With the memory driver, --seed is the only way to
create users.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.seedFile, "seed", "", "seed file applied at startup")
	cmd.Flags().DurationVar(&cfg.sweepInterval, "sweep-interval", defaultSweepInterval, "how often expired sessions are removed (0 = never)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, sc *serveConfig) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := observability.InitSentry(cfg.Sentry.DSN, cfg.Sentry.Environment, version); err != nil {
		return err
	}
	defer observability.FlushSentry()

	logger.Info("starting warden",
		"store", cfg.Store.Driver,
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr)

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if sc.seedFile != "" {
		report, err := applySeedFile(ctx, sc.seedFile, cfg, b.users, logger)
		if err != nil {
			return err
		}
		logger.Info("seed applied", "created", len(report.Created), "skipped", len(report.Skipped))
	}

	svc, err := newService(cfg, b, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, b.ready)
		auth.RegisterMetrics(obsServer.Registry())
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		metrics = obsServer.Metrics()
	}

	apiServer, err := api.NewServer(api.Config{Service: svc, Metrics: metrics, Logger: logger})
	if err != nil {
		return err
	}
	apiErrCh, err := apiServer.Start(cfg.HTTP.Addr)
	if err != nil {
		stopServers(logger, nil, obsServer)
		return oops.Code("API_START_FAILED").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	if sc.sweepInterval > 0 {
		go sweepSessions(ctx, svc, sc.sweepInterval, logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Printf("Warden listening on %s\n", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	stopServers(logger, apiServer, obsServer)
	logger.Info("shutdown complete")
	return nil
}

func stopServers(logger *slog.Logger, apiServer *api.Server, obsServer *observability.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if apiServer != nil {
		if err := apiServer.Stop(ctx); err != nil {
			logger.Warn("error stopping api server", "error", err)
		}
	}
	if obsServer != nil {
		if err := obsServer.Stop(ctx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
}

// sweepSessions removes expired sessions every interval until ctx ends.
func sweepSessions(ctx context.Context, svc *auth.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.SweepSessions(ctx); err != nil && ctx.Err() == nil {
				errutil.Log(ctx, logger, slog.LevelWarn, "session sweep failed", err)
			}
		}
	}
}

// monitorServerErrors cancels ctx when a server reports a serve error.
// It returns when the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
