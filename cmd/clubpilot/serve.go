package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ramosmx/clubpilot/pkg/browser"
	"github.com/ramosmx/clubpilot/pkg/config"
	"github.com/ramosmx/clubpilot/pkg/extract"
	"github.com/ramosmx/clubpilot/pkg/logging"
	"github.com/ramosmx/clubpilot/pkg/login"
	"github.com/ramosmx/clubpilot/pkg/retry"
	"github.com/ramosmx/clubpilot/pkg/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: config.yaml in ~/.clubpilot or the working directory)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.NewLogger("serve")
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	logger.Infof("starting clubpilot v%s (run %s)", version, logger.RunID())

	engine := browser.NewEngine(browser.EngineOptions{
		Headless:    cfg.Browser.Headless,
		SlowMo:      cfg.Browser.SlowMoMS,
		SkipInstall: cfg.Browser.SkipInstall,
	})
	if err := engine.Initialize(); err != nil {
		return fmt.Errorf("failed to start browser engine: %w", err)
	}
	defer engine.Close()

	pool := browser.NewPool(engine, browser.PoolConfig{
		MaxSessions:    cfg.Pool.MaxSessions,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
		SessionTTL:     cfg.Pool.SessionTTL,
		SweepInterval:  cfg.Pool.SweepInterval,
		HandleOptions: browser.HandleOptions{
			Timeout: cfg.Browser.TimeoutMS,
		},
	})
	defer pool.Close()

	store, err := browser.NewSessionStore(cfg.Sessions.Dir)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Multiplier:  cfg.Retry.Multiplier,
	}

	flow := login.NewFlow(login.Config{
		BaseURL:        cfg.Site.BaseURL,
		LoginPath:      cfg.Site.LoginPath,
		SelectClubPath: cfg.Site.SelectClubPath,
	}, policy, logger)

	screenshotsDir := ""
	if cfg.Screenshots.Enabled {
		screenshotsDir = cfg.Screenshots.Dir
	}

	registry := extract.NewDefaultRegistry()
	orchestrator := extract.NewOrchestrator(pool, registry, flow, store, policy, extract.OrchestratorConfig{
		BaseURL:             cfg.Site.BaseURL,
		ScreenshotsDir:      screenshotsDir,
		ScreenshotOnSuccess: cfg.Screenshots.OnSuccess,
		SessionMaxAge:       cfg.Sessions.MaxAge,
	}, logger)

	srv := server.NewServer(cfg.Addr(), orchestrator, registry, pool, engine, logger)

	logger.Infof("serving on %s against %s", cfg.Addr(), cfg.Site.BaseURL)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("http server failed: %w", err)
	}

	logger.Infof("shutdown complete")
	return nil
}
