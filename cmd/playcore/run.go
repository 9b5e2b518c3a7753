// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/playcore/internal/api"
	"github.com/ManuGH/playcore/internal/config"
	"github.com/ManuGH/playcore/internal/engine"
	"github.com/ManuGH/playcore/internal/health"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/prefs"
	"github.com/ManuGH/playcore/internal/telemetry"
	"github.com/ManuGH/playcore/internal/version"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the engine and its control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, opts)
		},
	}
}

func runDaemon(ctx context.Context, opts *rootOptions) error {
	logger := log.WithComponent("daemon")

	loader, cfg, err := opts.loadConfig()
	if err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str("config_path", opts.configPath).
			Msg("failed to load configuration")
		return err
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Version: version.Version})
	logger = log.WithComponent("daemon")
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("path", loader.Path()).
		Msg("configuration loaded")

	tcfg := cfg.Telemetry
	tcfg.ServiceVersion = version.Version
	provider, err := telemetry.NewProvider(ctx, tcfg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "telemetry.shutdown_failed").Msg("telemetry shutdown failed")
		}
	}()

	store, err := prefs.Open(ctx, cfg.Prefs)
	if err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	defer func() { _ = store.Close() }()

	l := loop.New()
	reg, err := buildRegistry(cfg, l)
	if err != nil {
		return err
	}
	eng := engine.New(ctx, l, reg, newResolver(cfg, reg), engineConfig(cfg), engine.WithPrefs(store))

	holder := config.NewHolder(cfg, loader)
	updates := make(chan config.Config, 1)
	holder.Subscribe(updates)

	srv, err := api.New(l, eng, api.Options{
		Version: version.Version,
		Stack:   stackConfig(cfg),
		Checks:  []health.Checker{prefsChecker(store)},
	})
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.Run(gctx) })
	g.Go(func() error {
		return srv.Serve(gctx, api.ServeConfig{
			Addr:            cfg.HTTP.Listen,
			ReadTimeout:     cfg.HTTP.ReadTimeout,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		})
	})
	g.Go(func() error { return holder.Watch(gctx) })
	g.Go(func() error { return applyReloads(gctx, cfg, updates) })

	logger.Info().
		Str(log.FieldEvent, "daemon.started").
		Str("listen", cfg.HTTP.Listen).
		Str("prefs", cfg.Prefs.Backend).
		Strs(log.FieldPlatform, reg.Platforms()).
		Msg("playcore started")

	err = g.Wait()
	// The loop has returned; the engine is only touched from here on.
	_ = eng.Close()
	logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("playcore stopped")
	return err
}

// applyReloads applies the settings that can change at runtime. Everything
// else needs a restart and is only reported.
func applyReloads(ctx context.Context, current config.Config, updates <-chan config.Config) error {
	logger := log.WithComponent("daemon")
	for {
		select {
		case <-ctx.Done():
			return nil
		case next := <-updates:
			for _, section := range config.ChangedSections(current, next) {
				if section == "log_level" {
					log.Configure(log.Config{Level: next.LogLevel, Version: version.Version})
					logger = log.WithComponent("daemon")
					continue
				}
				logger.Warn().
					Str(log.FieldEvent, "config.restart_required").
					Str("section", section).
					Msg("configuration change takes effect after restart")
			}
			current = next
		}
	}
}
