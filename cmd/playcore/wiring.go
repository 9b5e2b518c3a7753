// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/playcore/internal/api/middleware"
	"github.com/ManuGH/playcore/internal/backend/sim"
	"github.com/ManuGH/playcore/internal/capability"
	"github.com/ManuGH/playcore/internal/config"
	"github.com/ManuGH/playcore/internal/engine"
	"github.com/ManuGH/playcore/internal/health"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/prefs"
	"github.com/ManuGH/playcore/internal/resilience"
	"github.com/ManuGH/playcore/internal/resolver"
	"github.com/ManuGH/playcore/internal/telemetry"
)

// buildRegistry registers the declared platforms and the simulated model,
// which claims every declared (type, platform) pair.
func buildRegistry(cfg config.Config, exec loop.Executor) (*capability.Registry, error) {
	model := capability.Model{
		Name:     sim.ModelName,
		Category: media.CategoryVideo,
		Supports: cfg.DeclaredTypes(),
		Factory:  sim.Factory(exec, cfg.Sim),
	}
	reg, err := capability.Build(cfg.PlatformAdapters(), []capability.Model{model}, cfg.DRMSystems)
	if err != nil {
		return nil, fmt.Errorf("build capability registry: %w", err)
	}
	return reg, nil
}

func newResolver(cfg config.Config, reg *capability.Registry) *resolver.Resolver {
	return resolver.New(reg, resolver.Config{
		Platforms: cfg.Platforms,
		Policy:    cfg.Policy,
		Qualities: cfg.Qualities,
	}, resolver.WithTracer(telemetry.Tracer("playcore/resolver")))
}

func engineConfig(cfg config.Config) engine.Config {
	return engine.Config{
		Volume:            cfg.Playback.Volume,
		Quality:           cfg.Playback.Quality,
		FadeStep:          cfg.Playback.FadeStep,
		ProgressRate:      cfg.Playback.ProgressRate,
		CuepointPrecision: cfg.Playback.CuepointPrecision,
		AutoAdvance:       cfg.Playback.AutoAdvance,
	}
}

func stackConfig(cfg config.Config) middleware.StackConfig {
	sc := middleware.StackConfig{
		EnableLogging: true,
		EnableMetrics: true,
		RateLimit:     cfg.HTTP.RateLimit,
	}
	if cfg.Telemetry.Enabled {
		sc.TracingService = cfg.Telemetry.ServiceName
	}
	return sc
}

// prefsChecker restores a key that is never written. A miss means the
// backend answered; an open breaker only degrades readiness because the
// engine keeps working without persisted preferences.
func prefsChecker(store prefs.Store) health.Checker {
	return health.NewCheckFunc("prefs", func(ctx context.Context) health.CheckResult {
		var sentinel struct{}
		err := store.Restore(ctx, "__health__", &sentinel)
		switch {
		case err == nil, errors.Is(err, prefs.ErrNotFound):
			return health.CheckResult{Status: health.StatusHealthy}
		case errors.Is(err, resilience.ErrCircuitOpen):
			return health.CheckResult{Status: health.StatusDegraded, Message: "backend unavailable", Error: err.Error()}
		default:
			return health.CheckResult{Status: health.StatusDegraded, Error: err.Error()}
		}
	})
}
