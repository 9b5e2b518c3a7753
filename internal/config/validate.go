// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ManuGH/playcore/internal/cuepoint"
	"github.com/ManuGH/playcore/internal/prefs"
	"github.com/ManuGH/playcore/internal/telemetry"
)

// Validate reports every problem in cfg at once. The returned error wraps
// ErrInvalidConfig.
func Validate(cfg Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
			add("log_level: %q is not a log level", cfg.LogLevel)
		}
	}
	if !cfg.Policy.Valid() {
		add("policy: unknown policy %q", cfg.Policy)
	}

	if len(cfg.Capabilities) == 0 {
		add("capabilities: at least one platform must be declared")
	}
	declared := make(map[string]bool, len(cfg.Capabilities))
	for i, d := range cfg.Capabilities {
		name := strings.ToLower(strings.TrimSpace(d.Name))
		switch {
		case name == "":
			add("capabilities[%d]: name is required", i)
		case declared[name]:
			add("capabilities[%d]: duplicate platform %q", i, d.Name)
		}
		declared[name] = true
		if len(d.MimeTypes) == 0 {
			add("capabilities[%d]: %q declares no mime_types", i, d.Name)
		}
	}
	for _, p := range cfg.Platforms {
		if !declared[strings.ToLower(strings.TrimSpace(p))] {
			add("platforms: %q is not declared under capabilities", p)
		}
	}

	pb := cfg.Playback
	if math.IsNaN(pb.Volume) || pb.Volume < 0 || pb.Volume > 1 {
		add("playback.volume: %v is outside [0, 1]", pb.Volume)
	}
	if pb.Quality != "" && pb.Quality != "auto" && !lo.Contains(cfg.Qualities, pb.Quality) {
		add("playback.quality: %q is not one of qualities", pb.Quality)
	}
	if pb.FadeStep <= 0 {
		add("playback.fade_step: must be positive")
	}
	if pb.CuepointPrecision < 0 || pb.CuepointPrecision > cuepoint.MaxPrecision {
		add("playback.cuepoint_precision: %d is outside [0, %d]", pb.CuepointPrecision, cuepoint.MaxPrecision)
	}
	if pb.ProgressRate <= 0 {
		add("playback.progress_rate: must be positive")
	}

	switch strings.ToLower(cfg.Prefs.Backend) {
	case "", prefs.BackendMemory:
	case prefs.BackendFile, prefs.BackendSQLite:
		if cfg.Prefs.Path == "" {
			add("prefs.path: required for the %s backend", cfg.Prefs.Backend)
		}
	case prefs.BackendRedis:
		if cfg.Prefs.RedisAddr == "" {
			add("prefs.redis_addr: required for the redis backend")
		}
	default:
		add("prefs.backend: unknown backend %q", cfg.Prefs.Backend)
	}

	if cfg.Sim.Duration < 0 || cfg.Sim.Tick < 0 || cfg.Sim.InitDelay < 0 {
		add("sim: duration, tick and init_delay must not be negative")
	}

	if cfg.HTTP.Listen == "" {
		add("http.listen: required")
	}
	if cfg.HTTP.RateLimit < 0 {
		add("http.rate_limit: must not be negative")
	}

	if t := cfg.Telemetry; t.Enabled {
		if t.ExporterType != telemetry.ExporterGRPC && t.ExporterType != telemetry.ExporterHTTP {
			add("telemetry.exporter: %q is not grpc or http", t.ExporterType)
		}
		if t.Endpoint == "" {
			add("telemetry.endpoint: required when telemetry is enabled")
		}
		if t.SamplingRate < 0 || t.SamplingRate > 1 {
			add("telemetry.sampling_rate: %v is outside [0, 1]", t.SamplingRate)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
