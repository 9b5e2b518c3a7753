// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/media"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PLAYCORE_"

// envReader applies environment overrides and records which keys it looked
// at, so callers can warn about PLAYCORE_* variables nothing consumed.
type envReader struct {
	lookup   func(string) (string, bool)
	logger   zerolog.Logger
	consumed map[string]struct{}
}

func newEnvReader(lookup func(string) (string, bool)) *envReader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &envReader{
		lookup:   lookup,
		logger:   log.WithComponent("config"),
		consumed: make(map[string]struct{}),
	}
}

func (r *envReader) raw(key string) (string, bool) {
	key = EnvPrefix + key
	r.consumed[key] = struct{}{}
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) debug(key, value string) {
	ev := r.logger.Debug().Str("key", EnvPrefix+key).Str("source", "environment")
	lower := strings.ToLower(key)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", value)
	}
	ev.Msg("using environment variable")
}

func (r *envReader) invalid(key, value, kind string) {
	r.logger.Warn().
		Str(log.FieldEvent, "config.env_invalid").
		Str("key", EnvPrefix+key).
		Str("value", value).
		Msgf("invalid %s in environment variable, keeping configured value", kind)
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.raw(key); ok {
		r.debug(key, v)
		*dst = v
	}
}

func (r *envReader) list(key string, dst *[]string) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	r.debug(key, v)
	*dst = out
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.invalid(key, v, "integer")
		return
	}
	r.debug(key, v)
	*dst = i
}

func (r *envReader) float(key string, dst *float64) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.invalid(key, v, "number")
		return
	}
	r.debug(key, v)
	*dst = f
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.invalid(key, v, "duration")
		return
	}
	r.debug(key, v)
	*dst = d
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		r.invalid(key, v, "boolean")
		return
	}
	r.debug(key, v)
}

func (r *envReader) apply(cfg *Config) {
	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.list("PLATFORMS", &cfg.Platforms)
	var policy string
	r.str("POLICY", &policy)
	if policy != "" {
		cfg.Policy = media.Policy(policy)
	}
	r.list("QUALITIES", &cfg.Qualities)
	r.list("DRM_SYSTEMS", &cfg.DRMSystems)

	r.float("VOLUME", &cfg.Playback.Volume)
	r.str("QUALITY", &cfg.Playback.Quality)
	r.duration("FADE_STEP", &cfg.Playback.FadeStep)
	r.integer("CUEPOINT_PRECISION", &cfg.Playback.CuepointPrecision)
	r.float("PROGRESS_RATE", &cfg.Playback.ProgressRate)
	r.boolean("AUTO_ADVANCE", &cfg.Playback.AutoAdvance)

	r.str("PREFS_BACKEND", &cfg.Prefs.Backend)
	r.str("PREFS_PATH", &cfg.Prefs.Path)
	r.str("REDIS_ADDR", &cfg.Prefs.RedisAddr)
	r.str("REDIS_PASSWORD", &cfg.Prefs.RedisPassword)
	r.integer("REDIS_DB", &cfg.Prefs.RedisDB)

	r.float("SIM_DURATION", &cfg.Sim.Duration)
	r.duration("SIM_INIT_DELAY", &cfg.Sim.InitDelay)
	r.duration("SIM_TICK", &cfg.Sim.Tick)

	r.str("HTTP_LISTEN", &cfg.HTTP.Listen)
	r.integer("HTTP_RATE_LIMIT", &cfg.HTTP.RateLimit)

	r.boolean("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	r.str("OTLP_EXPORTER", &cfg.Telemetry.ExporterType)
	r.str("OTLP_ENDPOINT", &cfg.Telemetry.Endpoint)
	r.float("TRACE_SAMPLING_RATE", &cfg.Telemetry.SamplingRate)
}

// unconsumed returns PLAYCORE_* variables in environ that apply never read.
func (r *envReader) unconsumed(environ []string) []string {
	var out []string
	for _, kv := range environ {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if _, ok := r.consumed[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}
