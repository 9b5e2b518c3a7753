// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads the daemon configuration. Precedence is
// ENV (PLAYCORE_*) > file > defaults; the result is validated before use.
package config

import (
	"time"

	"github.com/ManuGH/playcore/internal/backend/sim"
	"github.com/ManuGH/playcore/internal/capability"
	"github.com/ManuGH/playcore/internal/cuepoint"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/prefs"
	"github.com/ManuGH/playcore/internal/telemetry"
)

// Config is the complete daemon configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Platforms in priority order. Empty means every declared platform.
	Platforms []string     `yaml:"platforms"`
	Policy    media.Policy `yaml:"policy"`
	Qualities []string     `yaml:"qualities"`

	// Capabilities declares what each platform adapter can play.
	Capabilities []PlatformDecl `yaml:"capabilities"`
	// DRMSystems checked for every declared type. Empty means the built-in list.
	DRMSystems []string `yaml:"drm_systems"`

	Playback  PlaybackConfig   `yaml:"playback"`
	Prefs     prefs.Config     `yaml:"prefs"`
	Sim       sim.Config       `yaml:"sim"`
	HTTP      HTTPConfig       `yaml:"http"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// PlatformDecl is one static platform adapter.
type PlatformDecl struct {
	Name      string   `yaml:"name"`
	MimeTypes []string `yaml:"mime_types"`
	DRM       []string `yaml:"drm"`
}

// PlaybackConfig holds engine defaults.
type PlaybackConfig struct {
	Volume            float64       `yaml:"volume"`
	Quality           string        `yaml:"quality"`
	FadeStep          time.Duration `yaml:"fade_step"`
	CuepointPrecision int           `yaml:"cuepoint_precision"`
	// ProgressRate caps progress events per second.
	ProgressRate float64 `yaml:"progress_rate"`
	AutoAdvance  bool    `yaml:"auto_advance"`
}

// HTTPConfig configures the control API.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
	// RateLimit is requests per minute per client IP. 0 disables limiting.
	RateLimit       int           `yaml:"rate_limit"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Defaults returns the configuration used when neither file nor environment
// set a value.
func Defaults() Config {
	return Config{
		LogLevel:  "info",
		Platforms: []string{"native"},
		Policy:    media.PolicySourcesOrder,
		Qualities: []string{"low", "medium", "high"},
		Capabilities: []PlatformDecl{{
			Name: "native",
			MimeTypes: []string{
				"video/mp4", "video/webm", "audio/mpeg", "audio/mp4",
				"application/vnd.apple.mpegurl", "application/dash+xml",
			},
		}},
		Playback: PlaybackConfig{
			Volume:            1,
			Quality:           "auto",
			FadeStep:          50 * time.Millisecond,
			CuepointPrecision: cuepoint.DefaultPrecision,
			ProgressRate:      4,
			AutoAdvance:       true,
		},
		Prefs: prefs.Config{Backend: prefs.BackendMemory},
		Sim:   sim.DefaultConfig(),
		HTTP: HTTPConfig{
			Listen:          ":8480",
			RateLimit:       600,
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Telemetry: telemetry.Config{
			ServiceName:  "playcore",
			Environment:  "development",
			ExporterType: telemetry.ExporterGRPC,
			Endpoint:     "localhost:4317",
			SamplingRate: 1,
		},
	}
}

// PlatformAdapters builds static platform adapters from the declarations.
func (c Config) PlatformAdapters() []capability.Platform {
	out := make([]capability.Platform, 0, len(c.Capabilities))
	for _, d := range c.Capabilities {
		out = append(out, capability.NewStaticPlatform(d.Name, d.MimeTypes, d.DRM))
	}
	return out
}

// DeclaredTypes returns every MIME type declared by any platform, in
// declaration order without duplicates, paired with the declaring platforms.
func (c Config) DeclaredTypes() []capability.Support {
	seen := make(map[capability.Support]bool)
	var out []capability.Support
	for _, d := range c.Capabilities {
		for _, m := range d.MimeTypes {
			s := capability.Support{MimeType: m, Platform: d.Name}
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
