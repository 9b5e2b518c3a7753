// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"

	"github.com/ManuGH/playcore/internal/log"
)

// Loader handles configuration loading with precedence
type Loader struct {
	path    string
	lookup  func(string) (string, bool)
	environ func() []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnv replaces the process environment, mainly for tests.
func WithEnv(env map[string]string) LoaderOption {
	return func(l *Loader) {
		l.lookup = func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}
		l.environ = func() []string {
			out := make([]string, 0, len(env))
			for k, v := range env {
				out = append(out, k+"="+v)
			}
			return out
		}
	}
}

// NewLoader creates a loader for path. An empty path means defaults and
// environment only.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: path, lookup: os.LookupEnv, environ: os.Environ}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Path returns the config file path, possibly empty.
func (l *Loader) Path() string { return l.path }

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.path != "" {
		if err := decodeFile(l.path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", l.path, err)
		}
	}

	env := newEnvReader(l.lookup)
	env.apply(&cfg)
	env.consumed[EnvPrefix+"CONFIG"] = struct{}{}
	if unknown := env.unconsumed(l.environ()); len(unknown) > 0 {
		logger := log.WithComponent("config")
		logger.Warn().
			Str(log.FieldEvent, "config.env_unknown").
			Strs("keys", unknown).
			Msg("ignoring unknown PLAYCORE_* environment variables")
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
