// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package prefs persists small user preferences such as volume and quality.
// Values are stored as JSON documents under string keys.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
)

var (
	// ErrNotFound is returned by Restore when nothing was saved under key.
	ErrNotFound = errors.New("preference not found")
	// ErrUnknownBackend is returned by Open for unsupported backends.
	ErrUnknownBackend = errors.New("unknown preference backend")
)

// Store saves and restores preference values.
type Store interface {
	Save(ctx context.Context, key string, value any) error
	// Restore decodes the value saved under key into dst.
	Restore(ctx context.Context, key string, dst any) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend string `yaml:"backend"`
	// Path is the JSON document for file and the database for sqlite.
	Path string `yaml:"path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	// Prefix namespaces redis keys.
	Prefix string `yaml:"prefix"`
}

// Open builds the configured backend. Every operation on the returned store
// is counted in playcore_prefs_ops_total.
func Open(ctx context.Context, cfg Config) (Store, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Backend))
	var (
		s   Store
		err error
	)
	switch name {
	case "", BackendMemory:
		name = BackendMemory
		s = NewMemory()
	case BackendFile:
		s, err = NewFile(cfg.Path)
	case BackendSQLite:
		s, err = OpenSQLite(ctx, cfg.Path, DefaultSQLiteConfig())
	case BackendRedis:
		s, err = NewRedis(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
		if err == nil {
			// A dead server would otherwise cost the full timeout on every call.
			s = Guard("prefs_redis", s)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("prefs %s: %w", name, err)
	}
	logger := log.WithComponent("prefs")
	logger.Info().
		Str(log.FieldEvent, "prefs.opened").
		Str("backend", name).
		Msg("preference store ready")
	return Instrument(name, s), nil
}

// Instrument wraps s so that its operations are counted under backend.
func Instrument(backend string, s Store) Store {
	return &instrumented{backend: backend, next: s}
}

type instrumented struct {
	backend string
	next    Store
}

func (i *instrumented) Save(ctx context.Context, key string, value any) error {
	err := i.next.Save(ctx, key, value)
	metrics.RecordPrefsOp(i.backend, "save", result(err))
	return err
}

func (i *instrumented) Restore(ctx context.Context, key string, dst any) error {
	err := i.next.Restore(ctx, key, dst)
	metrics.RecordPrefsOp(i.backend, "restore", result(err))
	return err
}

func (i *instrumented) Close() error { return i.next.Close() }

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "miss"
	default:
		return "error"
	}
}

// opTimeout bounds a single remote operation when the caller set no deadline.
const opTimeout = 2 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, opTimeout)
}

func encode(key string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", key, err)
	}
	return data, nil
}

func decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}
