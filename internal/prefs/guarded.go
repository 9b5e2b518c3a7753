// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"context"
	"errors"

	"github.com/ManuGH/playcore/internal/resilience"
)

// Guard wraps s in a circuit breaker named name. Misses do not count as
// failures. While the breaker is open calls fail with
// resilience.ErrCircuitOpen without reaching s.
func Guard(name string, s Store, opts ...resilience.Option) Store {
	opts = append([]resilience.Option{
		resilience.WithIgnore(func(err error) bool { return errors.Is(err, ErrNotFound) }),
	}, opts...)
	return &guarded{
		next:    s,
		breaker: resilience.NewCircuitBreaker(name, resilience.DefaultThreshold, resilience.DefaultResetTimeout, opts...),
	}
}

type guarded struct {
	next    Store
	breaker *resilience.CircuitBreaker
}

func (g *guarded) Save(ctx context.Context, key string, value any) error {
	return g.breaker.Execute(func() error { return g.next.Save(ctx, key, value) })
}

func (g *guarded) Restore(ctx context.Context, key string, dst any) error {
	return g.breaker.Execute(func() error { return g.next.Restore(ctx, key, dst) })
}

func (g *guarded) Close() error { return g.next.Close() }
