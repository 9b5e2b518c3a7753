// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playcore/internal/backend"
	"github.com/ManuGH/playcore/internal/capability"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/prefs"
	"github.com/ManuGH/playcore/internal/resolver"
)

// fakeBackend reports ready only when the test says so. Everything else is
// the shared Base behavior, which reports synchronously into the sink.
type fakeBackend struct {
	backend.Base
	params    backend.InitParams
	commands  []string
	destroyed bool
}

func (f *fakeBackend) Init(_ context.Context, p backend.InitParams, s backend.Signals) error {
	f.Bind(p, s)
	f.SetDuration(30)
	f.params = p
	return nil
}

func (f *fakeBackend) ApplyCommand(ctx context.Context, name string, value any) error {
	if value == nil {
		f.commands = append(f.commands, name)
	} else {
		f.commands = append(f.commands, fmt.Sprintf("%s=%v", name, value))
	}
	return f.Base.ApplyCommand(ctx, name, value)
}

func (f *fakeBackend) Destroy() error {
	f.destroyed = true
	return f.Base.Destroy()
}

type harness struct {
	t        *testing.T
	m        *loop.Manual
	e        *Engine
	store    *prefs.Memory
	backends []*fakeBackend
	events   []events.Event
}

func testRegistry(t *testing.T, factory func() backend.Backend) *capability.Registry {
	t.Helper()
	native := capability.NewStaticPlatform("native", []string{"video/mp4", "audio/mpeg"}, nil)
	reg, err := capability.Build([]capability.Platform{native}, []capability.Model{{
		Name: "fake",
		Supports: []capability.Support{
			{MimeType: "video/mp4", Platform: "native"},
			{MimeType: "audio/mpeg", Platform: "native"},
		},
		Factory: factory,
	}}, nil)
	require.NoError(t, err)
	return reg
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	h := &harness{t: t, m: loop.NewManual(time.Unix(0, 0)), store: prefs.NewMemory()}
	reg := testRegistry(t, func() backend.Backend {
		fb := &fakeBackend{}
		h.backends = append(h.backends, fb)
		return fb
	})
	res := resolver.New(reg, resolver.Config{Platforms: []string{"native"}, Qualities: []string{"low", "high"}})

	cfg := DefaultConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}
	h.e = New(context.Background(), h.m, reg, res, cfg, WithPrefs(h.store))
	_, err := h.e.AddListener("*", func(ev events.Event) { h.events = append(h.events, ev) })
	require.NoError(t, err)
	h.m.RunPending()
	return h
}

func desc(id, uri string) media.Descriptor {
	return media.Descriptor{
		Files:  []media.File{{URI: uri, Type: "video/mp4"}},
		Config: media.ItemConfig{ID: id},
	}
}

func (h *harness) add(ids ...string) {
	h.t.Helper()
	ds := make([]media.Descriptor, 0, len(ids))
	for _, id := range ids {
		ds = append(ds, desc(id, "https://cdn.example/"+id+".mp4"))
	}
	_, err := h.e.AddItems(context.Background(), ds, -1, false)
	require.NoError(h.t, err)
	h.m.RunPending()
}

func (h *harness) last() *fakeBackend {
	h.t.Helper()
	require.NotEmpty(h.t, h.backends)
	return h.backends[len(h.backends)-1]
}

// ready reports readiness from the latest backend and drains.
func (h *harness) ready() {
	h.last().Report(backend.StateReady)
	h.m.RunPending()
}

// playing plays the current item through to PLAYING.
func (h *harness) playing() {
	h.t.Helper()
	require.NoError(h.t, h.e.Play())
	h.m.RunPending()
	h.ready()
}

func (h *harness) kinds(kind events.Kind) []events.Event {
	var out []events.Event
	for _, ev := range h.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// transitions returns the target states of kind's StateChange events.
func (h *harness) transitions(kind events.Kind) []string {
	var out []string
	for _, ev := range h.kinds(kind) {
		out = append(out, ev.Payload.(events.StateChange).To)
	}
	return out
}

func (h *harness) reset() { h.events = nil }
