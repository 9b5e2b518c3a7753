// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package capability holds the immutable platform/codec/DRM support table the
// resolver negotiates against.
package capability

import (
	"fmt"
	"slices"

	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/media"
)

// DefaultDRMSystems are checked when Build is given no explicit list.
var DefaultDRMSystems = []string{"widevine", "playready", "fairplay", "clearkey"}

// Registry is built once at startup and never mutated afterwards, so it can be
// shared by reference between the resolver and the engine.
type Registry struct {
	platforms []string
	models    []Model
	byName    map[string]int
	// playable[platform][mime]
	playable map[string]map[string]bool
	// drm[platform][mime][system]
	drm map[string]map[string]map[string]bool
}

// Build asks every (type, platform) pair declared by models against the
// registered platform adapters and caches the answers. Pairs naming an
// unregistered platform are recorded as not playable.
func Build(platforms []Platform, models []Model, drmSystems []string) (*Registry, error) {
	if drmSystems == nil {
		drmSystems = DefaultDRMSystems
	}
	logger := log.WithComponent("capability")

	r := &Registry{
		byName:   make(map[string]int, len(models)),
		playable: make(map[string]map[string]bool),
		drm:      make(map[string]map[string]map[string]bool),
	}

	adapters := make(map[string]Platform, len(platforms))
	for _, p := range platforms {
		name := canonicalName(p.Name())
		if name == "" {
			return nil, fmt.Errorf("capability: platform with empty name")
		}
		if _, dup := adapters[name]; dup {
			return nil, fmt.Errorf("capability: duplicate platform %q", name)
		}
		adapters[name] = p
		r.platforms = append(r.platforms, name)
	}

	for _, m := range models {
		if m.Name == "" {
			return nil, fmt.Errorf("capability: model with empty name")
		}
		if _, dup := r.byName[m.Name]; dup {
			return nil, fmt.Errorf("capability: duplicate model %q", m.Name)
		}
		norm := m
		norm.Supports = make([]Support, 0, len(m.Supports))
		for _, s := range m.Supports {
			mt, _ := media.NormalizeType(s.MimeType)
			pl := canonicalName(s.Platform)
			if mt == "" || pl == "" {
				continue
			}
			norm.Supports = append(norm.Supports, Support{MimeType: mt, Platform: pl})
			r.record(adapters, pl, mt, drmSystems)
		}
		r.byName[m.Name] = len(r.models)
		r.models = append(r.models, norm)
	}

	logger.Debug().
		Str(log.FieldEvent, "capability.built").
		Int("platforms", len(r.platforms)).
		Int("models", len(r.models)).
		Msg("capability registry built")
	return r, nil
}

func (r *Registry) record(adapters map[string]Platform, platform, mimeType string, drmSystems []string) {
	if _, done := r.playable[platform][mimeType]; done {
		return
	}
	if r.playable[platform] == nil {
		r.playable[platform] = make(map[string]bool)
	}
	p, ok := adapters[platform]
	if !ok {
		r.playable[platform][mimeType] = false
		return
	}
	can := p.CanPlay(mimeType)
	r.playable[platform][mimeType] = can
	if !can {
		return
	}
	if r.drm[platform] == nil {
		r.drm[platform] = make(map[string]map[string]bool)
	}
	systems := make(map[string]bool, len(drmSystems))
	for _, sys := range drmSystems {
		sys = canonicalName(sys)
		systems[sys] = p.CanPlayDRM(sys, mimeType)
	}
	r.drm[platform][mimeType] = systems
}

// Platforms returns the registered platform names in registration order.
func (r *Registry) Platforms() []string {
	return slices.Clone(r.platforms)
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []Model {
	return slices.Clone(r.models)
}

// Model looks up a model by name.
func (r *Registry) Model(name string) (Model, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Model{}, false
	}
	return r.models[i], true
}

// CanPlay reports whether mimeType is playable on any of platforms, or on any
// registered platform when none are given.
func (r *Registry) CanPlay(mimeType string, platforms ...string) bool {
	mt, _ := media.NormalizeType(mimeType)
	for _, p := range r.scope(platforms) {
		if r.playable[p][mt] {
			return true
		}
	}
	return false
}

// CanPlayWithDRM reports whether mimeType protected by drmSystem is playable
// on any of platforms.
func (r *Registry) CanPlayWithDRM(drmSystem, mimeType string, platforms ...string) bool {
	mt, _ := media.NormalizeType(mimeType)
	sys := canonicalName(drmSystem)
	for _, p := range r.scope(platforms) {
		if r.playable[p][mt] && r.drm[p][mt][sys] {
			return true
		}
	}
	return false
}

// PlatformsFor returns the registered platforms that can play mimeType, in
// registration order.
func (r *Registry) PlatformsFor(mimeType string) []string {
	mt, _ := media.NormalizeType(mimeType)
	var out []string
	for _, p := range r.platforms {
		if r.playable[p][mt] {
			out = append(out, p)
		}
	}
	return out
}

// ModelsFor returns the models declaring (mimeType, platform) where the pair
// is playable, in registration order.
func (r *Registry) ModelsFor(mimeType, platform string) []Model {
	mt, _ := media.NormalizeType(mimeType)
	pl := canonicalName(platform)
	if !r.playable[pl][mt] {
		return nil
	}
	var out []Model
	for _, m := range r.models {
		if m.supports(mt, pl) {
			out = append(out, m)
		}
	}
	return out
}

// Supports reports whether model m declares (mimeType, platform).
func (r *Registry) Supports(m Model, mimeType, platform string) bool {
	mt, _ := media.NormalizeType(mimeType)
	return m.supports(mt, canonicalName(platform))
}

func (r *Registry) scope(platforms []string) []string {
	if len(platforms) == 0 {
		return r.platforms
	}
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, canonicalName(p))
	}
	return out
}
