// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"github.com/samber/lo"

	"github.com/ManuGH/playcore/internal/capability"
	"github.com/ManuGH/playcore/internal/media"
)

// selection is the chosen file, model and platform, or the error code
// explaining why nothing was chosen.
type selection struct {
	index    int
	file     media.File
	model    capability.Model
	platform string
	code     media.ErrorCode

	reg *capability.Registry
}

// candidates returns the selected file followed by every other file of the
// same type the chosen platform can play, in declared order.
func (s selection) candidates(files []media.File) []media.File {
	out := []media.File{s.file}
	for i, f := range files {
		if i == s.index || f.Type != s.file.Type {
			continue
		}
		if drmPlayable(s.reg, f, s.platform) {
			out = append(out, f)
		}
	}
	return out
}

func (r *Resolver) selectSource(files []media.File, cfg media.ItemConfig, policy media.Policy) selection {
	sel := selection{index: -1, reg: r.reg}
	if len(files) == 0 {
		sel.code = media.CodeNoMedia
		return sel
	}

	models := r.reg.Models()
	if cfg.Model != "" {
		m, ok := r.reg.Model(cfg.Model)
		if !ok {
			sel.code = media.CodeNoModel
			return sel
		}
		models = []capability.Model{m}
	}
	if len(models) == 0 {
		sel.code = media.CodeNoModel
		return sel
	}

	platforms := r.platformsFor(cfg)

	// Keep registry-playable types. Files whose type is playable but
	// whose DRM systems are not record the DRM code; the last one wins.
	var drmCode media.ErrorCode
	playable := make([]int, 0, len(files))
	for i, f := range files {
		if f.Type == "" || !r.reg.CanPlay(f.Type, platforms...) {
			continue
		}
		if !lo.SomeBy(platforms, func(p string) bool { return drmPlayable(r.reg, f, p) }) {
			drmCode = media.CodeDRMUnsupported
			continue
		}
		playable = append(playable, i)
	}

	var ok bool
	switch policy {
	case media.PolicyPlatformsOrder:
		sel, ok = r.byPlatforms(files, playable, models, platforms)
	default:
		sel, ok = r.bySources(files, playable, models, platforms)
	}
	sel.reg = r.reg
	if ok {
		return sel
	}
	sel.index = -1
	sel.code = media.CodeUnsupportedFormat
	if drmCode != media.CodeNone {
		sel.code = drmCode
	}
	return sel
}

// bySources takes the first playable file in declared order for which some
// model matches.
func (r *Resolver) bySources(files []media.File, playable []int, models []capability.Model, platforms []string) (selection, bool) {
	for _, i := range playable {
		f := files[i]
		if m, p, ok := r.pickModel(f, models, platforms); ok {
			return selection{index: i, file: f, model: m, platform: p}, true
		}
	}
	return selection{}, false
}

// byPlatforms walks platforms by priority and takes the first file the
// platform can play with a model driving it there. Platform order beats
// file order.
func (r *Resolver) byPlatforms(files []media.File, playable []int, models []capability.Model, platforms []string) (selection, bool) {
	for _, p := range platforms {
		for _, i := range playable {
			f := files[i]
			if !drmPlayable(r.reg, f, p) {
				continue
			}
			if m, ok := lo.Find(models, func(m capability.Model) bool { return r.reg.Supports(m, f.Type, p) }); ok {
				return selection{index: i, file: f, model: m, platform: p}, true
			}
		}
	}
	return selection{}, false
}

// pickModel fixes model and platform together: the first model, in
// registration order, whose own platform preference yields an allowed
// platform it supports for f and that can play f.
func (r *Resolver) pickModel(f media.File, models []capability.Model, platforms []string) (capability.Model, string, bool) {
	for _, m := range models {
		for _, s := range m.Supports {
			if !lo.Contains(platforms, s.Platform) {
				continue
			}
			if r.reg.Supports(m, f.Type, s.Platform) && drmPlayable(r.reg, f, s.Platform) {
				return m, s.Platform, true
			}
		}
	}
	return capability.Model{}, "", false
}

// platformsFor returns the item's platforms, or the resolver defaults, or
// every registered platform.
func (r *Resolver) platformsFor(cfg media.ItemConfig) []string {
	if p := canonicalTokens(cfg.Platforms); len(p) > 0 {
		return p
	}
	if len(r.platforms) > 0 {
		return r.platforms
	}
	return r.reg.Platforms()
}

// drmPlayable reports whether platform p plays f, honoring its DRM list:
// clear files need the type, protected files need any listed system.
func drmPlayable(reg *capability.Registry, f media.File, p string) bool {
	if !reg.CanPlay(f.Type, p) {
		return false
	}
	if len(f.DRM) == 0 {
		return true
	}
	return lo.SomeBy(f.DRM, func(sys string) bool { return reg.CanPlayWithDRM(sys, f.Type, p) })
}
