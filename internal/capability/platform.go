// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capability

import (
	"sort"
	"strings"

	"github.com/ManuGH/playcore/internal/media"
)

// Platform answers for an execution environment capability class (native
// decoder, adaptive streaming library, embedded third-party player).
type Platform interface {
	Name() string
	CanPlay(mimeType string) bool
	CanPlayDRM(system, mimeType string) bool
}

// StaticPlatform answers queries from declared capability lists.
type StaticPlatform struct {
	name  string
	types map[string]struct{}
	drm   map[string]struct{}
}

// NewStaticPlatform builds a platform that plays exactly mimeTypes and
// supports drmSystems for every playable type. Tokens are canonicalized the
// same way media files are.
func NewStaticPlatform(name string, mimeTypes, drmSystems []string) *StaticPlatform {
	p := &StaticPlatform{
		name:  canonicalName(name),
		types: make(map[string]struct{}, len(mimeTypes)),
		drm:   make(map[string]struct{}, len(drmSystems)),
	}
	for _, raw := range mimeTypes {
		if t, _ := media.NormalizeType(raw); t != "" {
			p.types[t] = struct{}{}
		}
	}
	for _, raw := range drmSystems {
		if d := canonicalName(raw); d != "" {
			p.drm[d] = struct{}{}
		}
	}
	return p
}

func (p *StaticPlatform) Name() string { return p.name }

func (p *StaticPlatform) CanPlay(mimeType string) bool {
	t, _ := media.NormalizeType(mimeType)
	_, ok := p.types[t]
	return ok
}

func (p *StaticPlatform) CanPlayDRM(system, mimeType string) bool {
	if !p.CanPlay(mimeType) {
		return false
	}
	_, ok := p.drm[canonicalName(system)]
	return ok
}

// MimeTypes returns the declared types in sorted order.
func (p *StaticPlatform) MimeTypes() []string {
	out := make([]string, 0, len(p.types))
	for t := range p.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func canonicalName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
