// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package media holds the data model shared by resolution, queueing and playback.
package media

import "slices"

// QualityAuto is always part of a resolved item's quality set.
const QualityAuto = "auto"

// Policy selects how the resolver walks files and platforms.
type Policy string

const (
	// PolicySourcesOrder takes the first playable file in declared order.
	PolicySourcesOrder Policy = "sources_order"
	// PolicyPlatformsOrder walks configured platforms by priority and picks
	// the first file the platform can play.
	PolicyPlatformsOrder Policy = "platforms_order"
)

// Valid reports whether p is a known policy. The empty policy is valid and
// means "use the resolver default".
func (p Policy) Valid() bool {
	switch p {
	case "", PolicySourcesOrder, PolicyPlatformsOrder:
		return true
	default:
		return false
	}
}

// Category is the coarse kind of a resolved item.
type Category string

const (
	CategoryUnknown Category = "unknown"
	CategoryVideo   Category = "video"
	CategoryAudio   Category = "audio"
	CategoryImage   Category = "image"
	CategoryStream  Category = "stream"
)

// File is one candidate source of a media descriptor.
type File struct {
	URI     string   `json:"uri" yaml:"uri"`
	Type    string   `json:"type,omitempty" yaml:"type,omitempty"`
	Codecs  []string `json:"codecs,omitempty" yaml:"codecs,omitempty"`
	DRM     []string `json:"drm,omitempty" yaml:"drm,omitempty"`
	Quality string   `json:"quality,omitempty" yaml:"quality,omitempty"`
}

// Clone returns a deep copy of f.
func (f File) Clone() File {
	f.Codecs = slices.Clone(f.Codecs)
	f.DRM = slices.Clone(f.DRM)
	return f
}

// ItemConfig is per-item configuration carried by a descriptor.
type ItemConfig struct {
	ID        string            `json:"id,omitempty" yaml:"id,omitempty"`
	Title     string            `json:"title,omitempty" yaml:"title,omitempty"`
	Policy    Policy            `json:"policy,omitempty" yaml:"policy,omitempty"`
	Platforms []string          `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	Model     string            `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL   string            `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Extra     map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Clone returns a deep copy of c.
func (c ItemConfig) Clone() ItemConfig {
	c.Platforms = slices.Clone(c.Platforms)
	if c.Extra != nil {
		extra := make(map[string]string, len(c.Extra))
		for k, v := range c.Extra {
			extra[k] = v
		}
		c.Extra = extra
	}
	return c
}

// Descriptor is the immutable input to resolution: ordered candidate files
// plus per-item configuration.
type Descriptor struct {
	Files  []File     `json:"files" yaml:"files"`
	Config ItemConfig `json:"config,omitempty" yaml:"config,omitempty"`
}

// ResolvedItem is a descriptor after capability negotiation.
type ResolvedItem struct {
	ID        string     `json:"id"`
	Category  Category   `json:"category"`
	Files     []File     `json:"files"`
	Model     string     `json:"model,omitempty"`
	Platform  string     `json:"platform,omitempty"`
	Qualities []string   `json:"qualities"`
	Error     ErrorCode  `json:"error,omitempty"`
	ViewCount int        `json:"view_count"`
	Processed bool       `json:"processed"`
	Config    ItemConfig `json:"config"`
}

// Playable reports whether the item has a selected file, model and platform.
func (it ResolvedItem) Playable() bool {
	return len(it.Files) > 0 && it.Model != "" && it.Platform != "" && it.Error == CodeNone
}

// HasQuality reports whether key is one of the item's quality keys.
func (it ResolvedItem) HasQuality(key string) bool {
	return slices.Contains(it.Qualities, key)
}

// FileForQuality returns the file tagged with key. Items resolved to a single
// "auto" file return that file for any key.
func (it ResolvedItem) FileForQuality(key string) (File, bool) {
	for _, f := range it.Files {
		if f.Quality == key {
			return f, true
		}
	}
	if len(it.Files) == 1 && it.Files[0].Quality == QualityAuto {
		return it.Files[0], true
	}
	return File{}, false
}

// Clone returns a deep copy of it.
func (it ResolvedItem) Clone() ResolvedItem {
	files := make([]File, len(it.Files))
	for i, f := range it.Files {
		files[i] = f.Clone()
	}
	it.Files = files
	it.Qualities = slices.Clone(it.Qualities)
	it.Config = it.Config.Clone()
	return it
}
