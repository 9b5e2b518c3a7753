// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capability

import (
	"github.com/ManuGH/playcore/internal/backend"
	"github.com/ManuGH/playcore/internal/media"
)

// Support declares that a model can drive MimeType on Platform.
type Support struct {
	MimeType string
	Platform string
}

// Model describes a backend implementation and the (type, platform) pairs it
// can drive. Supports is ordered by the model's own platform preference.
type Model struct {
	Name     string
	Category media.Category
	Supports []Support
	Factory  func() backend.Backend
}

// supports reports whether m declares (mimeType, platform).
func (m Model) supports(mimeType, platform string) bool {
	for _, s := range m.Supports {
		if s.MimeType == mimeType && s.Platform == platform {
			return true
		}
	}
	return false
}
