// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package resolver turns media descriptors into resolved items by negotiating
// file types, DRM systems and qualities against the capability registry.
// Resolution never fails with an error: every failure is an error code on
// the returned item.
package resolver

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/playcore/internal/capability"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/telemetry"
)

// idNamespace scopes generated item ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ManuGH/playcore/item"))

// Config holds resolver defaults. Items may override Platforms and Policy.
type Config struct {
	// Platforms in priority order. Empty means every registered platform in
	// registration order.
	Platforms []string
	// Policy used when an item does not set one.
	Policy media.Policy
	// Qualities are the known quality keys in display order. "auto" is
	// appended when missing.
	Qualities []string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTracer overrides the tracer used for resolution spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) { r.tracer = t }
}

// Resolver is safe for concurrent use; it holds no mutable state.
type Resolver struct {
	reg       *capability.Registry
	platforms []string
	policy    media.Policy
	qualities []string
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// New returns a resolver over reg.
func New(reg *capability.Registry, cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		reg:       reg,
		platforms: canonicalTokens(cfg.Platforms),
		policy:    cfg.Policy,
		qualities: qualityKeys(cfg.Qualities),
		tracer:    telemetry.Tracer("playcore/resolver"),
		logger:    log.WithComponent("resolver"),
	}
	if r.policy == "" {
		r.policy = media.PolicySourcesOrder
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Qualities returns the configured quality keys, "auto" included.
func (r *Resolver) Qualities() []string {
	return append([]string(nil), r.qualities...)
}

// Reresolve returns processed items untouched and resolves the rest from
// their files and config.
func (r *Resolver) Reresolve(ctx context.Context, it media.ResolvedItem) media.ResolvedItem {
	if it.Processed {
		return it
	}
	out := r.Resolve(ctx, media.Descriptor{Files: it.Files, Config: it.Config})
	out.ViewCount = it.ViewCount
	return out
}

// Resolve negotiates d against the registry. Identical descriptors always
// produce identical items.
func (r *Resolver) Resolve(ctx context.Context, d media.Descriptor) media.ResolvedItem {
	cfg := d.Config.Clone()
	policy := cfg.Policy
	if policy == "" || !policy.Valid() {
		policy = r.policy
	}

	_, span := r.tracer.Start(ctx, "resolver.resolve",
		trace.WithAttributes(telemetry.ItemAttributes(cfg.ID, len(d.Files))...))
	defer span.End()

	files := r.normalize(d.Files, cfg.BaseURL)
	it := media.ResolvedItem{
		ID:        cfg.ID,
		Category:  media.CategoryUnknown,
		Qualities: []string{media.QualityAuto},
		Processed: true,
		Config:    cfg,
	}
	if it.ID == "" {
		it.ID = generateID(files)
	}

	sel := r.selectSource(files, cfg, policy)
	it.Error = sel.code
	if sel.code == media.CodeNone {
		it.Model = sel.model.Name
		it.Platform = sel.platform
		it.Category = sel.model.Category
		if it.Category == "" || it.Category == media.CategoryUnknown {
			it.Category = media.CategoryOf(sel.file.Type)
		}
		it.Files, it.Qualities = r.arrange(sel.candidates(files), 0)
	} else {
		it.Files = []media.File{}
	}

	span.SetAttributes(telemetry.ResolutionAttributes(string(policy), it.Model, it.Platform,
		sel.file.Type, int(it.Error), it.Qualities)...)
	outcome := "ok"
	if it.Error != media.CodeNone {
		outcome = "code_" + strconv.Itoa(int(it.Error))
		span.SetStatus(codes.Error, it.Error.String())
	}
	metrics.RecordResolution(string(policy), outcome)

	evt := r.logger.Debug()
	if it.Error != media.CodeNone {
		evt = r.logger.Info().Int(log.FieldErrorCode, int(it.Error))
	}
	evt.Str(log.FieldEvent, "resolver.resolved").
		Str(log.FieldItemID, it.ID).
		Str(log.FieldModel, it.Model).
		Str(log.FieldPlatform, it.Platform).
		Strs("qualities", it.Qualities).
		Int("files", len(it.Files)).
		Msg("item resolved")
	return it
}

func (r *Resolver) normalize(in []media.File, base string) []media.File {
	out := make([]media.File, 0, len(in))
	for _, f := range in {
		if strings.TrimSpace(f.URI) == "" {
			continue
		}
		out = append(out, media.NormalizeFile(f, base))
	}
	return out
}

// arrange moves the selected file to the head, drops files of another type
// and reduces the rest to one file per configured quality key.
func (r *Resolver) arrange(files []media.File, selected int) ([]media.File, []string) {
	head := files[selected]
	ordered := make([]media.File, 0, len(files))
	ordered = append(ordered, head)
	for i, f := range files {
		if i != selected && f.Type == head.Type {
			ordered = append(ordered, f)
		}
	}

	byKey := make(map[string]media.File)
	var kept []media.File
	for _, f := range ordered {
		if f.Quality == "" || f.Quality == media.QualityAuto || !lo.Contains(r.qualities, f.Quality) {
			continue
		}
		if _, dup := byKey[f.Quality]; dup {
			continue
		}
		byKey[f.Quality] = f
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		only := head
		only.Quality = media.QualityAuto
		return []media.File{only}, []string{media.QualityAuto}
	}

	qualities := lo.Filter(r.qualities, func(k string, _ int) bool {
		_, ok := byKey[k]
		return ok || k == media.QualityAuto
	})
	return kept, qualities
}

// generateID derives a stable id from the normalized file list.
func generateID(files []media.File) string {
	var b strings.Builder
	for _, f := range files {
		b.WriteString(f.URI)
		b.WriteByte('|')
		b.WriteString(f.Type)
		b.WriteByte('|')
		b.WriteString(f.Quality)
		b.WriteByte('\n')
	}
	return uuid.NewSHA1(idNamespace, []byte(b.String())).String()
}

func canonicalTokens(in []string) []string {
	return lo.Uniq(lo.FilterMap(in, func(p string, _ int) (string, bool) {
		p = strings.ToLower(strings.TrimSpace(p))
		return p, p != ""
	}))
}

func qualityKeys(in []string) []string {
	keys := canonicalTokens(in)
	if !lo.Contains(keys, media.QualityAuto) {
		keys = append(keys, media.QualityAuto)
	}
	return keys
}
