// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys set by the resolver.
const (
	// Item attributes
	ItemIDKey    = "item.id"
	ItemFilesKey = "item.files"

	// Resolution attributes
	ResolvePolicyKey    = "resolve.policy"
	ResolveModelKey     = "resolve.model"
	ResolvePlatformKey  = "resolve.platform"
	ResolveMimeTypeKey  = "resolve.mime_type"
	ResolveErrorCodeKey = "resolve.error_code"
	ResolveQualityKey   = "resolve.qualities"
)

// ItemAttributes creates item span attributes. Empty ids are omitted.
func ItemAttributes(itemID string, files int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if itemID != "" {
		attrs = append(attrs, attribute.String(ItemIDKey, itemID))
	}
	return append(attrs, attribute.Int(ItemFilesKey, files))
}

// ResolutionAttributes creates attributes describing a resolution outcome.
// Model, platform and type are only set for successful selections.
func ResolutionAttributes(policy, model, platform, mimeType string, errorCode int, qualities []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(ResolvePolicyKey, policy),
		attribute.Int(ResolveErrorCodeKey, errorCode),
		attribute.StringSlice(ResolveQualityKey, qualities),
	}
	if model != "" {
		attrs = append(attrs,
			attribute.String(ResolveModelKey, model),
			attribute.String(ResolvePlatformKey, platform),
			attribute.String(ResolveMimeTypeKey, mimeType),
		)
	}
	return attrs
}
