// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// typeAliases maps non-canonical MIME spellings to the canonical form used by
// capability tables.
var typeAliases = map[string]string{
	"audio/mp3":                     "audio/mpeg",
	"audio/x-mp3":                   "audio/mpeg",
	"audio/x-mpeg":                  "audio/mpeg",
	"audio/x-m4a":                   "audio/mp4",
	"audio/m4a":                     "audio/mp4",
	"audio/x-wav":                   "audio/wav",
	"audio/wave":                    "audio/wav",
	"video/x-m4v":                   "video/mp4",
	"video/m4v":                     "video/mp4",
	"video/x-webm":                  "video/webm",
	"application/vnd.apple.mpegurl": "application/x-mpegurl",
	"audio/mpegurl":                 "application/x-mpegurl",
	"audio/x-mpegurl":               "application/x-mpegurl",
	"image/jpg":                     "image/jpeg",
}

// extensionTypes is used when a file does not declare its type.
var extensionTypes = map[string]string{
	"mp4":  "video/mp4",
	"m4v":  "video/mp4",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"ogv":  "video/ogg",
	"mkv":  "video/x-matroska",
	"ts":   "video/mp2t",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"aac":  "audio/aac",
	"oga":  "audio/ogg",
	"ogg":  "audio/ogg",
	"opus": "audio/ogg",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"m3u8": "application/x-mpegurl",
	"mpd":  "application/dash+xml",
	"ism":  "application/vnd.ms-sstr+xml",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// NormalizeType lower-cases raw, strips MIME parameters, applies aliases and
// returns any codecs listed in a codecs= parameter.
func NormalizeType(raw string) (string, []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	base, params, err := mime.ParseMediaType(raw)
	if err != nil {
		// Malformed parameters: keep the part before the first ';'.
		base, _, _ = strings.Cut(raw, ";")
		base = strings.ToLower(strings.TrimSpace(base))
		params = nil
	}
	if alias, ok := typeAliases[base]; ok {
		base = alias
	}
	return base, splitCodecs(params["codecs"])
}

func splitCodecs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TypeFromURI infers a MIME type from the URI path extension. It returns ""
// when the extension is unknown.
func TypeFromURI(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	return extensionTypes[ext]
}

// AbsoluteURI resolves uri against base. Invalid input is returned trimmed
// but otherwise untouched.
func AbsoluteURI(base, uri string) string {
	uri = strings.TrimSpace(uri)
	if base == "" || uri == "" {
		return uri
	}
	ref, err := url.Parse(uri)
	if err != nil || ref.IsAbs() {
		return uri
	}
	b, err := url.Parse(base)
	if err != nil {
		return uri
	}
	return b.ResolveReference(ref).String()
}

// NormalizeFile returns f with an absolute URI, canonical MIME type (inferred
// from the extension when missing), merged codecs and canonical DRM and
// quality tokens.
func NormalizeFile(f File, base string) File {
	out := File{URI: AbsoluteURI(base, f.URI)}

	typ, codecs := NormalizeType(f.Type)
	if typ == "" {
		typ = TypeFromURI(out.URI)
	}
	out.Type = typ

	for _, c := range append(codecs, f.Codecs...) {
		if c = strings.TrimSpace(c); c != "" {
			out.Codecs = append(out.Codecs, c)
		}
	}
	for _, d := range f.DRM {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out.DRM = append(out.DRM, d)
		}
	}
	out.Quality = strings.ToLower(strings.TrimSpace(f.Quality))
	return out
}

// CategoryOf derives the item category from a canonical MIME type.
func CategoryOf(mimeType string) Category {
	switch {
	case mimeType == "":
		return CategoryUnknown
	case mimeType == "application/x-mpegurl", mimeType == "application/dash+xml", mimeType == "application/vnd.ms-sstr+xml":
		return CategoryStream
	case strings.HasPrefix(mimeType, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return CategoryAudio
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	default:
		return CategoryUnknown
	}
}
