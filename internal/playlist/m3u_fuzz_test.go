// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ManuGH/playcore/internal/media"
)

// FuzzM3U feeds arbitrary item fields through WriteM3U and ParseM3U and
// checks that the generated playlist always parses back.
func FuzzM3U(f *testing.F) {
	f.Add("intro", "Intro", "https://cdn.example/intro.mp4", "video/mp4", "hd", "Trailers")
	f.Add("Test & <Special>", "a,b", "http://example.com/stream", "", "", "Default")
	f.Add("", "", "x", "", "", "")
	f.Add("unicode-1", "Unicode Тест", "rtsp://stream", "application/x-mpegurl", "auto", "Интер")

	f.Fuzz(func(t *testing.T, id, title, uri, typ, quality, group string) {
		items := []media.ResolvedItem{{
			ID:     id,
			Files:  []media.File{{URI: uri, Type: typ, Quality: quality}},
			Config: media.ItemConfig{Title: title, Extra: map[string]string{ExtraGroup: group}},
		}}

		var buf bytes.Buffer
		if err := WriteM3U(&buf, items); err != nil {
			t.Fatalf("WriteM3U failed: %v", err)
		}

		output := buf.String()
		if !strings.HasPrefix(output, "#EXTM3U\n") {
			t.Error("output must start with #EXTM3U")
		}

		got, err := ParseM3U(strings.NewReader(output))
		if err != nil {
			t.Fatalf("generated playlist does not parse: %v\n%s", err, output)
		}
		if u := strings.TrimSpace(oneLine(uri)); u == "" || strings.HasPrefix(u, "#") {
			return
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 entry, got %d\n%s", len(got), output)
		}
	})
}
