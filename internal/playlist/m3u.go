// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/playcore/internal/media"
)

// Extra keys filled from and written to EXTINF attributes.
const (
	ExtraGroup = "group"
	ExtraLogo  = "logo"
)

// WriteM3U writes one EXTINF entry per item, pointing at its first file.
// Items without files are skipped.
func WriteM3U(w io.Writer, items []media.ResolvedItem) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, it := range items {
		if len(it.Files) == 0 {
			continue
		}
		f := it.Files[0]
		title := it.Config.Title
		if title == "" {
			title = it.ID
		}
		buf.WriteString(fmt.Sprintf(
			`#EXTINF:-1 tvg-id="%s" tvg-logo="%s" group-title="%s" type="%s" quality="%s",%s`+"\n",
			attr(it.ID), attr(it.Config.Extra[ExtraLogo]), attr(it.Config.Extra[ExtraGroup]),
			attr(f.Type), attr(f.Quality), oneLine(title),
		))
		buf.WriteString(oneLine(f.URI) + "\n")
	}
	_, err := io.Copy(w, buf)
	return err
}

// ParseM3U reads an extended M3U playlist into descriptors, one per URI
// line. EXTINF attributes set the id, type, quality, group and logo; the
// trailing title sets the item title. Plain M3U without EXTINF is accepted.
func ParseM3U(r io.Reader) ([]media.Descriptor, error) {
	var (
		out     []media.Descriptor
		pending *extinf
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		switch {
		case text == "":
		case strings.HasPrefix(text, "#EXTINF:"):
			e, err := parseExtinf(strings.TrimPrefix(text, "#EXTINF:"))
			if err != nil {
				return nil, fmt.Errorf("m3u line %d: %w", line, err)
			}
			pending = &e
		case strings.HasPrefix(text, "#"):
			// #EXTM3U and unknown directives.
		default:
			d := media.Descriptor{Files: []media.File{{URI: text}}}
			if pending != nil {
				d.Config.ID = pending.attrs["tvg-id"]
				d.Config.Title = pending.title
				d.Files[0].Type = pending.attrs["type"]
				d.Files[0].Quality = pending.attrs["quality"]
				if g := pending.attrs["group-title"]; g != "" {
					setExtra(&d.Config, ExtraGroup, g)
				}
				if l := pending.attrs["tvg-logo"]; l != "" {
					setExtra(&d.Config, ExtraLogo, l)
				}
				pending = nil
			}
			out = append(out, d)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read m3u: %w", err)
	}
	return out, nil
}

type extinf struct {
	attrs map[string]string
	title string
}

// parseExtinf parses `-1 key="value" key2="value2",Title`.
func parseExtinf(s string) (extinf, error) {
	e := extinf{attrs: make(map[string]string)}
	i := 0
	// Duration.
	for i < len(s) && s[i] != ' ' && s[i] != ',' {
		i++
	}
	for i < len(s) {
		switch s[i] {
		case ' ', '\t':
			i++
		case ',':
			e.title = strings.TrimSpace(s[i+1:])
			return e, nil
		default:
			eq := strings.IndexByte(s[i:], '=')
			if eq < 0 {
				return e, fmt.Errorf("malformed EXTINF attribute near %q", s[i:])
			}
			key := strings.ToLower(s[i : i+eq])
			i += eq + 1
			if i >= len(s) || s[i] != '"' {
				return e, fmt.Errorf("unquoted EXTINF attribute %q", key)
			}
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return e, fmt.Errorf("unterminated EXTINF attribute %q", key)
			}
			e.attrs[key] = s[i+1 : i+1+end]
			i += end + 2
		}
	}
	return e, nil
}

func setExtra(c *media.ItemConfig, k, v string) {
	if c.Extra == nil {
		c.Extra = make(map[string]string)
	}
	c.Extra[k] = v
}

func attr(s string) string {
	return strings.ReplaceAll(oneLine(s), `"`, "'")
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
