// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/playlist"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var platforms []string
	cmd := &cobra.Command{
		Use:   "resolve FILE",
		Short: "Resolve descriptors from a YAML or M3U file and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if len(platforms) > 0 {
				cfg.Platforms = platforms
			}
			descs, err := readDescriptors(args[0])
			if err != nil {
				return err
			}
			// Backends are never bound here; the executor only satisfies the factory.
			reg, err := buildRegistry(cfg, loop.NewManual(time.Now()))
			if err != nil {
				return err
			}
			res := newResolver(cfg, reg)
			items := lo.Map(descs, func(d media.Descriptor, _ int) media.ResolvedItem {
				return res.Resolve(cmd.Context(), d)
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		},
	}
	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "platforms in priority order (overrides config)")
	return cmd
}

// readDescriptors reads an M3U playlist (.m3u, .m3u8) or a YAML document
// holding either a list of descriptors or {items: [...]}.
func readDescriptors(path string) ([]media.Descriptor, error) {
	// #nosec G304 -- the path is an operator-supplied CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u", ".m3u8":
		descs, err := playlist.ParseM3U(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return descs, nil
	}

	var list []media.Descriptor
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc struct {
		Items []media.Descriptor `yaml:"items"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Items, nil
}
