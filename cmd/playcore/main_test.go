// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playcore/internal/backend/sim"
	"github.com/ManuGH/playcore/internal/config"
	"github.com/ManuGH/playcore/internal/health"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/prefs"
	"github.com/ManuGH/playcore/internal/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvPrefix+"CONFIG", "")
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildRegistry_DefaultsPlayThroughSim(t *testing.T) {
	reg, err := buildRegistry(config.Defaults(), loop.NewManual(time.Unix(0, 0)))
	require.NoError(t, err)

	assert.Equal(t, []string{"native"}, reg.Platforms())
	assert.True(t, reg.CanPlay("video/mp4", "native"))
	models := reg.ModelsFor("video/mp4", "native")
	require.Len(t, models, 1)
	assert.Equal(t, sim.ModelName, models[0].Name)
	assert.NotNil(t, models[0].Factory())
}

func TestEngineConfig_CopiesPlayback(t *testing.T) {
	cfg := config.Defaults()
	cfg.Playback.Volume = 0.25
	cfg.Playback.AutoAdvance = false

	ec := engineConfig(cfg)
	assert.InDelta(t, 0.25, ec.Volume, 1e-9)
	assert.False(t, ec.AutoAdvance)
	assert.Equal(t, cfg.Playback.FadeStep, ec.FadeStep)
}

func TestStackConfig_TracingFollowsTelemetry(t *testing.T) {
	cfg := config.Defaults()
	assert.Empty(t, stackConfig(cfg).TracingService)

	cfg.Telemetry.Enabled = true
	assert.Equal(t, cfg.Telemetry.ServiceName, stackConfig(cfg).TracingService)
}

func TestResolveCommand(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "items.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- files:
    - uri: https://cdn.example/a.mp4
      type: video/mp4
  config:
    id: a
- files:
    - uri: https://cdn.example/b.bin
      type: application/x-unknown
  config:
    id: b
`), 0o600))
	m3uPath := filepath.Join(dir, "list.m3u")
	require.NoError(t, os.WriteFile(m3uPath, []byte(
		"#EXTM3U\n#EXTINF:-1 tvg-id=\"c\" type=\"video/mp4\",Channel C\nhttps://cdn.example/c.mp4\n"), 0o600))

	tests := []struct {
		name  string
		path  string
		want  []string
		codes []media.ErrorCode
	}{
		{name: "yaml", path: yamlPath, want: []string{"a", "b"}, codes: []media.ErrorCode{media.CodeNone, media.CodeUnsupportedFormat}},
		{name: "m3u", path: m3uPath, want: []string{"c"}, codes: []media.ErrorCode{media.CodeNone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "resolve", tt.path)
			require.NoError(t, err)

			var items []media.ResolvedItem
			require.NoError(t, json.Unmarshal([]byte(out), &items))
			require.Len(t, items, len(tt.want))
			for i, it := range items {
				assert.Equal(t, tt.want[i], it.ID)
				assert.Equal(t, tt.codes[i], it.Error)
				if it.Error == media.CodeNone {
					assert.Equal(t, sim.ModelName, it.Model)
					assert.Equal(t, "native", it.Platform)
				}
			}
		})
	}
}

func TestResolveCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "resolve", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "playcore "+version.Version))

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestPrefsChecker(t *testing.T) {
	c := prefsChecker(prefs.NewMemory())
	assert.Equal(t, "prefs", c.Name())
	assert.Equal(t, health.StatusHealthy, c.Check(context.Background()).Status)
}
