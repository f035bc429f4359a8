package patchctl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "babyface", cfg.Card)
	assert.Equal(t, DefaultSnapConfig(), cfg.Snap)
	assert.Equal(t, DefaultFallbackGrid(), cfg.Grid)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.LayoutDir)
	assert.NotEmpty(t, cfg.PresetDir)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "babyface", cfg.Card)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
card: fireface
snap:
  distance_px: 45
  min_overlap_px: 5
grid:
  start_x: 10
  start_y: 10
  gap_px: 20
  wrap_x: 600
  block_w: 100
  block_h: 100
layout_dir: /tmp/layouts
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "fireface", cfg.Card)
	assert.Equal(t, 45.0, cfg.Snap.DistancePx)
	assert.Equal(t, 5.0, cfg.Snap.MinOverlapPx)
	assert.Equal(t, 600.0, cfg.Grid.WrapX)
	assert.Equal(t, "/tmp/layouts", cfg.LayoutDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	// unset fields keep their defaults
	assert.NotEmpty(t, cfg.PresetDir)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative snap distance", "snap:\n  distance_px: -1\n"},
		{"zero block size", "grid:\n  block_w: 0\n"},
		{"bad log format", "logging:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("card: [unclosed"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
