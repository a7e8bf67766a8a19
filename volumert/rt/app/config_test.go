package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_Defaults(t *testing.T) {
	cfg, err := ParseArgs("light", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 2560, cfg.Width)
	assert.Equal(t, 1440, cfg.Height)
	assert.Equal(t, 256, cfg.VolumeSize)
	assert.Equal(t, 0.5, cfg.SamplingStep)
}

func TestParseArgs_ExplicitFlagsWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "light.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"width": 640, "height": 360, "seed": 9, "backend": "soft", "debug": true}`), 0o644))

	cfg, err := ParseArgs("light", []string{"-config", path, "-width", "800", "-seed", "42"})
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 360, cfg.Height)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, BackendSoft, cfg.Backend)
	assert.True(t, cfg.Debug)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, 256, cfg.VolumeSize)
}

func TestMerge_OnlyUnsetFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Out = "flag.png"
	file := DefaultConfig()
	file.Out = "file.png"
	file.VolumeSize = 64

	Merge(cfg, file, map[string]bool{"out": true})
	assert.Equal(t, "flag.png", cfg.Out)
	assert.Equal(t, 64, cfg.VolumeSize)
}

func TestParseArgs_Errors(t *testing.T) {
	_, err := ParseArgs("light", []string{"-backend", "vulkan"})
	assert.ErrorContains(t, err, `unknown backend "vulkan"`)

	_, err = ParseArgs("light", []string{"-width", "0", "-step", "0"})
	assert.ErrorContains(t, err, "bad display size")
	assert.ErrorContains(t, err, "sampling step must be positive")

	_, err = ParseArgs("light", []string{"-config", filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"width": "wide"}`), 0o644))
	_, err = ParseArgs("light", []string{"-config", bad})
	assert.ErrorContains(t, err, "parse config")
}
