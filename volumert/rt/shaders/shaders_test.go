package shaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	for path, want := range map[string]string{
		NoisePath:      NoiseWGSL,
		RaymarchPath:   RaymarchWGSL,
		FullscreenPath: FullscreenWGSL,
	} {
		src, err := Load("", path)
		require.NoError(t, err, path)
		assert.Equal(t, want, src, path)
		assert.NotEmpty(t, src, path)
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "volume"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "volume", "raymarch.wgsl"), []byte("// edited"), 0o644))

	src, err := Load(dir, RaymarchPath)
	require.NoError(t, err)
	assert.Equal(t, "// edited", src)

	_, err = Load(dir, NoisePath)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), NoisePath)
}
