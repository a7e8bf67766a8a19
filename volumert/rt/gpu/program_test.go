package gpu

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetUniform_ResolvesNameOnce(t *testing.T) {
	drv := newRecorder()
	prog, err := BuildProgram(drv, "test", "ok")
	require.NoError(t, err)
	drv.reset()

	prog.SetUniform("time", Float(1))
	prog.SetUniform("time", Float(2))

	assert.Equal(t, 1, drv.lookups)
	require.Len(t, drv.uploads, 2)
	assert.Equal(t, float32(1), drv.uploads[0].value)
	assert.Equal(t, float32(2), drv.uploads[1].value)
}

func TestSetUniform_CachesMissingNames(t *testing.T) {
	drv := newRecorder()
	prog := NewShaderProgram(drv, "test")

	prog.SetUniform("nope", Int(3))
	prog.SetUniform("nope", Int(4))

	assert.Equal(t, 1, drv.lookups)
	require.Len(t, drv.uploads, 2)
	assert.Equal(t, int32(-1), drv.uploads[0].slot)
}

func TestSetUniform_RelinkInvalidatesCache(t *testing.T) {
	drv := newRecorder()
	prog := NewShaderProgram(drv, "test")

	prog.SetUniform("time", Float(1))
	prog.Link()
	prog.SetUniform("time", Float(1))

	assert.Equal(t, 2, drv.lookups)
}

func TestSetUniform_OneUploadPathPerType(t *testing.T) {
	drv := newRecorder()
	prog := NewShaderProgram(drv, "test")

	cases := []struct {
		value UniformValue
		call  string
	}{
		{Float(1), "Uniform1f 0"},
		{Int(1), "Uniform1i 0"},
		{Uint(1), "Uniform1ui 0"},
		{Int2{1, 2}, "Uniform2iv 0"},
		{Dir3{0, 3, 4}, "Uniform3fv 0"},
		{Vec3{0, 3, 4}, "Uniform3fv 0"},
		{Mat4(mgl32.Ident4()), "UniformMatrix4fv 0"},
	}
	prog.Slot("time")
	for _, c := range cases {
		drv.reset()
		prog.SetUniform("time", c.value)
		assert.Equal(t, []string{c.call}, drv.calls, "%T", c.value)
	}
}

func TestSetUniform_Dir3IsNormalized(t *testing.T) {
	drv := newRecorder()
	prog := NewShaderProgram(drv, "test")

	prog.SetUniform("time", Dir3{0, 3, 4})
	prog.SetUniform("time", Vec3{0, 3, 4})

	require.Len(t, drv.uploads, 2)
	dir, ok := drv.uploads[0].value.([3]float32)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float32{0, 0.6, 0.8}, dir[:], 1e-6)
	assert.Equal(t, [3]float32{0, 3, 4}, drv.uploads[1].value)
}

func TestBuildProgram_ReportsCompileAndLinkFailures(t *testing.T) {
	drv := newRecorder()
	drv.failLog["broken"] = "line 1: expected ';'"

	prog, err := BuildProgram(drv, "raymarch", "broken")
	require.Error(t, err)
	require.NotNil(t, prog)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "raymarch", be.Label)
	assert.Equal(t, "compile", be.Step)
	assert.Contains(t, err.Error(), "expected ';'")
	assert.Contains(t, err.Error(), "raymarch: link failed")

	// The broken program is still bound and accepts uploads.
	assert.Contains(t, drv.calls, "UseProgram 1")
	prog.SetUniform("time", Float(1))
	assert.Len(t, drv.uploads, 1)
}

func TestBuildProgram_Success(t *testing.T) {
	drv := newRecorder()
	prog, err := BuildProgram(drv, "generation", "ok")
	require.NoError(t, err)
	assert.True(t, prog.Linked())
	assert.Equal(t, []string{
		"CreateProgram", "CreateShader", "ShaderSource", "CompileShader",
		"AttachShader", "LinkProgram", "UseProgram 1",
	}, drv.calls)

	drv.reset()
	prog.Release()
	assert.Equal(t, []string{"Delete 2", "Delete 1"}, drv.calls)
}
