package app

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gekko3d/light/volumert/rt/core"
	"github.com/gekko3d/light/volumert/rt/gpu/softdrv"
	"github.com/gekko3d/light/volumert/rt/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() *Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendSoft
	cfg.Width, cfg.Height = 24, 16
	cfg.VolumeSize = 16
	cfg.Seed = 42
	return cfg
}

func TestApp_FrameLoop(t *testing.T) {
	cfg := smallConfig()
	drv := softdrv.New(softdrv.Options{Width: cfg.Width, Height: cfg.Height})
	a := NewApp(cfg, drv, nil)
	require.NoError(t, a.Init())

	assert.True(t, a.Frame(nil, HeadlessDt))
	assert.True(t, a.Frame([]core.Event{{Kind: core.EventKeyDown, Key: core.KeyW}}, HeadlessDt))
	assert.Greater(t, a.State.Camera.Velocity.Z(), float32(0))
	assert.InDelta(t, 2*HeadlessDt, a.State.Clock.Elapsed, 1e-6)

	// Escape stops the loop without rendering.
	before := drv.Stats()
	assert.False(t, a.Frame([]core.Event{{Kind: core.EventKeyDown, Key: core.KeyEscape}}, HeadlessDt))
	assert.Equal(t, before, drv.Stats())

	st := drv.Stats()
	assert.Equal(t, 3, st.Dispatches) // generation + two frames
	assert.Equal(t, 2, st.Swaps)
	assert.Zero(t, st.Hazards)
	assert.Equal(t, 2, a.Profiler.Counts["frames"])
}

func TestApp_QuitEvent(t *testing.T) {
	cfg := smallConfig()
	a := NewApp(cfg, softdrv.New(softdrv.Options{Width: cfg.Width, Height: cfg.Height}), nil)
	require.NoError(t, a.Init())
	assert.False(t, a.Frame([]core.Event{{Kind: core.EventQuit}}, HeadlessDt))
}

func TestApp_MissingShaderDirIsNotFatal(t *testing.T) {
	cfg := smallConfig()
	cfg.ShaderDir = t.TempDir()

	var out, errOut bytes.Buffer
	log := logging.NewWriterLogger("test", false, &out, &errOut)
	drv := softdrv.New(softdrv.Options{Width: cfg.Width, Height: cfg.Height, Logger: log})
	a := NewApp(cfg, drv, log)
	require.NoError(t, a.Init())
	assert.True(t, a.Frame(nil, HeadlessDt))

	assert.Contains(t, errOut.String(), "load shader generation/noise.wgsl")
	assert.Contains(t, errOut.String(), "shader build")
	assert.Zero(t, drv.Stats().Dispatches)
	assert.Equal(t, 1, drv.Stats().Swaps)
}

func TestApp_ShaderDirOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"generation/noise.wgsl", "volume/raymarch.wgsl"} {
		src, err := os.ReadFile(filepath.Join("..", "shaders", p))
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, p)), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, p), src, 0o644))
	}

	cfg := smallConfig()
	cfg.ShaderDir = dir
	drv := softdrv.New(softdrv.Options{Width: cfg.Width, Height: cfg.Height})
	a := NewApp(cfg, drv, nil)
	require.NoError(t, a.Init())
	assert.True(t, a.Frame(nil, HeadlessDt))
	assert.Equal(t, 2, drv.Stats().Dispatches)
}

func TestRunHeadless_WritesImage(t *testing.T) {
	cfg := smallConfig()
	cfg.Headless = 4
	cfg.Out = filepath.Join(t.TempDir(), "frame.png")

	path, err := RunHeadless(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Out, path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, cfg.Width, img.Bounds().Dx())
	assert.Equal(t, cfg.Height, img.Bounds().Dy())
}

func TestRunHeadless_Cancelled(t *testing.T) {
	cfg := smallConfig()
	cfg.Headless = 10
	cfg.Out = filepath.Join(t.TempDir(), "frame.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunHeadless(ctx, cfg, nil, nil)
	assert.ErrorContains(t, err, "no frame was presented")
}

func TestRenderState_Params(t *testing.T) {
	s := NewRenderState([2]int32{200, 100}, 0.5, time.Unix(0, 0))
	s.Clock.Step(0.25)
	s.Advance()

	p := s.Params()
	assert.Equal(t, [2]int32{200, 100}, p.FboSize)
	assert.Equal(t, float32(0.25), p.Time)
	assert.Equal(t, float32(0.5), p.SamplingStep)
	assert.Equal(t, s.Camera.ViewProjection(), p.ViewMatrix)
	assert.NotEqual(t, s.SessionID, NewRenderState([2]int32{1, 1}, 1, time.Unix(0, 0)).SessionID)
}

func TestFPSCounter(t *testing.T) {
	var c FPSCounter
	for i := 0; i < 29; i++ {
		assert.False(t, c.Add(1.0/30))
	}
	assert.True(t, c.Add(1.0/30+0.001))
	assert.InDelta(t, 30, c.FPS, 0.1)
}

func TestProfiler_AccumulatesUntilReset(t *testing.T) {
	p := NewProfiler()
	clock := time.Unix(0, 0)
	p.now = func() time.Time { return clock }

	for i := 0; i < 2; i++ {
		p.BeginScope("render")
		clock = clock.Add(3 * time.Millisecond)
		p.EndScope("render")
	}
	p.EndScope("never begun")
	p.SetCount("frames", 3)

	assert.Equal(t, []string{"render"}, p.Order)
	assert.Equal(t, 6*time.Millisecond, p.Scopes["render"])
	s := p.Summary()
	assert.Contains(t, s, "render")
	assert.Contains(t, s, "6.00 ms")
	assert.Contains(t, s, "frames")

	p.Reset()
	assert.Zero(t, p.Scopes["render"])
	assert.Equal(t, 3, p.Counts["frames"])
	assert.Equal(t, []string{"render"}, p.Order)
}

func TestApp_FPSWindowResetsProfiler(t *testing.T) {
	cfg := smallConfig()
	a := NewApp(cfg, softdrv.New(softdrv.Options{Width: cfg.Width, Height: cfg.Height}), nil)
	require.NoError(t, a.Init())

	require.True(t, a.Frame(nil, 0.5))
	_, seen := a.Profiler.Scopes["render"]
	require.True(t, seen)

	// The second frame closes a one second window.
	require.True(t, a.Frame(nil, 0.5))
	assert.Zero(t, a.Profiler.Scopes["render"])
	assert.Zero(t, a.Profiler.Scopes["update"])
	assert.Equal(t, 2, a.Profiler.Counts["fps"])
	assert.Equal(t, 2, a.Profiler.Counts["frames"])
}

func TestApp_DisplayFollowsDriverSurface(t *testing.T) {
	cfg := smallConfig()
	drv := softdrv.New(softdrv.Options{Width: 48, Height: 32})
	a := NewApp(cfg, drv, nil)
	require.NoError(t, a.Init())

	assert.Equal(t, [2]int32{48, 32}, a.Display)
	assert.Equal(t, [2]int32{24, 16}, a.State.FboSize)

	require.True(t, a.Frame(nil, HeadlessDt))
	// The blit covers the whole surface, not the color buffer size.
	assert.NotEqual(t, uint8(0), drv.Surface().RGBAAt(47, 31).B)
}
