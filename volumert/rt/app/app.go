package app

import (
	"fmt"
	"time"

	"github.com/gekko3d/light/volumert/rt/core"
	"github.com/gekko3d/light/volumert/rt/gpu"
	"github.com/gekko3d/light/volumert/rt/logging"
	"github.com/gekko3d/light/volumert/rt/noise"
	"github.com/gekko3d/light/volumert/rt/shaders"
)

// App drives the pipeline on a driver: Init builds the programs and the
// volume, then each Frame folds input, moves the camera and renders.
type App struct {
	Config   *Config
	Log      logging.Logger
	Driver   gpu.Driver
	Pipeline *gpu.Pipeline
	State    *RenderState
	Profiler *Profiler
	FPS      FPSCounter

	// Display is the surface size the color buffer is blitted to.
	Display [2]int32
	Seed    int64
}

// surfaceSizer is a driver that presents to a surface of its own size.
type surfaceSizer interface {
	SurfaceSize() [2]int32
}

// NewApp sizes the color buffer from cfg and the display from the driver's
// surface when it has one; the two differ on HiDPI or clamped windows.
func NewApp(cfg *Config, drv gpu.Driver, log logging.Logger) *App {
	fbo := [2]int32{int32(cfg.Width), int32(cfg.Height)}
	display := fbo
	if s, ok := drv.(surfaceSizer); ok {
		if size := s.SurfaceSize(); size[0] > 0 && size[1] > 0 {
			display = size
		}
	}
	return &App{
		Config:   cfg,
		Log:      logging.OrNop(log),
		Driver:   drv,
		State:    NewRenderState(fbo, float32(cfg.SamplingStep), time.Now()),
		Profiler: NewProfiler(),
		Display:  display,
	}
}

// loadShader never fails; a missing source compiles to a broken program.
func (a *App) loadShader(path string) string {
	src, err := shaders.Load(a.Config.ShaderDir, path)
	if err != nil {
		a.Log.Errorf("%v", err)
	}
	return src
}

// Init compiles both stages and generates the volume. Shader problems are
// logged, not returned: rendering goes on with whatever the driver made of
// them.
func (a *App) Init() error {
	if a.Display[0] <= 0 || a.Display[1] <= 0 {
		return fmt.Errorf("bad display size %dx%d", a.Display[0], a.Display[1])
	}

	genSrc := a.loadShader(shaders.NoisePath)
	marchSrc := a.loadShader(shaders.RaymarchPath)

	p, err := gpu.NewPipeline(a.Driver, genSrc, marchSrc, a.Config.VolumeSize, a.State.FboSize)
	if err != nil {
		a.Log.Errorf("shader build: %v", err)
	}
	a.Pipeline = p

	a.Seed = a.Config.Seed
	if a.Seed == 0 {
		a.Seed = time.Now().UnixNano()
	}
	a.Log.Infof("session %s: seed %d, volume %d³, color buffer %dx%d, display %dx%d",
		a.State.SessionID, a.Seed, a.Config.VolumeSize, a.State.FboSize[0], a.State.FboSize[1], a.Display[0], a.Display[1])

	a.Profiler.BeginScope("generate")
	p.Generate(noise.NewTable(a.Seed))
	a.Profiler.EndScope("generate")
	return nil
}

// Frame handles the events gathered since the last frame, advances by dt
// and renders. It returns false once a quit was requested; nothing is
// rendered for that frame.
func (a *App) Frame(events []core.Event, dt float32) bool {
	if !a.State.Input.ApplyAll(events) {
		return false
	}

	a.Profiler.BeginScope("update")
	a.State.Clock.Step(dt)
	a.State.Advance()
	a.Profiler.EndScope("update")

	a.Profiler.BeginScope("render")
	a.Pipeline.Frame(a.State.Params(), a.Display)
	a.Profiler.EndScope("render")
	a.Profiler.Inc("frames")

	if a.FPS.Add(dt) {
		a.Profiler.SetCount("fps", int(a.FPS.FPS+0.5))
		if a.Log.DebugEnabled() {
			a.Log.Debugf("%.1f fps\n%s", a.FPS.FPS, a.Profiler.Summary())
		}
		a.Profiler.Reset()
	}
	return true
}

// Tick is Frame with dt taken from the wall clock.
func (a *App) Tick(events []core.Event, now time.Time) bool {
	dt := float32(now.Sub(a.State.Clock.Last).Seconds())
	return a.Frame(events, max(dt, 0))
}

func (a *App) Release() {
	if a.Pipeline != nil {
		a.Pipeline.Release()
	}
}
