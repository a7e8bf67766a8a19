package app

import (
	"fmt"
	"time"

	"github.com/gekko3d/light/volumert/rt/gpu"
	"github.com/gekko3d/light/volumert/rt/gpu/softdrv"
	"github.com/gekko3d/light/volumert/rt/gpu/wgpudrv"
	"github.com/gekko3d/light/volumert/rt/logging"
	"github.com/gekko3d/light/volumert/rt/shaders"
)

const windowTitle = "light"

// RunWindowed opens the window and renders until quit. Device or window
// failures are returned; everything after Init only logs.
func RunWindowed(cfg *Config, log logging.Logger) error {
	log = logging.OrNop(log)
	win, err := NewWindow(cfg.Width, cfg.Height, windowTitle)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Close()

	var drv gpu.Driver
	switch cfg.Backend {
	case BackendSoft:
		// The soft backend has no surface to show; it renders headless
		// frames for as long as the window stays open.
		drv = softdrv.New(softdrv.Options{Width: cfg.Width, Height: cfg.Height, Logger: log})
	default:
		blit, err := shaders.Load(cfg.ShaderDir, shaders.FullscreenPath)
		if err != nil {
			log.Errorf("%v", err)
		}
		wd, err := wgpudrv.New(win.Glfw, wgpudrv.Options{Logger: log, BlitSource: blit, Label: windowTitle})
		if err != nil {
			return fmt.Errorf("init gpu: %w", err)
		}
		defer wd.Release()
		drv = wd
	}

	a := NewApp(cfg, drv, log)
	if err := a.Init(); err != nil {
		return err
	}
	defer a.Release()

	for a.Tick(win.Poll(), time.Now()) {
	}
	log.Infof("session %s: quit after %d frames", a.State.SessionID, a.Profiler.Counts["frames"])
	return nil
}
