package app

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/gekko3d/light/volumert/rt/core"
	"github.com/gekko3d/light/volumert/rt/gpu/softdrv"
	"github.com/gekko3d/light/volumert/rt/logging"
)

// HeadlessDt is the fixed frame time of headless runs.
const HeadlessDt float32 = 1.0 / 60

// Script returns the input events for a frame of a headless run.
type Script func(frame, frames int) []core.Event

// FlyForward holds W for the first half of the run, then turns right.
func FlyForward(frame, frames int) []core.Event {
	switch frame {
	case 0:
		return []core.Event{{Kind: core.EventKeyDown, Key: core.KeyW}}
	case frames / 2:
		return []core.Event{
			{Kind: core.EventKeyUp, Key: core.KeyW},
			{Kind: core.EventKeyDown, Key: core.KeyRight},
		}
	}
	return nil
}

// RunHeadless renders cfg.Headless frames on the soft backend and writes
// the last presented frame as PNG. It returns the path written.
func RunHeadless(ctx context.Context, cfg *Config, script Script, log logging.Logger) (string, error) {
	log = logging.OrNop(log)
	if script == nil {
		script = FlyForward
	}

	var last *image.RGBA
	drv := softdrv.New(softdrv.Options{
		Width:  cfg.Width,
		Height: cfg.Height,
		Logger: log,
		Sink:   func(img *image.RGBA) { last = img },
	})

	a := NewApp(cfg, drv, log)
	if err := a.Init(); err != nil {
		return "", err
	}
	defer a.Release()

	frames := cfg.Headless
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			log.Warnf("headless run interrupted after %d frames", i)
			break
		}
		if !a.Frame(script(i, frames), HeadlessDt) {
			break
		}
		log.Debugf("frame %d/%d", i+1, frames)
	}
	if last == nil {
		return "", fmt.Errorf("no frame was presented")
	}

	out := cfg.Out
	if out == "" {
		out = fmt.Sprintf("light-%s.png", a.State.SessionID)
	}
	if err := writePNG(out, last); err != nil {
		return "", err
	}

	st := drv.Stats()
	log.Infof("wrote %s: %d dispatches, %d barriers, %d hazards", out, st.Dispatches, st.Barriers, st.Hazards)
	return out, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
