package app

import (
	"time"

	"github.com/gekko3d/light/volumert/rt/core"
	"github.com/gekko3d/light/volumert/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// RenderState is everything a frame reads and advances.
type RenderState struct {
	SessionID    uuid.UUID
	FboSize      [2]int32
	SamplingStep float32

	Clock  *core.Clock
	Camera *core.Camera
	Input  *core.InputState

	ViewMatrix mgl32.Mat4
}

func NewRenderState(fbo [2]int32, step float32, now time.Time) *RenderState {
	aspect := float32(1)
	if fbo[1] > 0 {
		aspect = float32(fbo[0]) / float32(fbo[1])
	}
	s := &RenderState{
		SessionID:    uuid.New(),
		FboSize:      fbo,
		SamplingStep: step,
		Clock:        core.NewClock(now),
		Camera:       core.NewCamera(aspect),
		Input:        core.NewInputState(),
	}
	s.ViewMatrix = s.Camera.ViewProjection()
	return s
}

// Advance integrates the camera over the clock's last dt.
func (s *RenderState) Advance() {
	s.ViewMatrix = s.Camera.Update(s.Input, s.Clock.Dt)
}

// Params are the raymarch uniforms for the current frame.
func (s *RenderState) Params() volume.Params {
	return volume.Params{
		Time:         s.Clock.Elapsed,
		FboSize:      s.FboSize,
		SamplingStep: s.SamplingStep,
		ViewMatrix:   s.ViewMatrix,
	}
}
