package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultSpeed float32 = 4
	DefaultBrake float32 = 2

	DefaultFovY float32 = math.Pi / 2
	DefaultNear float32 = 0.5
	DefaultFar  float32 = 1000
)

var (
	axisRight   = mgl32.Vec3{1, 0, 0}
	axisUp      = mgl32.Vec3{0, 1, 0}
	axisForward = mgl32.Vec3{0, 0, 1}
)

// Camera is a free-fly camera with damped velocity. Camera space is
// X right, Y up, Z forward.
type Camera struct {
	Position    mgl32.Vec3
	Velocity    mgl32.Vec3
	Orientation mgl32.Quat

	Speed float32
	Brake float32

	Projection mgl32.Mat4
}

func NewCamera(aspect float32) *Camera {
	return &Camera{
		Position:    mgl32.Vec3{0, 0, -5},
		Velocity:    mgl32.Vec3{0, 0, 0},
		Orientation: mgl32.QuatRotate(0, axisUp),
		Speed:       DefaultSpeed,
		Brake:       DefaultBrake,
		Projection:  Projection(DefaultFovY, aspect, DefaultNear, DefaultFar),
	}
}

// Projection maps Z-forward camera space to clip space.
func Projection(fovY, aspect, near, far float32) mgl32.Mat4 {
	if aspect == 0 {
		aspect = 1
	}
	return mgl32.Perspective(fovY, aspect, near, far).Mul4(mgl32.Scale3D(1, 1, -1))
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Orientation.Rotate(axisRight)
}

func (c *Camera) Up() mgl32.Vec3 {
	return c.Orientation.Rotate(axisUp)
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.Orientation.Rotate(axisForward)
}

// Integrate advances the camera by dt seconds under the given input.
func (c *Camera) Integrate(in *InputState, dt float32) {
	move := mgl32.Vec3{
		in.Axis(KeyD, KeyA),
		in.Axis(KeySpace, KeyLeftControl),
		in.Axis(KeyW, KeyS),
	}
	accel := c.Orientation.Rotate(move).Mul(c.Speed).Sub(c.Velocity.Mul(c.Brake))
	c.Velocity = c.Velocity.Add(accel.Mul(dt))
	c.Position = c.Position.Add(c.Velocity.Mul(dt))

	yaw := in.Axis(KeyRight, KeyLeft) * dt
	pitch := in.Axis(KeyDown, KeyUp) * dt
	if yaw == 0 && pitch == 0 {
		return
	}

	// Rotations about the current local axes, applied before the old orientation.
	turn := incremental(yaw, c.Up()).
		Mul(incremental(-yaw, c.Forward())).
		Mul(incremental(pitch, c.Right()))
	c.Orientation = turn.Mul(c.Orientation).Normalize()
}

// incremental is unit whatever the length of axis.
func incremental(angle float32, axis mgl32.Vec3) mgl32.Quat {
	if angle == 0 {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatRotate(angle, axis.Normalize())
}

// View is the world-to-camera transform, the inverse of the camera's
// world transform.
func (c *Camera) View() mgl32.Mat4 {
	rotate := c.Orientation.Conjugate().Mat4()
	translate := mgl32.Translate3D(-c.Position.X(), -c.Position.Y(), -c.Position.Z())
	return rotate.Mul4(translate)
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.View())
}

// Update integrates and returns the matrix the raymarch stage consumes.
func (c *Camera) Update(in *InputState, dt float32) mgl32.Mat4 {
	c.Integrate(in, dt)
	return c.ViewProjection()
}
