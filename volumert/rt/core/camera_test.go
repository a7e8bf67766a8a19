package core

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameDt = float32(1.0 / 60.0)

func TestCamera_IdleTickIsIdempotent(t *testing.T) {
	cam := NewCamera(16.0 / 9.0)
	cam.Orientation = mgl32.QuatRotate(0.7, mgl32.Vec3{1, 2, 3}.Normalize())
	pos, rot := cam.Position, cam.Orientation

	cam.Integrate(NewInputState(), frameDt)

	assert.Equal(t, pos, cam.Position)
	assert.Equal(t, rot, cam.Orientation)
	assert.Equal(t, mgl32.Vec3{}, cam.Velocity)
}

func TestCamera_ForwardVelocityApproachesTerminal(t *testing.T) {
	cam := NewCamera(1)
	in := NewInputState()
	in.Set(KeyW, 1)

	terminal := cam.Speed / cam.Brake
	prev := float32(0)
	for i := 0; i < 1000; i++ {
		cam.Integrate(in, frameDt)
		v := cam.Velocity.Z()
		require.GreaterOrEqual(t, v, prev, "tick %d", i)
		require.LessOrEqual(t, v, terminal+1e-5, "tick %d", i)
		prev = v
	}
	assert.InDelta(t, terminal, cam.Velocity.Z(), 1e-4)
	assert.Zero(t, cam.Velocity.X())
	assert.Zero(t, cam.Velocity.Y())
	assert.Greater(t, cam.Position.Z(), float32(-5))
}

func TestCamera_OrientationStaysUnit(t *testing.T) {
	cam := NewCamera(1)
	in := NewInputState()
	rng := rand.New(rand.NewPCG(1, 2))
	keys := []Key{KeyLeft, KeyRight, KeyUp, KeyDown, KeyW, KeyA}

	for i := 0; i < 5000; i++ {
		for _, k := range keys {
			in.Set(k, float32(rng.IntN(2)))
		}
		cam.Integrate(in, frameDt*float32(1+rng.IntN(4)))
		require.InDelta(t, 1.0, cam.Orientation.Len(), 1e-5, "tick %d", i)
	}
}

func TestCamera_TranslationLeavesOrientationUntouched(t *testing.T) {
	cam := NewCamera(1)
	cam.Orientation = mgl32.QuatRotate(0.7, mgl32.Vec3{1, 2, 3}.Normalize())
	rot := cam.Orientation
	in := NewInputState()
	in.Set(KeyW, 1)
	in.Set(KeySpace, 1)

	for i := 0; i < 10; i++ {
		cam.Integrate(in, frameDt)
	}
	assert.Equal(t, rot, cam.Orientation)
	assert.NotEqual(t, mgl32.Vec3{0, 0, -5}, cam.Position)
}

func assertQuatInDelta(t *testing.T, want, got mgl32.Quat, delta float64) {
	t.Helper()
	assert.InDelta(t, want.W, got.W, delta, "w")
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want.V[i], got.V[i], delta, "v[%d]", i)
	}
}

func TestCamera_TurnComposition(t *testing.T) {
	const dt = 0.1
	in := NewInputState()
	in.Set(KeyRight, 1)
	in.Set(KeyDown, 1)

	// From identity the local axes are the world axes.
	cam := NewCamera(1)
	cam.Integrate(in, dt)

	want := mgl32.QuatRotate(dt, mgl32.Vec3{0, 1, 0}).
		Mul(mgl32.QuatRotate(-dt, mgl32.Vec3{0, 0, 1})).
		Mul(mgl32.QuatRotate(dt, mgl32.Vec3{1, 0, 0}))
	assertQuatInDelta(t, want, cam.Orientation, 1e-6)

	flipped := mgl32.QuatRotate(dt, mgl32.Vec3{0, 1, 0}).
		Mul(mgl32.QuatRotate(dt, mgl32.Vec3{0, 0, 1})).
		Mul(mgl32.QuatRotate(dt, mgl32.Vec3{1, 0, 0}))
	assert.Greater(t, float64(flipped.V.Sub(cam.Orientation.V).Len()), 1e-2)

	// From a tilted start the rotations use the current local axes and
	// apply before the old orientation.
	q0 := mgl32.QuatRotate(0.9, mgl32.Vec3{1, -1, 2}.Normalize())
	cam = NewCamera(1)
	cam.Orientation = q0
	up, fwd, right := q0.Rotate(mgl32.Vec3{0, 1, 0}), q0.Rotate(mgl32.Vec3{0, 0, 1}), q0.Rotate(mgl32.Vec3{1, 0, 0})
	cam.Integrate(in, dt)

	want = mgl32.QuatRotate(dt, up.Normalize()).
		Mul(mgl32.QuatRotate(-dt, fwd.Normalize())).
		Mul(mgl32.QuatRotate(dt, right.Normalize())).
		Mul(q0)
	assertQuatInDelta(t, want, cam.Orientation, 1e-5)
}

func TestCamera_ViewIsInverseOfWorldTransform(t *testing.T) {
	cam := NewCamera(1)
	cam.Position = mgl32.Vec3{3, -2, 7}
	cam.Orientation = mgl32.QuatRotate(1.1, mgl32.Vec3{0, 1, 1}.Normalize())

	world := mgl32.Translate3D(3, -2, 7).Mul4(cam.Orientation.Mat4())
	id := cam.View().Mul4(world)
	ident := mgl32.Ident4()
	for i := range id {
		assert.InDelta(t, ident[i], id[i], 1e-5, "element %d", i)
	}
}

func TestCamera_LooksDownPositiveZ(t *testing.T) {
	cam := NewCamera(16.0 / 9.0)
	clip := cam.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, 5, 1})

	require.Greater(t, clip.W(), float32(0))
	assert.InDelta(t, 0, clip.X()/clip.W(), 1e-6)
	assert.InDelta(t, 0, clip.Y()/clip.W(), 1e-6)
	assert.Greater(t, clip.Z()/clip.W(), float32(-1))
	assert.Less(t, clip.Z()/clip.W(), float32(1))

	behind := cam.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, -10, 1})
	assert.Less(t, behind.W(), float32(0))
}
