package volume

import (
	"math"

	"github.com/gekko3d/light/volumert/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// Keep in sync with shaders/volume/raymarch.wgsl.
const (
	Threshold  float32 = 0.55
	Absorption float32 = 6.0
	MaxSteps           = 1024
	Opaque     float32 = 0.99
)

var (
	paletteLow  = core.RGB(0.10, 0.30, 0.90)
	paletteHigh = core.RGB(1.00, 0.55, 0.20)
	skyTop      = core.RGB(0.02, 0.02, 0.05)
	skyBottom   = core.RGB(0.08, 0.06, 0.10)
)

type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// Params are the per-frame uniforms of the raymarch stage.
type Params struct {
	Time         float32
	FboSize      [2]int32
	SamplingStep float32
	ViewMatrix   mgl32.Mat4
}

// PixelRay unprojects pixel (px, py), row 0 at the top, through the
// inverse view-projection matrix.
func PixelRay(inv mgl32.Mat4, px, py int, size [2]int32) Ray {
	nx := (float32(px)+0.5)/float32(size[0])*2 - 1
	ny := 1 - (float32(py)+0.5)/float32(size[1])*2

	near := inv.Mul4x1(mgl32.Vec4{nx, ny, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{nx, ny, 1, 1})
	n := near.Vec3().Mul(1 / near.W())
	f := far.Vec3().Mul(1 / far.W())

	return Ray{Origin: n, Direction: f.Sub(n).Normalize()}
}

// IntersectAABB returns the entry and exit distances of ray through the
// box, entry clamped to 0. No hit when entry > exit.
func IntersectAABB(ray Ray, minB, maxB mgl32.Vec3) (float32, float32) {
	invDir := mgl32.Vec3{1.0 / (ray.Direction.X() + 1e-8), 1.0 / (ray.Direction.Y() + 1e-8), 1.0 / (ray.Direction.Z() + 1e-8)}
	t1 := minB.Sub(ray.Origin)
	t1 = mgl32.Vec3{t1.X() * invDir.X(), t1.Y() * invDir.Y(), t1.Z() * invDir.Z()}
	t2 := maxB.Sub(ray.Origin)
	t2 = mgl32.Vec3{t2.X() * invDir.X(), t2.Y() * invDir.Y(), t2.Z() * invDir.Z()}

	realMin := float32(0)
	realMax := float32(math.MaxFloat32)
	for i := 0; i < 3; i++ {
		realMin = max(realMin, min(t1[i], t2[i]))
		realMax = min(realMax, max(t1[i], t2[i]))
	}
	return realMin, realMax
}

// Bounds is the world-space box the volume occupies: centred on the
// origin, one unit per texel.
func Bounds(s Sampler) (mgl32.Vec3, mgl32.Vec3) {
	w, h, d := s.Dims()
	half := mgl32.Vec3{float32(w), float32(h), float32(d)}.Mul(0.5)
	return half.Mul(-1), half
}

func shade(sample, time, height float32) core.Color3 {
	shimmer := 0.1 * float32(math.Sin(float64(time+height*0.05)))
	t := mgl32.Clamp((sample-Threshold)*4+shimmer, 0, 1)
	return paletteLow.Lerp(paletteHigh, t)
}

func background(dir mgl32.Vec3) core.Color3 {
	return skyBottom.Lerp(skyTop, dir.Y()*0.5+0.5)
}

// March composites front to back along the ray of pixel (px, py).
func March(s Sampler, p Params, inv mgl32.Mat4, px, py int) [4]float32 {
	ray := PixelRay(inv, px, py, p.FboSize)
	minB, maxB := Bounds(s)

	var acc mgl32.Vec3
	var alpha float32

	tNear, tFar := IntersectAABB(ray, minB, maxB)
	if tNear <= tFar && p.SamplingStep > 0 {
		for i, t := 0, tNear; i < MaxSteps && t <= tFar; i, t = i+1, t+p.SamplingStep {
			pos := ray.Origin.Add(ray.Direction.Mul(t))
			sample := Trilinear(s, pos.Sub(minB))

			density := max(sample-Threshold, 0) * Absorption
			if density <= 0 {
				continue
			}
			a := 1 - float32(math.Exp(float64(-density*p.SamplingStep)))
			c := shade(sample, p.Time, pos.Y())
			acc = acc.Add(c.Vec3().Mul((1 - alpha) * a))
			alpha += (1 - alpha) * a
			if alpha > Opaque {
				break
			}
		}
	}

	out := core.ColorFromVec(acc.Add(background(ray.Direction).Vec3().Mul(1 - alpha)))
	return [4]float32{out.R(), out.G(), out.B(), 1}
}
