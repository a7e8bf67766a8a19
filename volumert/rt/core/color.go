package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Color3 is a linear RGB triple. Channels are read through R, G and B.
type Color3 struct {
	V [3]float32
}

func RGB(r, g, b float32) Color3 {
	return Color3{V: [3]float32{r, g, b}}
}

func ColorFromVec(v mgl32.Vec3) Color3 {
	return Color3{V: v}
}

func (c Color3) R() float32 { return c.V[0] }
func (c Color3) G() float32 { return c.V[1] }
func (c Color3) B() float32 { return c.V[2] }

func (c Color3) Vec3() mgl32.Vec3 {
	return mgl32.Vec3(c.V)
}

// Lerp mixes c toward o by t.
func (c Color3) Lerp(o Color3, t float32) Color3 {
	return ColorFromVec(c.Vec3().Add(o.Vec3().Sub(c.Vec3()).Mul(t)))
}
