package noise

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Keep in sync with shaders/generation/noise.wgsl.
const (
	Period  float32 = 32
	Octaves         = 4
)

func fade(t float32) float32 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float32) float32 {
	return a + t*(b-a)
}

func (t *Table) hash(x, y, z int32) int32 {
	h := t.Perms[x&0xff]
	h = t.Perms[(h+y)&0xff]
	return t.Perms[(h+z)&0xff]
}

func (t *Table) corner(x, y, z int32, fx, fy, fz float32) float32 {
	g := t.Grads[t.hash(x, y, z)]
	return g[0]*fx + g[1]*fy + g[2]*fz
}

// Noise is classic gradient noise at p, roughly in [-1,1].
func (t *Table) Noise(p mgl32.Vec3) float32 {
	fl := [3]float32{
		float32(math.Floor(float64(p[0]))),
		float32(math.Floor(float64(p[1]))),
		float32(math.Floor(float64(p[2]))),
	}
	x, y, z := int32(fl[0]), int32(fl[1]), int32(fl[2])
	fx, fy, fz := p[0]-fl[0], p[1]-fl[1], p[2]-fl[2]
	u, v, w := fade(fx), fade(fy), fade(fz)

	n000 := t.corner(x, y, z, fx, fy, fz)
	n100 := t.corner(x+1, y, z, fx-1, fy, fz)
	n010 := t.corner(x, y+1, z, fx, fy-1, fz)
	n110 := t.corner(x+1, y+1, z, fx-1, fy-1, fz)
	n001 := t.corner(x, y, z+1, fx, fy, fz-1)
	n101 := t.corner(x+1, y, z+1, fx-1, fy, fz-1)
	n011 := t.corner(x, y+1, z+1, fx, fy-1, fz-1)
	n111 := t.corner(x+1, y+1, z+1, fx-1, fy-1, fz-1)

	return lerp(w,
		lerp(v, lerp(u, n000, n100), lerp(u, n010, n110)),
		lerp(v, lerp(u, n001, n101), lerp(u, n011, n111)))
}

// Density is the value the generation stage stores for voxel (x,y,z):
// Octaves of fBm sampled at the voxel centre, remapped to about [0,1].
func (t *Table) Density(x, y, z int) float32 {
	p := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}.Mul(1 / Period)

	var sum, norm float32
	amp := float32(1)
	for o := 0; o < Octaves; o++ {
		sum += amp * t.Noise(p)
		norm += amp
		p = p.Mul(2)
		amp *= 0.5
	}
	return sum/norm*0.5 + 0.5
}
