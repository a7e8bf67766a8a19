package volume

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Sampler is a read-only single channel 3D texture.
type Sampler interface {
	Dims() (w, h, d int)
	Texel(x, y, z int) float32
}

// Grid is a dense x-major float volume.
type Grid struct {
	W, H, D int
	Data    []float32
}

func NewGrid(w, h, d int) *Grid {
	return &Grid{W: w, H: h, D: d, Data: make([]float32, w*h*d)}
}

func (g *Grid) Dims() (int, int, int) { return g.W, g.H, g.D }

func (g *Grid) Index(x, y, z int) int {
	return (z*g.H+y)*g.W + x
}

func (g *Grid) Texel(x, y, z int) float32 {
	return g.Data[g.Index(x, y, z)]
}

func (g *Grid) Set(x, y, z int, v float32) {
	g.Data[g.Index(x, y, z)] = v
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Trilinear samples s at p given in texel units, texel centres at +0.5,
// clamped to the edge.
func Trilinear(s Sampler, p mgl32.Vec3) float32 {
	w, h, d := s.Dims()
	c := p.Sub(mgl32.Vec3{0.5, 0.5, 0.5})
	fx := float32(math.Floor(float64(c[0])))
	fy := float32(math.Floor(float64(c[1])))
	fz := float32(math.Floor(float64(c[2])))
	tx, ty, tz := c[0]-fx, c[1]-fy, c[2]-fz

	x0, y0, z0 := clampi(int(fx), 0, w-1), clampi(int(fy), 0, h-1), clampi(int(fz), 0, d-1)
	x1, y1, z1 := clampi(int(fx)+1, 0, w-1), clampi(int(fy)+1, 0, h-1), clampi(int(fz)+1, 0, d-1)

	c00 := lerp(tx, s.Texel(x0, y0, z0), s.Texel(x1, y0, z0))
	c10 := lerp(tx, s.Texel(x0, y1, z0), s.Texel(x1, y1, z0))
	c01 := lerp(tx, s.Texel(x0, y0, z1), s.Texel(x1, y0, z1))
	c11 := lerp(tx, s.Texel(x0, y1, z1), s.Texel(x1, y1, z1))
	return lerp(tz, lerp(ty, c00, c10), lerp(ty, c01, c11))
}

func lerp(t, a, b float32) float32 {
	return a + t*(b-a)
}
