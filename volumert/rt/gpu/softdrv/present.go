package softdrv

import (
	"image"
	"image/color"

	"github.com/gekko3d/light/volumert/rt/gpu"
	"golang.org/x/image/draw"
)

func (d *Driver) Clear(r, g, b, a float32) {
	d.sync()
	c := color.RGBA{R: unorm8(r), G: unorm8(g), B: unorm8(b), A: unorm8(a)}
	draw.Draw(d.surface, d.surface.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func unorm8(v float32) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}

func rect(r gpu.Rect) image.Rectangle {
	return image.Rect(int(r.X0), int(r.Y0), int(r.X1), int(r.Y1))
}

// BlitFramebuffer scales the srcRect region of an RGBA32F texture onto
// dstRect of the surface. Rows run top to bottom on both sides.
func (d *Driver) BlitFramebuffer(src gpu.Handle, srcRect, dstRect gpu.Rect, filter gpu.Filter) {
	d.sync()
	t, ok := d.textures[src]
	if !ok || t.desc.Format != gpu.FormatRGBA32F {
		d.log.Errorf("softdrv: blit source %d is not an rgba32float texture", src)
		return
	}
	if d.unfenced[src] {
		d.count(func(s *Stats) { s.Hazards++ })
	}

	sr := rect(srcRect).Intersect(image.Rect(0, 0, t.desc.Width, t.desc.Height))
	img := image.NewRGBA(sr)
	for y := sr.Min.Y; y < sr.Max.Y; y++ {
		for x := sr.Min.X; x < sr.Max.X; x++ {
			i := t.index(x, y, 0)
			img.SetRGBA(x, y, color.RGBA{
				R: unorm8(t.data[i]),
				G: unorm8(t.data[i+1]),
				B: unorm8(t.data[i+2]),
				A: unorm8(t.data[i+3]),
			})
		}
	}

	var scaler draw.Scaler = draw.BiLinear
	if filter == gpu.FilterNearest {
		scaler = draw.NearestNeighbor
	}
	scaler.Scale(d.surface, rect(dstRect), img, sr, draw.Src, nil)
	d.count(func(s *Stats) { s.Blits++ })
}

func (d *Driver) SwapBuffers() {
	d.sync()
	d.count(func(s *Stats) { s.Swaps++ })
	if d.sink != nil {
		d.sink(d.surface)
	}
}
