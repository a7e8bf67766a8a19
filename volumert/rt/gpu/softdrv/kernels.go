package softdrv

import (
	"fmt"

	"github.com/gekko3d/light/volumert/rt/gpu"
	"github.com/gekko3d/light/volumert/rt/noise"
	"github.com/gekko3d/light/volumert/rt/volume"
)

// A kernel prepares one dispatch and returns the function that executes a
// single work group. Work groups run concurrently and must only write
// their own tile.
type kernel func(inv *invocation) (func(group [3]uint32) error, error)

// kernels maps WGSL entry point names to their CPU counterparts.
var kernels = map[string]kernel{
	"generate_volume": generateVolume,
	"raymarch":        raymarch,
}

// invocation resolves the resources bound at dispatch time and notes what
// the dispatch reads and writes.
type invocation struct {
	d        *Driver
	uniforms *gpu.UniformBlock
	reads    map[gpu.Handle]bool
	writes   map[gpu.Handle]bool
}

func (inv *invocation) storage(index uint32) ([]byte, error) {
	h := inv.d.storage[index]
	b, ok := inv.d.buffers[h]
	if !ok {
		return nil, fmt.Errorf("no storage buffer bound at %d", index)
	}
	inv.reads[h] = true
	return b.data, nil
}

func (inv *invocation) texture(unit uint32, dim gpu.TextureDimension) (*texture, error) {
	h := inv.d.samplers[unit]
	t, ok := inv.d.textures[h]
	if !ok {
		return nil, fmt.Errorf("no texture bound at unit %d", unit)
	}
	if t.desc.Dimension != dim {
		return nil, fmt.Errorf("texture unit %d: wrong dimension", unit)
	}
	inv.reads[h] = true
	return t, nil
}

func (inv *invocation) image(unit uint32, dim gpu.TextureDimension, format gpu.TextureFormat) (*texture, error) {
	u, ok := inv.d.images[unit]
	if !ok {
		return nil, fmt.Errorf("no image bound at unit %d", unit)
	}
	t, ok := inv.d.textures[u.texture]
	if !ok {
		return nil, fmt.Errorf("image unit %d: unknown texture %d", unit, u.texture)
	}
	if u.format != format || t.desc.Format != format || t.desc.Dimension != dim {
		return nil, fmt.Errorf("image unit %d: want %s", unit, format)
	}
	if u.access == gpu.AccessReadOnly {
		return nil, fmt.Errorf("image unit %d: bound read-only", unit)
	}
	if u.access == gpu.AccessReadWrite {
		inv.reads[u.texture] = true
	}
	inv.writes[u.texture] = true
	return t, nil
}

func generateVolume(inv *invocation) (func([3]uint32) error, error) {
	buf, err := inv.storage(0)
	if err != nil {
		return nil, err
	}
	table, err := noise.DecodeTable(buf)
	if err != nil {
		return nil, err
	}
	vol, err := inv.image(0, gpu.Texture3D, gpu.FormatR32F)
	if err != nil {
		return nil, err
	}
	w, h, d := vol.Dims()

	return func(g [3]uint32) error {
		const tile = gpu.GenerationTile
		x0, y0, z0 := int(g[0])*tile, int(g[1])*tile, int(g[2])*tile
		for z := z0; z < min(z0+tile, d); z++ {
			for y := y0; y < min(y0+tile, h); y++ {
				for x := x0; x < min(x0+tile, w); x++ {
					vol.data[vol.index(x, y, z)] = table.Density(x, y, z)
				}
			}
		}
		return nil
	}, nil
}

func raymarch(inv *invocation) (func([3]uint32) error, error) {
	vol, err := inv.texture(0, gpu.Texture3D)
	if err != nil {
		return nil, err
	}
	color, err := inv.image(0, gpu.Texture2D, gpu.FormatRGBA32F)
	if err != nil {
		return nil, err
	}

	u := inv.uniforms
	p := volume.Params{
		Time:         u.Float("time"),
		FboSize:      u.Int2("fboSize"),
		SamplingStep: u.Float("samplingStep"),
		ViewMatrix:   u.Mat4("viewMatrix"),
	}
	if p.FboSize[0] <= 0 || p.FboSize[1] <= 0 {
		return func([3]uint32) error { return nil }, nil
	}
	invView := p.ViewMatrix.Inv()
	w := min(int(p.FboSize[0]), color.desc.Width)
	h := min(int(p.FboSize[1]), color.desc.Height)

	return func(g [3]uint32) error {
		const tile = gpu.RaymarchTile
		x0, y0 := int(g[0])*tile, int(g[1])*tile
		for y := y0; y < min(y0+tile, h); y++ {
			for x := x0; x < min(x0+tile, w); x++ {
				c := volume.March(vol, p, invView, x, y)
				copy(color.data[color.index(x, y, 0):], c[:])
			}
		}
		return nil
	}, nil
}
