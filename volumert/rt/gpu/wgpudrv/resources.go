package wgpudrv

import (
	"github.com/gekko3d/light/volumert/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
)

func textureFormat(f gpu.TextureFormat) wgpu.TextureFormat {
	if f == gpu.FormatRGBA32F {
		return wgpu.TextureFormatRGBA32Float
	}
	return wgpu.TextureFormatR32Float
}

func textureDimension(t gpu.TextureDimension) wgpu.TextureDimension {
	if t == gpu.Texture3D {
		return wgpu.TextureDimension3D
	}
	return wgpu.TextureDimension2D
}

// alignBuffer rounds size up to the 4 byte granularity of buffer copies.
func alignBuffer(size int) uint64 {
	return uint64(size+3) &^ 3
}

func (d *Driver) CreateBuffer(size int) gpu.Handle {
	n := alignBuffer(size)
	buf, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: d.labelf("storage buffer"),
		Size:  n,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		panic(err)
	}
	h := d.handle()
	d.buffers[h] = &buffer{buf: buf, size: n}
	return h
}

func (d *Driver) BufferSubData(h gpu.Handle, offset int, data []byte) {
	b, ok := d.buffers[h]
	if !ok || offset < 0 || uint64(offset+len(data)) > b.size {
		d.log.Errorf("buffer %d: upload of %d bytes at %d out of range", h, len(data), offset)
		return
	}
	if err := d.Queue.WriteBuffer(b.buf, uint64(offset), data); err != nil {
		d.log.Errorf("buffer %d: WriteBuffer failed: %v", h, err)
	}
}

func (d *Driver) BindBufferBase(index uint32, h gpu.Handle) {
	d.storage[index] = h
}

// CreateTexture allocates a texture usable both as a storage image and for
// textureLoad. Float32 formats are not filterable, shaders filter by hand.
func (d *Driver) CreateTexture(desc gpu.TextureDesc) gpu.Handle {
	tex, err := d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label: d.labelf("%s", desc.Label),
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: uint32(max(desc.Depth, 1)),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     textureDimension(desc.Dimension),
		Format:        textureFormat(desc.Format),
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		panic(err)
	}
	h := d.handle()
	d.textures[h] = &texture{desc: desc, tex: tex, view: view}
	return h
}

func (d *Driver) BindTexture(unit uint32, h gpu.Handle) {
	d.samplers[unit] = h
}

func (d *Driver) BindImageTexture(unit uint32, h gpu.Handle, access gpu.Access, format gpu.TextureFormat) {
	d.images[unit] = imageUnit{texture: h, access: access, format: format}
}
