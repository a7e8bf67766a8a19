package wgpudrv

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/light/volumert/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
)

const blitUniformSize = 48

type blitState struct {
	pipeline *wgpu.RenderPipeline
	uniforms *wgpu.Buffer

	source    gpu.Handle
	bindGroup *wgpu.BindGroup
}

// frame is the surface texture being drawn between Clear and SwapBuffers.
type frame struct {
	tex     *wgpu.Texture
	view    *wgpu.TextureView
	clear   wgpu.Color
	cleared bool
}

func (b *blitState) init(d *Driver, source string) error {
	module, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          d.labelf("fullscreen"),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return err
	}
	defer module.Release()

	b.pipeline, err = d.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: d.labelf("blit pipeline"),
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    d.Config.Format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	b.uniforms, err = d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: d.labelf("blit uniforms"),
		Size:  blitUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	return err
}

func (b *blitState) release() {
	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
	if b.uniforms != nil {
		b.uniforms.Release()
		b.uniforms = nil
	}
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
}

// blitUniforms packs the Blit struct of present/fullscreen.wgsl.
func blitUniforms(srcRect, dstRect gpu.Rect, texW, texH int, filter gpu.Filter) []byte {
	buf := make([]byte, blitUniformSize)
	floats := []float32{
		float32(srcRect.X0), float32(srcRect.Y0),
		float32(srcRect.Dx()), float32(srcRect.Dy()),
		float32(dstRect.X0), float32(dstRect.Y0),
		float32(dstRect.Dx()), float32(dstRect.Dy()),
		float32(texW), float32(texH),
	}
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	if filter == gpu.FilterLinear {
		binary.LittleEndian.PutUint32(buf[40:], 1)
	}
	return buf
}

// acquire gets the surface texture for this frame. On failure the frame is
// skipped.
func (d *Driver) acquire() *frame {
	if d.frame != nil {
		return d.frame
	}
	tex, err := d.Surface.GetCurrentTexture()
	if err != nil {
		d.log.Errorf("GetCurrentTexture failed: %v", err)
		return nil
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		d.log.Errorf("CreateView failed: %v", err)
		return nil
	}
	d.frame = &frame{tex: tex, view: view, clear: wgpu.Color{A: 1}}
	return d.frame
}

func (d *Driver) releaseFrame() {
	if d.frame == nil {
		return
	}
	d.frame.view.Release()
	d.frame.tex.Release()
	d.frame = nil
}

func (d *Driver) Clear(r, g, b, a float32) {
	f := d.acquire()
	if f == nil {
		return
	}
	f.clear = wgpu.Color{R: float64(r), G: float64(g), B: float64(b), A: float64(a)}
	f.cleared = false
}

func (d *Driver) renderPass(f *frame) *wgpu.RenderPassEncoder {
	load := wgpu.LoadOpLoad
	if !f.cleared {
		load = wgpu.LoadOpClear
		f.cleared = true
	}
	return d.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       f.view,
			LoadOp:     load,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: f.clear,
		}},
	})
}

func (d *Driver) blitBindGroup(src gpu.Handle, t *texture) (*wgpu.BindGroup, error) {
	if d.blit.bindGroup != nil && d.blit.source == src {
		return d.blit.bindGroup, nil
	}
	if d.blit.bindGroup != nil {
		d.blit.bindGroup.Release()
		d.blit.bindGroup = nil
	}
	layout := d.blit.pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	bg, err := d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  d.labelf("blit group"),
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t.view},
			{Binding: 1, Buffer: d.blit.uniforms, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, err
	}
	d.blit.bindGroup, d.blit.source = bg, src
	return bg, nil
}

// BlitFramebuffer draws srcRect of src over dstRect of the surface with a
// fullscreen triangle clipped by the viewport.
func (d *Driver) BlitFramebuffer(src gpu.Handle, srcRect, dstRect gpu.Rect, filter gpu.Filter) {
	f := d.acquire()
	if f == nil || d.blit.pipeline == nil {
		return
	}
	t, ok := d.textures[src]
	if !ok || t.desc.Format != gpu.FormatRGBA32F {
		d.log.Errorf("blit source %d is not an rgba32float texture", src)
		return
	}
	if dstRect.Dx() <= 0 || dstRect.Dy() <= 0 || srcRect.Dx() <= 0 || srcRect.Dy() <= 0 {
		return
	}
	bg, err := d.blitBindGroup(src, t)
	if err != nil {
		d.log.Errorf("blit bind group: %v", err)
		return
	}

	// The uniform write must not overtake a pending blit.
	d.submit()
	if err := d.Queue.WriteBuffer(d.blit.uniforms, 0, blitUniforms(srcRect, dstRect, t.desc.Width, t.desc.Height, filter)); err != nil {
		d.log.Errorf("blit uniforms: %v", err)
		return
	}
	if !d.ensureEncoder() {
		return
	}

	pass := d.renderPass(f)
	pass.SetPipeline(d.blit.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.SetViewport(float32(dstRect.X0), float32(dstRect.Y0), float32(dstRect.Dx()), float32(dstRect.Dy()), 0, 1)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		d.log.Errorf("Render pass End failed: %v", err)
	}
	pass.Release()
}

// SwapBuffers submits the frame and presents the surface.
func (d *Driver) SwapBuffers() {
	f := d.frame
	if f == nil {
		return
	}
	if !f.cleared && d.ensureEncoder() {
		// Nothing was drawn; still honour the clear.
		pass := d.renderPass(f)
		if err := pass.End(); err != nil {
			d.log.Errorf("Render pass End failed: %v", err)
		}
		pass.Release()
	}
	d.submit()
	d.Surface.Present()
	d.releaseFrame()
}
