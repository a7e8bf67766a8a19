// Package wgpudrv implements gpu.Driver on WebGPU. Programs are compute
// pipelines with an auto layout; uniforms live in a CPU block flushed to a
// uniform buffer before each dispatch; a memory barrier submits the
// commands recorded so far.
package wgpudrv

import (
	"fmt"

	"github.com/gekko3d/light/volumert/rt/gpu"
	"github.com/gekko3d/light/volumert/rt/logging"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type Options struct {
	Logger logging.Logger
	// BlitSource is the WGSL of the fullscreen presentation pass.
	BlitSource string
	// Label prefixes GPU object labels.
	Label string
}

type shader struct {
	source   string
	module   *wgpu.ShaderModule
	compiled bool
	log      string
	refl     *gpu.Reflection
}

type program struct {
	label    string
	shaders  []gpu.Handle
	pipeline *wgpu.ComputePipeline
	refl     *gpu.Reflection
	linked   bool
	log      string

	block    *gpu.UniformBlock
	uniforms *wgpu.Buffer

	bindKey    string
	bindGroups map[uint32]*wgpu.BindGroup
}

type buffer struct {
	buf  *wgpu.Buffer
	size uint64
}

type texture struct {
	desc gpu.TextureDesc
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

type Driver struct {
	log   logging.Logger
	label string

	Instance *wgpu.Instance
	Surface  *wgpu.Surface
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Config   *wgpu.SurfaceConfiguration

	next     gpu.Handle
	shaders  map[gpu.Handle]*shader
	programs map[gpu.Handle]*program
	buffers  map[gpu.Handle]*buffer
	textures map[gpu.Handle]*texture

	current  gpu.Handle
	storage  map[uint32]gpu.Handle
	samplers map[uint32]gpu.Handle
	images   map[uint32]imageUnit

	encoder *wgpu.CommandEncoder
	pass    *wgpu.ComputePassEncoder

	blit  blitState
	frame *frame
}

type imageUnit struct {
	texture gpu.Handle
	access  gpu.Access
	format  gpu.TextureFormat
}

// New acquires a device for the window's surface. Failure here is fatal
// to the caller.
func New(win *glfw.Window, opts Options) (*Driver, error) {
	d := &Driver{
		log:      logging.OrNop(opts.Logger),
		label:    opts.Label,
		shaders:  make(map[gpu.Handle]*shader),
		programs: make(map[gpu.Handle]*program),
		buffers:  make(map[gpu.Handle]*buffer),
		textures: make(map[gpu.Handle]*texture),
		storage:  make(map[uint32]gpu.Handle),
		samplers: make(map[uint32]gpu.Handle),
		images:   make(map[uint32]imageUnit),
	}

	d.Instance = wgpu.CreateInstance(nil)
	d.Surface = d.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))

	adapter, err := d.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: d.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.Adapter = adapter

	d.Device, err = adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: d.labelf("device")})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.Queue = d.Device.GetQueue()

	width, height := win.GetFramebufferSize()
	caps := d.Surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		d.Release()
		return nil, fmt.Errorf("surface not supported by adapter")
	}
	d.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: choosePresentMode(caps.PresentModes),
		AlphaMode:   caps.AlphaModes[0],
	}
	d.Surface.Configure(adapter, d.Device, d.Config)
	d.log.Debugf("surface %dx%d format %v present mode %v", width, height, d.Config.Format, d.Config.PresentMode)

	if err := d.blit.init(d, opts.BlitSource); err != nil {
		// Frames still render, they just never reach the surface.
		d.log.Errorf("blit pipeline: %v", err)
	}
	return d, nil
}

// SurfaceSize is the configured surface size in pixels, which follows the
// window's framebuffer rather than its requested size.
func (d *Driver) SurfaceSize() [2]int32 {
	if d.Config == nil {
		return [2]int32{}
	}
	return [2]int32{int32(d.Config.Width), int32(d.Config.Height)}
}

// choosePresentMode prefers presenting without waiting for vblank.
func choosePresentMode(modes []wgpu.PresentMode) wgpu.PresentMode {
	for _, want := range []wgpu.PresentMode{wgpu.PresentModeImmediate, wgpu.PresentModeMailbox} {
		for _, m := range modes {
			if m == want {
				return m
			}
		}
	}
	return wgpu.PresentModeFifo
}

func (d *Driver) labelf(format string, args ...any) string {
	s := fmt.Sprintf(format, args...)
	if d.label == "" {
		return s
	}
	return d.label + " " + s
}

func (d *Driver) handle() gpu.Handle {
	d.next++
	return d.next
}

func (d *Driver) CreateProgram() gpu.Handle {
	h := d.handle()
	d.programs[h] = &program{label: d.labelf("program %d", h)}
	return h
}

func (d *Driver) CreateShader(stage gpu.ShaderStage) gpu.Handle {
	h := d.handle()
	d.shaders[h] = &shader{}
	return h
}

func (d *Driver) ShaderSource(h gpu.Handle, source string) {
	if s, ok := d.shaders[h]; ok {
		s.source = source
	}
}

func (d *Driver) CompileShader(h gpu.Handle) {
	s, ok := d.shaders[h]
	if !ok {
		return
	}
	if s.module != nil {
		s.module.Release()
	}
	s.module, s.compiled, s.log, s.refl = nil, false, "", nil

	refl, err := gpu.Reflect(s.source)
	if err != nil {
		s.log = err.Error()
		return
	}
	module, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          d.labelf("%s", refl.EntryPoint),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: s.source},
	})
	if err != nil {
		s.log = err.Error()
		return
	}
	s.module, s.compiled, s.refl = module, true, refl
}

func (d *Driver) ShaderCompiled(h gpu.Handle) bool {
	s, ok := d.shaders[h]
	return ok && s.compiled
}

func (d *Driver) ShaderInfoLog(h gpu.Handle) string {
	if s, ok := d.shaders[h]; ok {
		return s.log
	}
	return ""
}

func (d *Driver) AttachShader(p, s gpu.Handle) {
	if prog, ok := d.programs[p]; ok {
		prog.shaders = append(prog.shaders, s)
	}
}

func (d *Driver) LinkProgram(h gpu.Handle) {
	p, ok := d.programs[h]
	if !ok {
		return
	}
	p.releaseGPU()
	p.linked, p.log, p.refl, p.block = false, "", nil, nil

	var sh *shader
	for _, hs := range p.shaders {
		s, ok := d.shaders[hs]
		if !ok || !s.compiled {
			p.log = "attached shader is not compiled"
			return
		}
		sh = s
	}
	if sh == nil {
		p.log = "no compute shader attached"
		return
	}

	pipeline, err := d.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: p.label,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     sh.module,
			EntryPoint: sh.refl.EntryPoint,
		},
	})
	if err != nil {
		p.log = err.Error()
		return
	}
	p.pipeline, p.refl = pipeline, sh.refl
	p.block = gpu.NewUniformBlock(sh.refl)

	if sh.refl.UniformSize > 0 {
		p.uniforms, err = d.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.label + " uniforms",
			Size:  uint64(sh.refl.UniformSize),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			p.log = err.Error()
			return
		}
	}
	p.linked = true
}

func (d *Driver) ProgramLinked(h gpu.Handle) bool {
	p, ok := d.programs[h]
	return ok && p.linked
}

func (d *Driver) ProgramInfoLog(h gpu.Handle) string {
	if p, ok := d.programs[h]; ok {
		return p.log
	}
	return ""
}

func (d *Driver) UseProgram(h gpu.Handle) {
	d.current = h
}

func (d *Driver) UniformLocation(h gpu.Handle, name string) int32 {
	p, ok := d.programs[h]
	if !ok || !p.linked {
		return -1
	}
	return p.refl.Uniform(name)
}

func (d *Driver) block() *gpu.UniformBlock {
	if p, ok := d.programs[d.current]; ok {
		return p.block
	}
	return nil
}

func (d *Driver) Uniform1f(loc int32, v float32)     { d.block().Put1f(loc, v) }
func (d *Driver) Uniform1i(loc int32, v int32)       { d.block().Put1i(loc, v) }
func (d *Driver) Uniform1ui(loc int32, v uint32)     { d.block().Put1ui(loc, v) }
func (d *Driver) Uniform2iv(loc int32, v [2]int32)   { d.block().Put2i(loc, v) }
func (d *Driver) Uniform3fv(loc int32, v [3]float32) { d.block().Put3f(loc, v) }
func (d *Driver) UniformMatrix4fv(loc int32, transpose bool, v [16]float32) {
	d.block().PutMat4(loc, transpose, v)
}

func (p *program) releaseBindGroups() {
	for _, bg := range p.bindGroups {
		bg.Release()
	}
	p.bindGroups, p.bindKey = nil, ""
}

func (p *program) releaseGPU() {
	p.releaseBindGroups()
	if p.uniforms != nil {
		p.uniforms.Release()
		p.uniforms = nil
	}
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}

func (d *Driver) Delete(h gpu.Handle) {
	if s, ok := d.shaders[h]; ok {
		if s.module != nil {
			s.module.Release()
		}
		delete(d.shaders, h)
	}
	if p, ok := d.programs[h]; ok {
		p.releaseGPU()
		delete(d.programs, h)
	}
	if b, ok := d.buffers[h]; ok {
		d.submit()
		b.buf.Release()
		delete(d.buffers, h)
	}
	if t, ok := d.textures[h]; ok {
		d.submit()
		t.view.Release()
		t.tex.Release()
		delete(d.textures, h)
	}
	// Bind groups may reference the deleted object.
	for _, p := range d.programs {
		p.releaseBindGroups()
	}
}

// Release destroys the device and everything created on it.
func (d *Driver) Release() {
	d.submit()
	d.releaseFrame()
	for h := range d.programs {
		d.Delete(h)
	}
	for h := range d.shaders {
		d.Delete(h)
	}
	for h := range d.buffers {
		d.Delete(h)
	}
	for h := range d.textures {
		d.Delete(h)
	}
	d.blit.release()
	if d.Queue != nil {
		d.Queue.Release()
	}
	if d.Device != nil {
		d.Device.Release()
	}
	if d.Adapter != nil {
		d.Adapter.Release()
	}
	if d.Surface != nil {
		d.Surface.Release()
	}
	if d.Instance != nil {
		d.Instance.Release()
	}
}

var _ gpu.Driver = (*Driver)(nil)
