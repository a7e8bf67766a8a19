// Package softdrv runs the compute pipeline on the CPU. Work groups of a
// dispatch execute concurrently in the background; MemoryBarrier is where
// their writes are published.
package softdrv

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/gekko3d/light/volumert/rt/gpu"
	"github.com/gekko3d/light/volumert/rt/logging"
	"golang.org/x/sync/errgroup"
)

// Stats counts driver activity. Hazards are reads of a resource written by
// a dispatch that no barrier has fenced yet.
type Stats struct {
	Dispatches int
	Barriers   int
	Blits      int
	Swaps      int
	Hazards    int
}

type Options struct {
	Width, Height int
	Logger        logging.Logger
	// Sink receives the surface after every SwapBuffers. The image is
	// drawn over by later frames.
	Sink func(*image.RGBA)
}

type shader struct {
	source   string
	compiled bool
	log      string
	refl     *gpu.Reflection
}

type program struct {
	shaders []gpu.Handle
	linked  bool
	log     string
	refl    *gpu.Reflection
	block   *gpu.UniformBlock
}

type buffer struct {
	data []byte
}

type texture struct {
	desc gpu.TextureDesc
	data []float32
}

func (t *texture) Dims() (int, int, int) {
	return t.desc.Width, t.desc.Height, max(t.desc.Depth, 1)
}

func (t *texture) index(x, y, z int) int {
	return ((z*t.desc.Height+y)*t.desc.Width + x) * t.desc.Format.Channels()
}

// Texel returns the first channel at (x, y, z).
func (t *texture) Texel(x, y, z int) float32 {
	return t.data[t.index(x, y, z)]
}

type imageUnit struct {
	texture gpu.Handle
	access  gpu.Access
	format  gpu.TextureFormat
}

type job struct {
	done chan struct{}
	err  error
}

type Driver struct {
	log  logging.Logger
	sink func(*image.RGBA)

	next     gpu.Handle
	shaders  map[gpu.Handle]*shader
	programs map[gpu.Handle]*program
	buffers  map[gpu.Handle]*buffer
	textures map[gpu.Handle]*texture

	current  gpu.Handle
	storage  map[uint32]gpu.Handle
	samplers map[uint32]gpu.Handle
	images   map[uint32]imageUnit

	pending  []*job
	unfenced map[gpu.Handle]bool

	surface *image.RGBA

	mu    sync.Mutex
	stats Stats
}

func New(opts Options) *Driver {
	return &Driver{
		log:      logging.OrNop(opts.Logger),
		sink:     opts.Sink,
		shaders:  make(map[gpu.Handle]*shader),
		programs: make(map[gpu.Handle]*program),
		buffers:  make(map[gpu.Handle]*buffer),
		textures: make(map[gpu.Handle]*texture),
		storage:  make(map[uint32]gpu.Handle),
		samplers: make(map[uint32]gpu.Handle),
		images:   make(map[uint32]imageUnit),
		unfenced: make(map[gpu.Handle]bool),
		surface:  image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
	}
}

func (d *Driver) handle() gpu.Handle {
	d.next++
	return d.next
}

func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Driver) count(f func(s *Stats)) {
	d.mu.Lock()
	f(&d.stats)
	d.mu.Unlock()
}

// Surface is the presented image. Valid until the next Clear or blit.
func (d *Driver) Surface() *image.RGBA {
	d.sync()
	return d.surface
}

func (d *Driver) SurfaceSize() [2]int32 {
	b := d.surface.Bounds()
	return [2]int32{int32(b.Dx()), int32(b.Dy())}
}

// TextureData waits for outstanding dispatches and returns the texels of
// tex, or nil for an unknown handle.
func (d *Driver) TextureData(tex gpu.Handle) []float32 {
	d.sync()
	if t, ok := d.textures[tex]; ok {
		return t.data
	}
	return nil
}

func (d *Driver) CreateProgram() gpu.Handle {
	h := d.handle()
	d.programs[h] = &program{}
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

// CompileShader accepts a source whose compute entry point has a CPU
// kernel.
func (d *Driver) CompileShader(h gpu.Handle) {
	s, ok := d.shaders[h]
	if !ok {
		return
	}
	s.compiled, s.log, s.refl = false, "", nil

	r, err := gpu.Reflect(s.source)
	if err != nil {
		s.log = err.Error()
		return
	}
	if _, ok := kernels[r.EntryPoint]; !ok {
		s.log = fmt.Sprintf("no kernel for entry point %s", r.EntryPoint)
		return
	}
	s.compiled, s.refl = true, r
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
	prog, ok := d.programs[h]
	if !ok {
		return
	}
	prog.linked, prog.log, prog.refl, prog.block = false, "", nil, nil
	for _, sh := range prog.shaders {
		s, ok := d.shaders[sh]
		if !ok || !s.compiled {
			prog.log = "attached shader is not compiled"
			return
		}
		prog.refl = s.refl
	}
	if prog.refl == nil {
		prog.log = "no compute shader attached"
		return
	}
	prog.linked = true
	prog.block = gpu.NewUniformBlock(prog.refl)
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

func (d *Driver) CreateBuffer(size int) gpu.Handle {
	h := d.handle()
	d.buffers[h] = &buffer{data: make([]byte, size)}
	return h
}

func (d *Driver) BufferSubData(h gpu.Handle, offset int, data []byte) {
	d.sync()
	b, ok := d.buffers[h]
	if !ok || offset < 0 || offset+len(data) > len(b.data) {
		d.log.Errorf("softdrv: buffer %d: upload of %d bytes at %d out of range", h, len(data), offset)
		return
	}
	copy(b.data[offset:], data)
}

func (d *Driver) BindBufferBase(index uint32, h gpu.Handle) {
	d.storage[index] = h
}

func (d *Driver) CreateTexture(desc gpu.TextureDesc) gpu.Handle {
	h := d.handle()
	n := desc.Width * desc.Height * max(desc.Depth, 1) * desc.Format.Channels()
	d.textures[h] = &texture{desc: desc, data: make([]float32, n)}
	return h
}

func (d *Driver) BindTexture(unit uint32, h gpu.Handle) {
	d.samplers[unit] = h
}

func (d *Driver) BindImageTexture(unit uint32, h gpu.Handle, access gpu.Access, format gpu.TextureFormat) {
	d.images[unit] = imageUnit{texture: h, access: access, format: format}
}

// DispatchCompute starts the bound kernel over an x*y*z grid of work
// groups and returns without waiting for it.
func (d *Driver) DispatchCompute(x, y, z uint32) {
	// Earlier dispatches may still be writing what this one binds.
	d.sync()

	p, ok := d.programs[d.current]
	if !ok || !p.linked {
		d.log.Errorf("softdrv: dispatch with program %d not linked", d.current)
		return
	}

	inv := &invocation{d: d, reads: map[gpu.Handle]bool{}, writes: map[gpu.Handle]bool{}}
	inv.uniforms = &gpu.UniformBlock{Fields: p.block.Fields, Data: append([]byte(nil), p.block.Data...)}
	run, err := kernels[p.refl.EntryPoint](inv)
	if err != nil {
		d.log.Errorf("softdrv: %s: %v", p.refl.EntryPoint, err)
		return
	}
	for h := range inv.reads {
		if d.unfenced[h] {
			d.count(func(s *Stats) { s.Hazards++ })
		}
	}
	for h := range inv.writes {
		d.unfenced[h] = true
	}
	d.count(func(s *Stats) { s.Dispatches++ })

	j := &job{done: make(chan struct{})}
	d.pending = append(d.pending, j)
	go func() {
		defer close(j.done)
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for gz := range z {
			for gy := range y {
				for gx := range x {
					g.Go(func() error { return run([3]uint32{gx, gy, gz}) })
				}
			}
		}
		j.err = g.Wait()
	}()
}

// sync waits for every outstanding dispatch.
func (d *Driver) sync() {
	for _, j := range d.pending {
		<-j.done
		if j.err != nil {
			d.log.Errorf("softdrv: dispatch: %v", j.err)
		}
	}
	d.pending = d.pending[:0]
}

func (d *Driver) MemoryBarrier(bits gpu.Barrier) {
	d.sync()
	clear(d.unfenced)
	d.count(func(s *Stats) { s.Barriers++ })
}

func (d *Driver) Delete(h gpu.Handle) {
	d.sync()
	delete(d.shaders, h)
	delete(d.programs, h)
	delete(d.buffers, h)
	delete(d.textures, h)
	delete(d.unfenced, h)
}

var _ gpu.Driver = (*Driver)(nil)
