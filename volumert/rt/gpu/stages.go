package gpu

import (
	"errors"

	"github.com/gekko3d/light/volumert/rt/noise"
	"github.com/gekko3d/light/volumert/rt/volume"
)

// Tile edges covered by one work group of each stage.
const (
	GenerationTile = 8
	RaymarchTile   = 32
)

const DefaultSamplingStep float32 = 0.5

// Groups is the number of tile-sized work groups needed to cover n.
func Groups(n, tile int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + tile - 1) / tile)
}

// UploadNoiseTable allocates the noise storage buffer and writes the
// permutation followed by the gradients.
func UploadNoiseTable(drv Driver, t *noise.Table) Handle {
	buf := drv.CreateBuffer(noise.ByteSize)

	perms := make([]byte, noise.PermsBytes)
	t.PutPerms(perms)
	drv.BufferSubData(buf, 0, perms)

	grads := make([]byte, noise.GradsBytes)
	t.PutGrads(grads)
	drv.BufferSubData(buf, noise.PermsBytes, grads)
	return buf
}

func CreateVolume(drv Driver, size int) Handle {
	return drv.CreateTexture(TextureDesc{
		Label:     "density volume",
		Dimension: Texture3D,
		Width:     size,
		Height:    size,
		Depth:     size,
		Format:    FormatR32F,
		Filter:    FilterLinear,
	})
}

func CreateColorBuffer(drv Driver, size [2]int32) Handle {
	return drv.CreateTexture(TextureDesc{
		Label:     "color buffer",
		Dimension: Texture2D,
		Width:     int(size[0]),
		Height:    int(size[1]),
		Depth:     1,
		Format:    FormatRGBA32F,
		Filter:    FilterNearest,
	})
}

// GenerateVolume fills vol with noise density from the table buffer. The
// barrier makes the image writes visible to the raymarch stage.
func GenerateVolume(drv Driver, prog *ShaderProgram, table, vol Handle, size int) {
	prog.Bind()
	drv.BindBufferBase(0, table)
	drv.BindImageTexture(0, vol, AccessWriteOnly, FormatR32F)

	g := Groups(size, GenerationTile)
	drv.DispatchCompute(g, g, g)
	drv.MemoryBarrier(BarrierShaderImageAccess)
}

// Raymarch renders vol into color for one frame.
func Raymarch(drv Driver, prog *ShaderProgram, p volume.Params, vol, color Handle) {
	prog.Bind()
	prog.SetUniform("time", Float(p.Time))
	prog.SetUniform("fboSize", Int2(p.FboSize))
	prog.SetUniform("samplingStep", Float(p.SamplingStep))
	prog.SetUniform("viewMatrix", Mat4(p.ViewMatrix))

	drv.BindTexture(0, vol)
	drv.BindImageTexture(0, color, AccessWriteOnly, FormatRGBA32F)

	drv.DispatchCompute(Groups(int(p.FboSize[0]), RaymarchTile), Groups(int(p.FboSize[1]), RaymarchTile), 1)
	drv.MemoryBarrier(BarrierShaderImageAccess | BarrierFramebuffer)
}

// Present blits color (src pixels) onto the display (dst pixels) and
// swaps.
func Present(drv Driver, color Handle, src, dst [2]int32) {
	drv.Clear(0, 0, 0, 1)
	drv.BlitFramebuffer(color, RectOf(src), RectOf(dst), FilterLinear)
	drv.SwapBuffers()
}

// Pipeline owns the programs and resources of the two compute stages.
type Pipeline struct {
	drv Driver

	GenProgram   *ShaderProgram
	MarchProgram *ShaderProgram

	NoiseBuffer Handle
	Volume      Handle
	Color       Handle

	VolumeSize int
	FboSize    [2]int32
}

// NewPipeline builds both programs and allocates the volume and color
// buffer. Build failures are returned but the pipeline is usable; it then
// renders whatever the driver makes of the broken programs.
func NewPipeline(drv Driver, genSrc, marchSrc string, volumeSize int, fbo [2]int32) (*Pipeline, error) {
	gen, genErr := BuildProgram(drv, "generation", genSrc)
	march, marchErr := BuildProgram(drv, "raymarch", marchSrc)

	p := &Pipeline{
		drv:          drv,
		GenProgram:   gen,
		MarchProgram: march,
		Volume:       CreateVolume(drv, volumeSize),
		Color:        CreateColorBuffer(drv, fbo),
		VolumeSize:   volumeSize,
		FboSize:      fbo,
	}
	return p, errors.Join(genErr, marchErr)
}

// Generate uploads the noise table and runs the generation stage once.
func (p *Pipeline) Generate(t *noise.Table) {
	if p.NoiseBuffer != 0 {
		p.drv.Delete(p.NoiseBuffer)
	}
	p.NoiseBuffer = UploadNoiseTable(p.drv, t)
	GenerateVolume(p.drv, p.GenProgram, p.NoiseBuffer, p.Volume, p.VolumeSize)
}

// Frame raymarches and presents one frame onto a display of size dst.
func (p *Pipeline) Frame(params volume.Params, dst [2]int32) {
	params.FboSize = p.FboSize
	Raymarch(p.drv, p.MarchProgram, params, p.Volume, p.Color)
	Present(p.drv, p.Color, p.FboSize, dst)
}

func (p *Pipeline) Release() {
	for _, h := range []Handle{p.NoiseBuffer, p.Volume, p.Color} {
		if h != 0 {
			p.drv.Delete(h)
		}
	}
	p.GenProgram.Release()
	p.MarchProgram.Release()
}
