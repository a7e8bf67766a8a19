package gpu

// Handle names a driver object. Zero is never a valid object.
type Handle uint32

type ShaderStage int

const (
	StageCompute ShaderStage = iota
)

type TextureFormat int

const (
	FormatR32F TextureFormat = iota
	FormatRGBA32F
)

func (f TextureFormat) Channels() int {
	if f == FormatRGBA32F {
		return 4
	}
	return 1
}

func (f TextureFormat) String() string {
	switch f {
	case FormatR32F:
		return "r32float"
	case FormatRGBA32F:
		return "rgba32float"
	}
	return "unknown"
}

type TextureDimension int

const (
	Texture2D TextureDimension = iota
	Texture3D
)

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type Access int

const (
	AccessReadOnly Access = iota
	AccessWriteOnly
	AccessReadWrite
)

// Barrier selects which kinds of prior shader writes a MemoryBarrier makes
// visible.
type Barrier uint32

const (
	BarrierShaderImageAccess Barrier = 1 << iota
	BarrierShaderStorage
	BarrierTextureFetch
	BarrierFramebuffer

	BarrierAll Barrier = 0xffffffff
)

type TextureDesc struct {
	Label     string
	Dimension TextureDimension
	Width     int
	Height    int
	Depth     int
	Format    TextureFormat
	Filter    Filter
}

// Rect is a half-open pixel rectangle.
type Rect struct {
	X0, Y0, X1, Y1 int32
}

func RectOf(size [2]int32) Rect {
	return Rect{X1: size[0], Y1: size[1]}
}

func (r Rect) Dx() int32 { return r.X1 - r.X0 }
func (r Rect) Dy() int32 { return r.Y1 - r.Y0 }

// Driver is the GPU surface the pipeline talks to. Calls follow a bound
// state model: uniform uploads target the program last passed to
// UseProgram, dispatches use the bound program, images, textures and
// storage buffers. Dispatches are asynchronous; only MemoryBarrier orders a
// dispatch's writes before a later read.
//
// Failures of fallible calls are not returned; callers query
// ShaderCompiled/ProgramLinked and the info logs.
type Driver interface {
	CreateProgram() Handle
	CreateShader(stage ShaderStage) Handle
	ShaderSource(shader Handle, source string)
	CompileShader(shader Handle)
	ShaderCompiled(shader Handle) bool
	ShaderInfoLog(shader Handle) string
	AttachShader(program, shader Handle)
	LinkProgram(program Handle)
	ProgramLinked(program Handle) bool
	ProgramInfoLog(program Handle) string
	UseProgram(program Handle)

	// UniformLocation returns -1 for names the linked program does not
	// declare. Uploads to -1 are ignored.
	UniformLocation(program Handle, name string) int32
	Uniform1f(location int32, v float32)
	Uniform1i(location int32, v int32)
	Uniform1ui(location int32, v uint32)
	Uniform2iv(location int32, v [2]int32)
	Uniform3fv(location int32, v [3]float32)
	UniformMatrix4fv(location int32, transpose bool, v [16]float32)

	CreateBuffer(size int) Handle
	BufferSubData(buffer Handle, offset int, data []byte)
	BindBufferBase(index uint32, buffer Handle)

	CreateTexture(desc TextureDesc) Handle
	BindTexture(unit uint32, texture Handle)
	BindImageTexture(unit uint32, texture Handle, access Access, format TextureFormat)

	DispatchCompute(x, y, z uint32)
	MemoryBarrier(bits Barrier)

	Clear(r, g, b, a float32)
	BlitFramebuffer(src Handle, srcRect, dstRect Rect, filter Filter)
	SwapBuffers()

	Delete(h Handle)
}
