package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformBlock is the CPU copy of a program's uniform buffer. Slots are
// indices into Fields as handed out by Reflection.Uniform.
type UniformBlock struct {
	Fields []UniformField
	Data   []byte
	Dirty  bool
}

func NewUniformBlock(r *Reflection) *UniformBlock {
	return &UniformBlock{
		Fields: r.Uniforms,
		Data:   make([]byte, r.UniformSize),
		Dirty:  true,
	}
}

func (b *UniformBlock) field(slot int32, size uint32) (UniformField, bool) {
	if b == nil || slot < 0 || int(slot) >= len(b.Fields) {
		return UniformField{}, false
	}
	f := b.Fields[slot]
	// A mismatched upload is dropped, as GL rejects it.
	if f.Size != size {
		return UniformField{}, false
	}
	return f, true
}

func (b *UniformBlock) put32(slot int32, words ...uint32) {
	f, ok := b.field(slot, uint32(len(words))*4)
	if !ok {
		return
	}
	for i, w := range words {
		binary.LittleEndian.PutUint32(b.Data[f.Offset+uint32(i)*4:], w)
	}
	b.Dirty = true
}

func (b *UniformBlock) Put1f(slot int32, v float32) {
	b.put32(slot, math.Float32bits(v))
}

func (b *UniformBlock) Put1i(slot int32, v int32) {
	b.put32(slot, uint32(v))
}

func (b *UniformBlock) Put1ui(slot int32, v uint32) {
	b.put32(slot, v)
}

func (b *UniformBlock) Put2i(slot int32, v [2]int32) {
	b.put32(slot, uint32(v[0]), uint32(v[1]))
}

func (b *UniformBlock) Put3f(slot int32, v [3]float32) {
	b.put32(slot, math.Float32bits(v[0]), math.Float32bits(v[1]), math.Float32bits(v[2]))
}

// PutMat4 stores column-major; transpose takes a row-major source.
func (b *UniformBlock) PutMat4(slot int32, transpose bool, v [16]float32) {
	m := mgl32.Mat4(v)
	if transpose {
		m = m.Transpose()
	}
	words := make([]uint32, 16)
	for i, f := range m {
		words[i] = math.Float32bits(f)
	}
	b.put32(slot, words...)
}

func (b *UniformBlock) offset(name string) (uint32, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f.Offset, true
		}
	}
	return 0, false
}

func (b *UniformBlock) word(name string, i uint32) uint32 {
	off, ok := b.offset(name)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint32(b.Data[off+i*4:])
}

// Float reads back a scalar field; missing names read as zero.
func (b *UniformBlock) Float(name string) float32 {
	return math.Float32frombits(b.word(name, 0))
}

func (b *UniformBlock) Int2(name string) [2]int32 {
	return [2]int32{int32(b.word(name, 0)), int32(b.word(name, 1))}
}

func (b *UniformBlock) Mat4(name string) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = math.Float32frombits(b.word(name, uint32(i)))
	}
	return m
}
