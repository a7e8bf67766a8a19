package noise

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	TableSize = 0x100

	PermsBytes = TableSize * 4
	GradsBytes = TableSize * 3 * 4
	// ByteSize is the size of the storage buffer holding a packed Table.
	ByteSize = PermsBytes + GradsBytes
)

// Table is a gradient-noise lattice: a permutation of [0,256) and one unit
// gradient per entry.
type Table struct {
	Perms [TableSize]int32
	Grads [TableSize]mgl32.Vec3
}

// NewTable shuffles the identity permutation with a PCG source seeded from
// seed and derives the gradients from it. Same seed, same table.
func NewTable(seed int64) *Table {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))

	t := &Table{}
	for i := range t.Perms {
		t.Perms[i] = int32(i)
	}

	// IntN is unbiased, every one of the 256! orderings can come out.
	for i, span := 0, TableSize; i < TableSize; i, span = i+1, span-1 {
		k := i + rng.IntN(span)
		t.Perms[i], t.Perms[k] = t.Perms[k], t.Perms[i]
	}

	t.deriveGradients()
	return t
}

func (t *Table) deriveGradients() {
	const freq = 2 * math.Pi / TableSize
	for i := range t.Grads {
		a := float64(t.Perms[i]) * freq
		b := float64(t.Perms[t.Perms[i]]) * freq
		// |(cos a, cos b, sin a)| >= 1, normalize never sees a zero vector.
		t.Grads[i] = mgl32.Vec3{
			float32(math.Cos(a)),
			float32(math.Cos(b)),
			float32(math.Sin(a)),
		}.Normalize()
	}
}

// Bytes packs the table as the generation shader reads it: 256 int32
// followed by 256 tightly packed float32 triples, little endian.
func (t *Table) Bytes() []byte {
	buf := make([]byte, ByteSize)
	t.PutPerms(buf[:PermsBytes])
	t.PutGrads(buf[PermsBytes:])
	return buf
}

func (t *Table) PutPerms(dst []byte) {
	for i, p := range t.Perms {
		binary.LittleEndian.PutUint32(dst[i*4:], uint32(p))
	}
}

func (t *Table) PutGrads(dst []byte) {
	for i, g := range t.Grads {
		for c := 0; c < 3; c++ {
			binary.LittleEndian.PutUint32(dst[(i*3+c)*4:], math.Float32bits(g[c]))
		}
	}
}

// DecodeTable is the inverse of Bytes.
func DecodeTable(buf []byte) (*Table, error) {
	if len(buf) < ByteSize {
		return nil, fmt.Errorf("noise table: need %d bytes, got %d", ByteSize, len(buf))
	}
	t := &Table{}
	for i := range t.Perms {
		t.Perms[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	grads := buf[PermsBytes:]
	for i := range t.Grads {
		for c := 0; c < 3; c++ {
			t.Grads[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(grads[(i*3+c)*4:]))
		}
	}
	return t, nil
}

// IsPermutation reports whether Perms is a bijection on [0,256).
func (t *Table) IsPermutation() bool {
	var seen [TableSize]bool
	for _, p := range t.Perms {
		if p < 0 || p >= TableSize || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}
