package gpu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type BindingKind int

const (
	BindingUniform BindingKind = iota
	BindingStorageBuffer
	BindingStorageTexture
	BindingTexture
	BindingSampler
)

func (k BindingKind) String() string {
	return [...]string{"uniform", "storage", "storage_texture", "texture", "sampler"}[k]
}

// Binding is one `@group(g) @binding(b) var ...` declaration.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Kind    BindingKind
	Type    string
	// Format is the texel format of storage textures ("r32float").
	Format string
	// Dimension is "2d" or "3d" for textures.
	Dimension string
}

// UniformField is a member of the uniform block with its byte placement.
type UniformField struct {
	Name   string
	Type   string
	Offset uint32
	Size   uint32
}

// Reflection is what the pipeline needs to know about a compute shader
// without a driver-side reflection API.
type Reflection struct {
	EntryPoint    string
	WorkgroupSize [3]uint32
	Bindings      []Binding
	Uniforms      []UniformField
	UniformSize   uint32
}

var (
	reComment = regexp.MustCompile(`//[^\n]*`)
	reEntry   = regexp.MustCompile(`((?:@\w+(?:\([^)]*\))?\s*)+)fn\s+(\w+)`)
	reWgSize  = regexp.MustCompile(`@workgroup_size\(([^)]*)\)`)
	reBinding = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+);`)
	reStruct  = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	reField   = regexp.MustCompile(`(\w+)\s*:\s*(\w+(?:<[^>]*>)?)`)
)

// Reflect parses a WGSL compute source.
func Reflect(source string) (*Reflection, error) {
	src := reComment.ReplaceAllString(source, "")
	r := &Reflection{}

	for _, m := range reEntry.FindAllStringSubmatch(src, -1) {
		if !strings.Contains(m[1], "@compute") {
			continue
		}
		if r.EntryPoint != "" {
			return nil, fmt.Errorf("multiple compute entry points: %s, %s", r.EntryPoint, m[2])
		}
		r.EntryPoint = m[2]
		wg := reWgSize.FindStringSubmatch(m[1])
		if wg == nil {
			return nil, fmt.Errorf("entry point %s: missing @workgroup_size", m[2])
		}
		size, err := parseWorkgroupSize(wg[1])
		if err != nil {
			return nil, fmt.Errorf("entry point %s: %w", m[2], err)
		}
		r.WorkgroupSize = size
	}
	if r.EntryPoint == "" {
		return nil, fmt.Errorf("no @compute entry point")
	}

	structs := map[string]string{}
	for _, m := range reStruct.FindAllStringSubmatch(src, -1) {
		structs[m[1]] = m[2]
	}

	for _, m := range reBinding.FindAllStringSubmatch(src, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		b := Binding{
			Group:   uint32(group),
			Binding: uint32(binding),
			Name:    m[4],
			Type:    strings.TrimSpace(m[5]),
		}
		space := strings.TrimSpace(m[3])
		switch {
		case strings.HasPrefix(space, "uniform"):
			b.Kind = BindingUniform
			body, ok := structs[b.Type]
			if !ok {
				return nil, fmt.Errorf("uniform %s: unknown struct %s", b.Name, b.Type)
			}
			if r.Uniforms != nil {
				return nil, fmt.Errorf("uniform %s: only one uniform block is supported", b.Name)
			}
			fields, size, err := layoutUniforms(body)
			if err != nil {
				return nil, fmt.Errorf("uniform %s: %w", b.Name, err)
			}
			r.Uniforms, r.UniformSize = fields, size
		case strings.HasPrefix(space, "storage"):
			b.Kind = BindingStorageBuffer
		case strings.HasPrefix(b.Type, "texture_storage_"):
			b.Kind = BindingStorageTexture
			b.Dimension = textureDim(b.Type)
			if args := typeArgs(b.Type); len(args) > 0 {
				b.Format = args[0]
			}
		case strings.HasPrefix(b.Type, "texture_"):
			b.Kind = BindingTexture
			b.Dimension = textureDim(b.Type)
		case strings.HasPrefix(b.Type, "sampler"):
			b.Kind = BindingSampler
		default:
			return nil, fmt.Errorf("binding %s: unsupported type %s", b.Name, b.Type)
		}
		r.Bindings = append(r.Bindings, b)
	}
	return r, nil
}

func parseWorkgroupSize(s string) ([3]uint32, error) {
	size := [3]uint32{1, 1, 1}
	parts := strings.Split(s, ",")
	if len(parts) > 3 {
		return size, fmt.Errorf("bad workgroup size %q", s)
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSuffix(p, "u"), 10, 32)
		if err != nil || v == 0 {
			return size, fmt.Errorf("bad workgroup size %q", s)
		}
		size[i] = uint32(v)
	}
	return size, nil
}

func textureDim(t string) string {
	switch {
	case strings.Contains(t, "_3d"):
		return "3d"
	case strings.Contains(t, "_2d"):
		return "2d"
	}
	return ""
}

func typeArgs(t string) []string {
	open := strings.IndexByte(t, '<')
	end := strings.LastIndexByte(t, '>')
	if open < 0 || end < open {
		return nil
	}
	args := strings.Split(t[open+1:end], ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return args
}

var typeAliases = map[string]string{
	"vec2i": "vec2<i32>", "vec2u": "vec2<u32>", "vec2f": "vec2<f32>",
	"vec3i": "vec3<i32>", "vec3u": "vec3<u32>", "vec3f": "vec3<f32>",
	"vec4i": "vec4<i32>", "vec4u": "vec4<u32>", "vec4f": "vec4<f32>",
	"mat4x4f": "mat4x4<f32>", "mat3x3f": "mat3x3<f32>",
}

// alignSize follows the WGSL host-shareable layout rules for the types a
// uniform block here may hold.
func alignSize(t string) (align, size uint32, err error) {
	if a, ok := typeAliases[t]; ok {
		t = a
	}
	t = strings.ReplaceAll(t, " ", "")
	switch t {
	case "f32", "i32", "u32":
		return 4, 4, nil
	case "vec2<f32>", "vec2<i32>", "vec2<u32>":
		return 8, 8, nil
	case "vec3<f32>", "vec3<i32>", "vec3<u32>":
		return 16, 12, nil
	case "vec4<f32>", "vec4<i32>", "vec4<u32>":
		return 16, 16, nil
	case "mat3x3<f32>":
		return 16, 48, nil
	case "mat4x4<f32>":
		return 16, 64, nil
	}
	return 0, 0, fmt.Errorf("unsupported uniform type %s", t)
}

func roundUp(v, align uint32) uint32 {
	return (v + align - 1) / align * align
}

func layoutUniforms(body string) ([]UniformField, uint32, error) {
	var fields []UniformField
	offset, maxAlign := uint32(0), uint32(16)
	for _, m := range reField.FindAllStringSubmatch(body, -1) {
		align, size, err := alignSize(m[2])
		if err != nil {
			return nil, 0, fmt.Errorf("field %s: %w", m[1], err)
		}
		offset = roundUp(offset, align)
		fields = append(fields, UniformField{Name: m[1], Type: m[2], Offset: offset, Size: size})
		offset += size
		maxAlign = max(maxAlign, align)
	}
	return fields, roundUp(offset, maxAlign), nil
}

// Uniform returns the slot of the named uniform field, -1 if absent.
func (r *Reflection) Uniform(name string) int32 {
	for i, f := range r.Uniforms {
		if f.Name == name {
			return int32(i)
		}
	}
	return -1
}

// Find returns the index-th binding of kind in declaration order.
func (r *Reflection) Find(kind BindingKind, index uint32) (Binding, bool) {
	n := uint32(0)
	for _, b := range r.Bindings {
		if b.Kind != kind {
			continue
		}
		if n == index {
			return b, true
		}
		n++
	}
	return Binding{}, false
}
