package gpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformValue is one of Float, Int, Uint, Int2, Dir3, Vec3, Mat4. Each
// has exactly one upload path.
type UniformValue interface {
	isUniformValue()
}

type (
	Float float32
	Int   int32
	Uint  uint32
	Int2  [2]int32
	// Dir3 is normalized before upload.
	Dir3 mgl32.Vec3
	Vec3 mgl32.Vec3
	Mat4 mgl32.Mat4
)

func (Float) isUniformValue() {}
func (Int) isUniformValue()   {}
func (Uint) isUniformValue()  {}
func (Int2) isUniformValue()  {}
func (Dir3) isUniformValue()  {}
func (Vec3) isUniformValue()  {}
func (Mat4) isUniformValue()  {}

// ShaderProgram is a driver program with a name-to-slot cache for its
// uniforms.
type ShaderProgram struct {
	drv      Driver
	Name     Handle
	Label    string
	shaders  []Handle
	uniforms map[string]int32
}

func NewShaderProgram(drv Driver, label string) *ShaderProgram {
	return &ShaderProgram{
		drv:      drv,
		Name:     drv.CreateProgram(),
		Label:    label,
		uniforms: make(map[string]int32),
	}
}

func (p *ShaderProgram) Bind() {
	p.drv.UseProgram(p.Name)
}

func (p *ShaderProgram) SetShader(shader Handle) {
	p.drv.AttachShader(p.Name, shader)
	p.shaders = append(p.shaders, shader)
}

// Link drops cached slots, a relink may move them.
func (p *ShaderProgram) Link() {
	p.drv.LinkProgram(p.Name)
	clear(p.uniforms)
}

func (p *ShaderProgram) Linked() bool {
	return p.drv.ProgramLinked(p.Name)
}

// Slot resolves name once and caches the result, including -1.
func (p *ShaderProgram) Slot(name string) int32 {
	if slot, ok := p.uniforms[name]; ok {
		return slot
	}
	slot := p.drv.UniformLocation(p.Name, name)
	p.uniforms[name] = slot
	return slot
}

// SetUniform uploads v to the uniform name of this program. The program
// must be bound.
func (p *ShaderProgram) SetUniform(name string, v UniformValue) {
	slot := p.Slot(name)
	switch v := v.(type) {
	case Float:
		p.drv.Uniform1f(slot, float32(v))
	case Int:
		p.drv.Uniform1i(slot, int32(v))
	case Uint:
		p.drv.Uniform1ui(slot, uint32(v))
	case Int2:
		p.drv.Uniform2iv(slot, [2]int32(v))
	case Dir3:
		p.drv.Uniform3fv(slot, [3]float32(mgl32.Vec3(v).Normalize()))
	case Vec3:
		p.drv.Uniform3fv(slot, [3]float32(v))
	case Mat4:
		p.drv.UniformMatrix4fv(slot, false, [16]float32(v))
	default:
		panic(fmt.Sprintf("unsupported uniform value %T", v))
	}
}

func (p *ShaderProgram) Release() {
	for _, sh := range p.shaders {
		p.drv.Delete(sh)
	}
	p.shaders = nil
	p.drv.Delete(p.Name)
}

// BuildError reports a failed compile or link step with the driver log.
type BuildError struct {
	Label string
	Step  string
	Log   string
}

func (e *BuildError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("%s: %s failed", e.Label, e.Step)
	}
	return fmt.Sprintf("%s: %s failed: %s", e.Label, e.Step, e.Log)
}

// BuildProgram compiles source as a compute shader, links it and binds
// the program. The program is returned even when a step failed; the error
// then wraps one *BuildError per failed step.
func BuildProgram(drv Driver, label, source string) (*ShaderProgram, error) {
	prog := NewShaderProgram(drv, label)
	shader := drv.CreateShader(StageCompute)

	drv.ShaderSource(shader, source)
	drv.CompileShader(shader)
	prog.SetShader(shader)

	var errs []error
	if !drv.ShaderCompiled(shader) {
		errs = append(errs, &BuildError{Label: label, Step: "compile", Log: drv.ShaderInfoLog(shader)})
	}

	prog.Link()
	prog.Bind()
	if !prog.Linked() {
		errs = append(errs, &BuildError{Label: label, Step: "link", Log: drv.ProgramInfoLog(prog.Name)})
	}
	return prog, errors.Join(errs...)
}
