package gpu

import "fmt"

// recorder is a Driver that logs every call and keeps just enough state to
// answer status and uniform queries.
type recorder struct {
	calls    []string
	next     Handle
	failLog  map[string]string // source -> compile log
	compiled map[Handle]bool
	sources  map[Handle]string
	linked   map[Handle]bool
	attached map[Handle][]Handle
	slots    map[string]int32
	lookups  int
	uploads  []upload
	subData  []subData
}

type upload struct {
	slot  int32
	value any
}

type subData struct {
	buffer Handle
	offset int
	size   int
}

func newRecorder() *recorder {
	return &recorder{
		failLog:  map[string]string{},
		compiled: map[Handle]bool{},
		sources:  map[Handle]string{},
		linked:   map[Handle]bool{},
		attached: map[Handle][]Handle{},
		slots:    map[string]int32{"time": 0, "fboSize": 1, "samplingStep": 2, "viewMatrix": 3},
	}
}

func (r *recorder) log(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) handle() Handle {
	r.next++
	return r.next
}

func (r *recorder) CreateProgram() Handle { r.log("CreateProgram"); return r.handle() }
func (r *recorder) CreateShader(stage ShaderStage) Handle {
	r.log("CreateShader")
	return r.handle()
}
func (r *recorder) ShaderSource(shader Handle, source string) {
	r.log("ShaderSource")
	r.sources[shader] = source
}
func (r *recorder) CompileShader(shader Handle) {
	r.log("CompileShader")
	_, bad := r.failLog[r.sources[shader]]
	r.compiled[shader] = !bad
}
func (r *recorder) ShaderCompiled(shader Handle) bool { return r.compiled[shader] }
func (r *recorder) ShaderInfoLog(shader Handle) string {
	return r.failLog[r.sources[shader]]
}
func (r *recorder) AttachShader(program, shader Handle) {
	r.log("AttachShader")
	r.attached[program] = append(r.attached[program], shader)
}
func (r *recorder) LinkProgram(program Handle) {
	r.log("LinkProgram")
	ok := len(r.attached[program]) > 0
	for _, sh := range r.attached[program] {
		ok = ok && r.compiled[sh]
	}
	r.linked[program] = ok
}
func (r *recorder) ProgramLinked(program Handle) bool { return r.linked[program] }
func (r *recorder) ProgramInfoLog(program Handle) string {
	if r.linked[program] {
		return ""
	}
	return "no compiled compute stage"
}
func (r *recorder) UseProgram(program Handle) { r.log("UseProgram %d", program) }

func (r *recorder) UniformLocation(program Handle, name string) int32 {
	r.log("UniformLocation %s", name)
	r.lookups++
	if slot, ok := r.slots[name]; ok {
		return slot
	}
	return -1
}

func (r *recorder) record(kind string, slot int32, v any) {
	r.log("%s %d", kind, slot)
	r.uploads = append(r.uploads, upload{slot: slot, value: v})
}

func (r *recorder) Uniform1f(loc int32, v float32) { r.record("Uniform1f", loc, v) }
func (r *recorder) Uniform1i(loc int32, v int32) { r.record("Uniform1i", loc, v) }
func (r *recorder) Uniform1ui(loc int32, v uint32) { r.record("Uniform1ui", loc, v) }
func (r *recorder) Uniform2iv(loc int32, v [2]int32) { r.record("Uniform2iv", loc, v) }
func (r *recorder) Uniform3fv(loc int32, v [3]float32) { r.record("Uniform3fv", loc, v) }
func (r *recorder) UniformMatrix4fv(loc int32, transpose bool, v [16]float32) {
	r.record("UniformMatrix4fv", loc, v)
}

func (r *recorder) CreateBuffer(size int) Handle {
	r.log("CreateBuffer %d", size)
	return r.handle()
}
func (r *recorder) BufferSubData(buffer Handle, offset int, data []byte) {
	r.log("BufferSubData %d %d", offset, len(data))
	r.subData = append(r.subData, subData{buffer: buffer, offset: offset, size: len(data)})
}
func (r *recorder) BindBufferBase(index uint32, buffer Handle) {
	r.log("BindBufferBase %d", index)
}
func (r *recorder) CreateTexture(desc TextureDesc) Handle {
	r.log("CreateTexture %s", desc.Format)
	return r.handle()
}
func (r *recorder) BindTexture(unit uint32, texture Handle) { r.log("BindTexture %d", unit) }
func (r *recorder) BindImageTexture(unit uint32, texture Handle, access Access, format TextureFormat) {
	r.log("BindImageTexture %d %s", unit, format)
}
func (r *recorder) DispatchCompute(x, y, z uint32) { r.log("DispatchCompute %d %d %d", x, y, z) }
func (r *recorder) MemoryBarrier(bits Barrier) { r.log("MemoryBarrier") }
func (r *recorder) Clear(cr, cg, cb, ca float32) { r.log("Clear") }
func (r *recorder) BlitFramebuffer(src Handle, srcRect, dstRect Rect, filter Filter) {
	r.log("BlitFramebuffer %dx%d %dx%d", srcRect.Dx(), srcRect.Dy(), dstRect.Dx(), dstRect.Dy())
}
func (r *recorder) SwapBuffers() { r.log("SwapBuffers") }
func (r *recorder) Delete(h Handle) { r.log("Delete %d", h) }

func (r *recorder) reset() {
	r.calls = nil
	r.uploads = nil
	r.subData = nil
	r.lookups = 0
}

var _ Driver = (*recorder)(nil)
